package iojson

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// ErrNoInput is returned by Read when neither a file nor piped input is
// available.
var ErrNoInput = errors.New("no input provided (stdin is a terminal); use --file or pipe input")

// FileReader decodes a document named by a --file flag, or stdin when the
// flag is unset. Files ending in .yaml or .yml are read as YAML; everything
// else is JSON. Either way the document is decoded through the json tags of
// T, and unknown fields are rejected.
type FileReader[T any] struct {
	path string

	// Stdin overrides os.Stdin. A non-nil Stdin is never treated as a terminal.
	Stdin io.Reader
}

// Flag returns the --file flag bound to the reader.
func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to a JSON or YAML file (reads JSON from stdin if not provided)",
		Destination: &fr.path,
	}
}

// Read decodes the input.
func (fr *FileReader[T]) Read() (T, error) {
	var out T

	data, err := fr.input()
	if err != nil {
		return out, err
	}

	if isYAML(fr.path) {
		if data, err = yamlToJSON(data); err != nil {
			return out, err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode input: %w", err)
	}
	return out, nil
}

func (fr *FileReader[T]) input() ([]byte, error) {
	var r io.Reader
	switch {
	case fr.path != "":
		f, err := os.Open(fr.path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	case fr.Stdin != nil:
		r = fr.Stdin
	case term.IsTerminal(int(os.Stdin.Fd())):
		return nil, ErrNoInput
	default:
		r = os.Stdin
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON re-encodes a YAML document as JSON so it decodes through json
// tags.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert YAML: %w", err)
	}
	return out, nil
}
