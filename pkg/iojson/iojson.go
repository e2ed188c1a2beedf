// Package iojson holds helpers for reading and writing JSON from commands.
package iojson

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Error is the JSON shape written to stderr when a command fails.
type Error struct {
	Message string         `json:"message"`
	Kind    string         `json:"kind,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

func jsonError(msg string, jsonErr error) string {
	msgBytes, _ := json.Marshal(msg)
	errBytes, _ := json.Marshal(jsonErr.Error())
	return fmt.Sprintf(`{"message":%s,"data":{"json_error":%s}}`, msgBytes, errBytes)
}

// MarshalError renders an Error. If marshalling fails a hand-built blob
// carrying the marshal error is returned instead.
func MarshalError(msg, kind string, data map[string]any) string {
	bits, err := json.Marshal(Error{Message: msg, Kind: kind, Data: data})
	if err != nil {
		return jsonError(msg, err)
	}
	return string(bits)
}

// WriteError writes an Error line to w.
func WriteError(w io.Writer, msg, kind string, data map[string]any) error {
	_, err := fmt.Fprintln(w, MarshalError(msg, kind, data))
	return err
}

// WriteLine writes obj as a single JSON line.
func WriteLine(w io.Writer, obj any) error {
	bits, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal line: %w", err)
	}
	_, err = fmt.Fprintln(w, string(bits))
	return err
}
