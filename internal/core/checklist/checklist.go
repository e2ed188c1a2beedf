// Package checklist defines checklist entries stored inside a task and the
// wire format used to persist them.
package checklist

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	"github.com/colonyops/taskdeck/internal/core/orderkey"
	"github.com/colonyops/taskdeck/internal/core/orderlist"
)

// MaxTitleLength is the longest title the planning store accepts.
const MaxTitleLength = 100

// DefaultMaxItems is the number of entries a single task checklist may hold.
const DefaultMaxItems = 20

var (
	// ErrEmptyTitle is returned when an entry title is blank.
	ErrEmptyTitle = errors.New("checklist title cannot be empty")
	// ErrTitleTooLong is returned when an entry title exceeds MaxTitleLength.
	ErrTitleTooLong = errors.New("checklist title too long")
)

// Item is the payload of a checklist entry.
type Item struct {
	Title   string `json:"title"`
	Checked bool   `json:"checked"`
}

// Entry is a checklist item positioned by order key.
type Entry = orderlist.Entry[Item]

// ValidateTitle trims a title, puts it in NFC form and checks it. The length
// limit applies to the NFC form, so a decomposed accent counts as one
// character.
func ValidateTitle(title string) (string, error) {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrTitleTooLong, utf8.RuneCountInString(title), MaxTitleLength)
	}
	return title, nil
}

// Progress returns the number of checked entries and the total.
func Progress(entries []Entry) (done, total int) {
	for _, e := range entries {
		if e.Value.Checked {
			done++
		}
	}
	return done, len(entries)
}

// wireItem mirrors the planning store's checklist item shape.
type wireItem struct {
	Title     string `json:"title"`
	IsChecked bool   `json:"isChecked"`
	OrderHint string `json:"orderHint"`
}

// Encode serializes entries as an object keyed by entry ID.
func Encode(entries []Entry) ([]byte, error) {
	wire := make(map[string]wireItem, len(entries))
	for _, e := range entries {
		wire[e.ID] = wireItem{
			Title:     e.Value.Title,
			IsChecked: e.Value.Checked,
			OrderHint: string(e.Key),
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode checklist: %w", err)
	}
	return data, nil
}

// Decode parses the wire format. Entries come back sorted by (key, id);
// keys are not validated here, see orderlist.FromEntries.
func Decode(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var wire map[string]wireItem
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}

	entries := make([]Entry, 0, len(wire))
	for id, w := range wire {
		entries = append(entries, Entry{
			ID:    id,
			Key:   orderkey.Key(w.OrderHint),
			Value: Item{Title: w.Title, Checked: w.IsChecked},
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := orderkey.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return entries, nil
}
