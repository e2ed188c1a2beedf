package stores

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/checklist"
	"github.com/colonyops/taskdeck/internal/core/queue"
	"github.com/colonyops/taskdeck/internal/core/versioned"
	"github.com/goccy/go-json"
)

// Codec converts between a typed value and the stored blob.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// JSONCodec encodes values as JSON.
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(data []byte) (T, error) {
			var v T
			err := json.Unmarshal(data, &v)
			return v, err
		},
	}
}

// TypedStore adapts a blob store to a typed versioned.Store.
type TypedStore[T any] struct {
	raw   versioned.Store[[]byte]
	codec Codec[T]
}

// NewTypedStore wraps raw with codec.
func NewTypedStore[T any](raw versioned.Store[[]byte], codec Codec[T]) *TypedStore[T] {
	return &TypedStore[T]{raw: raw, codec: codec}
}

// Fetch implements versioned.Store. A missing resource decodes to the zero value.
func (s *TypedStore[T]) Fetch(ctx context.Context, id string) (versioned.Resource[T], error) {
	res, err := s.raw.Fetch(ctx, id)
	if err != nil {
		return versioned.Resource[T]{}, err
	}

	out := versioned.Resource[T]{ID: id, Token: res.Token}
	if !res.Exists() || len(res.Value) == 0 {
		return out, nil
	}

	out.Value, err = s.codec.Decode(res.Value)
	if err != nil {
		return versioned.Resource[T]{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return out, nil
}

// Write implements versioned.Store.
func (s *TypedStore[T]) Write(ctx context.Context, id string, value T, expectedToken string) (string, error) {
	data, err := s.codec.Encode(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", id, err)
	}
	return s.raw.Write(ctx, id, data, expectedToken)
}

// NewChecklistStore stores checklists in the planner wire format.
func NewChecklistStore(raw versioned.Store[[]byte]) *TypedStore[[]checklist.Entry] {
	return NewTypedStore(raw, Codec[[]checklist.Entry]{
		Encode: checklist.Encode,
		Decode: checklist.Decode,
	})
}

// NewQueueStore stores a queue as its ordered list of task ids.
func NewQueueStore(raw versioned.Store[[]byte]) *TypedStore[queue.State] {
	return NewTypedStore(raw, JSONCodec[queue.State]())
}
