// Package testbus wraps a running EventBus and records everything published
// to it, for assertions in tests.
package testbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
)

// publishWait bounds how long AssertPublished waits for an event raised on
// the dispatch goroutine.
const publishWait = 500 * time.Millisecond

// RecordedEvent holds a captured event name and payload.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus is a started EventBus that records every event it accepts.
type Bus struct {
	*eventbus.EventBus

	mu     sync.Mutex
	events []RecordedEvent
}

// New starts a bus for the duration of t. Recording uses the OnPublish hook,
// so events are captured when enqueued, including those published by
// subscribers.
func New(t *testing.T) *Bus {
	t.Helper()

	tb := &Bus{EventBus: eventbus.New(64)}
	tb.OnPublish(func(event eventbus.Event, payload any) {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.events = append(tb.events, RecordedEvent{Event: event, Payload: payload})
	})

	ctx, cancel := context.WithCancel(context.Background())
	go tb.Start(ctx)
	t.Cleanup(cancel)

	return tb
}

// Events returns a copy of all recorded events in publish order.
func (tb *Bus) Events() []RecordedEvent {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return append([]RecordedEvent(nil), tb.events...)
}

// Count returns how many events named event were recorded.
func (tb *Bus) Count(event eventbus.Event) int {
	n := 0
	for _, e := range tb.Events() {
		if e.Event == event {
			n++
		}
	}
	return n
}

// AssertPublished waits briefly for event to be recorded.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) bool {
	t.Helper()
	return assert.Eventually(t, func() bool { return tb.Count(event) > 0 },
		publishWait, 5*time.Millisecond, "expected event %q to be published", event)
}

// AssertNotPublished waits for wait and then asserts event was never
// recorded.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event, wait time.Duration) bool {
	t.Helper()
	return assert.Never(t, func() bool { return tb.Count(event) > 0 },
		wait, 5*time.Millisecond, "expected event %q to not be published", event)
}

// Payloads returns the recorded payloads of type P in publish order.
func Payloads[P any](tb *Bus) []P {
	var out []P
	for _, e := range tb.Events() {
		if p, ok := e.Payload.(P); ok {
			out = append(out, p)
		}
	}
	return out
}
