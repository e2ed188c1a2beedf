package eventbus

import "sync"

// EventHook observes an event and its payload outside the subscriber path.
type EventHook func(event Event, payload any)

// PanicHook observes a subscriber that panicked while handling an event.
type PanicHook func(event Event, payload any, recovered any)

// hooks holds the observers registered with OnPublish, OnDrop and OnPanic.
type hooks struct {
	mu        sync.RWMutex
	onPublish []EventHook
	onDrop    []EventHook
	onPanic   []PanicHook
}

// OnPublish registers fn to run after an event is enqueued.
func (bus *EventBus) OnPublish(fn EventHook) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onPublish = append(bus.hooks.onPublish, fn)
}

// OnDrop registers fn to run when an event is dropped because the buffer is
// full.
func (bus *EventBus) OnDrop(fn EventHook) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onDrop = append(bus.hooks.onDrop, fn)
}

// OnPanic registers fn to run when a subscriber panics. A panicking hook is
// ignored.
func (bus *EventBus) OnPanic(fn PanicHook) {
	bus.hooks.mu.Lock()
	defer bus.hooks.mu.Unlock()
	bus.hooks.onPanic = append(bus.hooks.onPanic, fn)
}

// send enqueues an event without blocking. Used by the typed Publish* methods.
func (bus *EventBus) send(event Event, payload any) {
	if bus == nil {
		return
	}

	select {
	case bus.ch <- envelope{event: event, payload: payload}:
		for _, fn := range snapshot(&bus.hooks.mu, func() []EventHook { return bus.hooks.onPublish }) {
			fn(event, payload)
		}
	default:
		for _, fn := range snapshot(&bus.hooks.mu, func() []EventHook { return bus.hooks.onDrop }) {
			fn(event, payload)
		}
	}
}

func (bus *EventBus) runOnPanic(event Event, payload any, recovered any) {
	for _, fn := range snapshot(&bus.hooks.mu, func() []PanicHook { return bus.hooks.onPanic }) {
		func() {
			defer func() { _ = recover() }()
			fn(event, payload, recovered)
		}()
	}
}

// snapshot copies the slice returned by get while holding mu, so callers run
// the functions without the lock.
func snapshot[F any](mu *sync.RWMutex, get func() []F) []F {
	mu.RLock()
	defer mu.RUnlock()
	return append([]F(nil), get()...)
}
