package eventbus

import (
	"context"
	"sync"
)

// Event names a published event.
type Event string

const (
	EventListCommitted         Event = "list.committed"
	EventListConflicted        Event = "list.conflicted"
	EventListRolledBack        Event = "list.rolled-back"
	EventNotificationPublished Event = "notification.published"
	EventQueuePruned           Event = "queue.pruned"
	EventQueueRejected         Event = "queue.rejected"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers events asynchronously from a buffered channel. Publishing
// never blocks; when the buffer is full the event is dropped and OnDrop hooks
// fire. Subscribers run on the dispatch goroutine started by Start.
//
// A nil *EventBus is valid and discards everything published to it.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size.
func New(buffer int) *EventBus {
	return &EventBus{
		ch:   make(chan envelope, max(buffer, 1)),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is cancelled.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

// Drain dispatches buffered events on the calling goroutine until the buffer
// is empty, including events published by the handlers it runs. Call it
// after Start has returned so nothing published before shutdown is lost.
func (bus *EventBus) Drain() {
	if bus == nil {
		return
	}
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		default:
			return
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	for _, fn := range snapshot(&bus.mu, func() []func(any) { return bus.subs[env.event] }) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subs[event] = append(bus.subs[event], fn)
}

// PublishListCommitted publishes a list.committed event.
func (bus *EventBus) PublishListCommitted(p ListCommittedPayload) {
	bus.send(EventListCommitted, p)
}

// SubscribeListCommitted registers fn for list.committed events.
func (bus *EventBus) SubscribeListCommitted(fn func(ListCommittedPayload)) {
	bus.subscribe(EventListCommitted, func(p any) { fn(p.(ListCommittedPayload)) })
}

// PublishListConflicted publishes a list.conflicted event.
func (bus *EventBus) PublishListConflicted(p ListConflictedPayload) {
	bus.send(EventListConflicted, p)
}

// SubscribeListConflicted registers fn for list.conflicted events.
func (bus *EventBus) SubscribeListConflicted(fn func(ListConflictedPayload)) {
	bus.subscribe(EventListConflicted, func(p any) { fn(p.(ListConflictedPayload)) })
}

// PublishListRolledBack publishes a list.rolled-back event.
func (bus *EventBus) PublishListRolledBack(p ListRolledBackPayload) {
	bus.send(EventListRolledBack, p)
}

// SubscribeListRolledBack registers fn for list.rolled-back events.
func (bus *EventBus) SubscribeListRolledBack(fn func(ListRolledBackPayload)) {
	bus.subscribe(EventListRolledBack, func(p any) { fn(p.(ListRolledBackPayload)) })
}

// PublishNotificationPublished publishes a notification.published event.
func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

// SubscribeNotificationPublished registers fn for notification.published events.
func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) {
	bus.subscribe(EventNotificationPublished, func(p any) { fn(p.(NotificationPublishedPayload)) })
}

// PublishQueuePruned publishes a queue.pruned event.
func (bus *EventBus) PublishQueuePruned(p QueuePrunedPayload) {
	bus.send(EventQueuePruned, p)
}

// SubscribeQueuePruned registers fn for queue.pruned events.
func (bus *EventBus) SubscribeQueuePruned(fn func(QueuePrunedPayload)) {
	bus.subscribe(EventQueuePruned, func(p any) { fn(p.(QueuePrunedPayload)) })
}

// PublishQueueRejected publishes a queue.rejected event.
func (bus *EventBus) PublishQueueRejected(p QueueRejectedPayload) {
	bus.send(EventQueueRejected, p)
}

// SubscribeQueueRejected registers fn for queue.rejected events.
func (bus *EventBus) SubscribeQueueRejected(fn func(QueueRejectedPayload)) {
	bus.subscribe(EventQueueRejected, func(p any) { fn(p.(QueueRejectedPayload)) })
}
