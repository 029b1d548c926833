package notifications

import (
	"context"
	"sync"
)

// EventNotificationSent is broadcast when a session claims a notification
// event so that sibling sessions suppress their own copy.
const EventNotificationSent = "notification-sent"

// Event is the cross-session coordination message. It is JSON-serializable
// so a transport-backed bus (SSE, websocket relay) can carry it unchanged.
type Event struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
}

// Bus is the publish/subscribe channel session coordinators talk over. The
// concrete transport is an implementation detail: in-process fan-out here, a
// browser BroadcastChannel relay or a no-op elsewhere.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers fn for every published event and returns an
	// unsubscribe func.
	Subscribe(fn func(ev Event)) func()
}

// NopBus discards events. Coordinators built on it degrade to always-allow.
type NopBus struct{}

var _ Bus = (*NopBus)(nil)

func (NopBus) Publish(ctx context.Context, ev Event) error { return nil }

func (NopBus) Subscribe(fn func(ev Event)) func() { return func() {} }

// InMemoryBus fans events out to every subscriber in the same process.
// Delivery is synchronous; the publishing coordinator must not hold its own
// lock while publishing.
type InMemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(ev Event)
}

var _ Bus = (*InMemoryBus)(nil)

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[int]func(ev Event))}
}

func (b *InMemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	fns := make([]func(ev Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *InMemoryBus) Subscribe(fn func(ev Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
