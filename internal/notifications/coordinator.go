package notifications

import (
	"context"
	"sync"
	"time"
)

// DefaultCoordinatorWindow is the guard window for cross-session claims.
const DefaultCoordinatorWindow = 3 * time.Second

// Coordinator prevents sibling sessions of the same user (multiple open
// tabs, multiple SSE streams) from each raising a notification for the same
// event. The first session to call CanSend claims the event and broadcasts
// the claim; siblings observing the broadcast treat the key as already sent
// for the guard window.
//
// Coordination is best-effort: without a bus the coordinator degrades to
// always-allow rather than failing, and a restart silently resets all state.
type Coordinator struct {
	mu     sync.Mutex
	window time.Duration
	recent map[string]time.Time

	bus         Bus
	unsubscribe func()
}

// NewCoordinator builds a coordinator over bus. A nil bus is accepted and
// yields the degraded always-allow behavior.
func NewCoordinator(bus Bus, window time.Duration) *Coordinator {
	if window <= 0 {
		window = DefaultCoordinatorWindow
	}
	c := &Coordinator{
		window: window,
		recent: make(map[string]time.Time),
		bus:    bus,
	}
	if bus != nil {
		c.unsubscribe = bus.Subscribe(c.onEvent)
	}
	return c
}

// CanSend reports whether this session should raise a notification for a
// message in conversationID. A true result claims the event locally and
// broadcasts the claim to sibling sessions.
func (c *Coordinator) CanSend(conversationID, messageText string) bool {
	if c.bus == nil {
		return true
	}

	key := MessageKey(conversationID, messageText)
	now := time.Now()

	c.mu.Lock()
	if at, ok := c.recent[key]; ok && now.Sub(at) < c.window {
		c.mu.Unlock()
		return false
	}
	c.remember(key, now)
	c.mu.Unlock()

	// publish outside the lock: the bus delivers synchronously and this
	// coordinator also hears its own broadcast
	_ = c.bus.Publish(context.Background(), Event{
		Type:      EventNotificationSent,
		Key:       key,
		Timestamp: now.UnixMilli(),
	})

	return true
}

// onEvent records a sibling session's claim.
func (c *Coordinator) onEvent(ev Event) {
	if ev.Type != EventNotificationSent || ev.Key == "" {
		return
	}
	c.mu.Lock()
	c.remember(ev.Key, time.Now())
	c.mu.Unlock()
}

// remember stores the claim and schedules its expiry. Caller holds c.mu.
func (c *Coordinator) remember(key string, at time.Time) {
	c.recent[key] = at
	time.AfterFunc(c.window, func() {
		c.mu.Lock()
		if got, ok := c.recent[key]; ok && got.Equal(at) {
			delete(c.recent, key)
		}
		c.mu.Unlock()
	})
}

// Close detaches the coordinator from its bus.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}
