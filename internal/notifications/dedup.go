package notifications

import (
	"sync"
	"time"
)

// DefaultGuardWindow is used when a Deduplicator is constructed with a
// non-positive window. Endpoints that fire on every keystroke-level event
// (chat) use tighter windows; see cmd/api wiring.
const DefaultGuardWindow = 5 * time.Second

// Deduplicator suppresses repeat notification sends for the same dedupe key
// inside a rolling guard window. It is an injectable instance, not a package
// global, so each service (and each test) owns its state.
//
// The original system keyed entries by a floor(now/W) time bucket, which
// guarantees only "one send per (key, bucket)" and lets two requests
// straddling a bucket edge both pass. This implementation uses a rolling
// window anchored to the last accepted send instead, which is strictly
// stronger and matches what the session coordinator does.
//
// Entries self-expire via a timer; memory stays bounded even with no further
// traffic for a key.
type Deduplicator struct {
	mu     sync.Mutex
	window time.Duration
	recent map[string]time.Time
}

func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultGuardWindow
	}
	return &Deduplicator{
		window: window,
		recent: make(map[string]time.Time),
	}
}

// Accept reports whether a send for key may proceed. The first call for a
// key wins and records the claim; calls within the guard window of an
// accepted claim return false. The claim is not released on delivery
// failure: a failed send still counts as sent for dedup purposes.
func (d *Deduplicator) Accept(key string) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if at, ok := d.recent[key]; ok && now.Sub(at) < d.window {
		return false
	}
	d.recent[key] = now

	time.AfterFunc(d.window, func() {
		d.mu.Lock()
		// only drop the entry this timer belongs to
		if at, ok := d.recent[key]; ok && at.Equal(now) {
			delete(d.recent, key)
		}
		d.mu.Unlock()
	})

	return true
}

// Len reports how many keys are currently claimed.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.recent)
}

// Window returns the guard window width.
func (d *Deduplicator) Window() time.Duration {
	return d.window
}
