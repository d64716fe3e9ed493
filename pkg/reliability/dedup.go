package reliability

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DuplicateTracker remembers document digests for a fixed window. It is safe
// for concurrent use.
type DuplicateTracker struct {
	mu        sync.Mutex
	received  map[string]time.Time
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewDuplicateTracker creates a tracker that reports a document as a
// duplicate for window after it was first seen.
func NewDuplicateTracker(window time.Duration) *DuplicateTracker {
	return &DuplicateTracker{
		received: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// Seen records content and reports whether it was already recorded within
// the window. Checking and recording is a single step, so of two concurrent
// deliveries of one document exactly one is reported as new.
func (t *DuplicateTracker) Seen(content []byte) bool {
	key := ComputeMessageHash(content)

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	if at, ok := t.received[key]; ok && now.Sub(at) < t.window {
		return true
	}
	t.received[key] = now
	return false
}

// Forget removes content so its next delivery is treated as new.
func (t *DuplicateTracker) Forget(content []byte) {
	key := ComputeMessageHash(content)

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.received, key)
}

// Len returns the number of remembered documents.
func (t *DuplicateTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.received)
}

// sweep drops expired digests at most once per window.
func (t *DuplicateTracker) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.window {
		return
	}
	t.lastSweep = now
	for key, at := range t.received {
		if now.Sub(at) >= t.window {
			delete(t.received, key)
		}
	}
}

// ComputeMessageHash computes a hash of message content for duplicate detection
func ComputeMessageHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
