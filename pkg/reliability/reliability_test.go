package reliability

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDuplicateTracker_Seen(t *testing.T) {
	tracker := NewDuplicateTracker(time.Hour)
	doc := []byte("<EPaymentInterface/>")

	if tracker.Seen(doc) {
		t.Error("expected first delivery to be new")
	}
	if !tracker.Seen(doc) {
		t.Error("expected second delivery to be a duplicate")
	}
	if tracker.Seen([]byte("<EMandateInterface/>")) {
		t.Error("expected different content to be new")
	}
	if tracker.Len() != 2 {
		t.Errorf("expected 2 remembered documents, got %d", tracker.Len())
	}
}

func TestDuplicateTracker_Window(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tracker := NewDuplicateTracker(time.Hour)
	tracker.now = func() time.Time { return now }

	doc := []byte("notification")
	tracker.Seen(doc)

	now = now.Add(59 * time.Minute)
	if !tracker.Seen(doc) {
		t.Error("expected duplicate inside the window")
	}

	now = now.Add(2 * time.Minute)
	if tracker.Seen(doc) {
		t.Error("expected new delivery after the window")
	}
}

func TestDuplicateTracker_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	tracker := NewDuplicateTracker(time.Minute)
	tracker.now = func() time.Time { return now }

	tracker.Seen([]byte("a"))
	tracker.Seen([]byte("b"))

	now = now.Add(2 * time.Minute)
	tracker.Seen([]byte("c"))

	if tracker.Len() != 1 {
		t.Errorf("expected expired digests to be swept, have %d", tracker.Len())
	}
}

func TestDuplicateTracker_Forget(t *testing.T) {
	tracker := NewDuplicateTracker(time.Hour)
	doc := []byte("notification")

	tracker.Seen(doc)
	tracker.Forget(doc)

	if tracker.Seen(doc) {
		t.Error("expected forgotten document to be new")
	}
}

func TestDuplicateTracker_Concurrent(t *testing.T) {
	tracker := NewDuplicateTracker(time.Hour)
	doc := []byte("notification")

	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !tracker.Seen(doc) {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	if fresh.Load() != 1 {
		t.Errorf("expected exactly one new delivery, got %d", fresh.Load())
	}
}

func TestComputeMessageHash(t *testing.T) {
	hash1 := ComputeMessageHash([]byte("test message content"))
	hash2 := ComputeMessageHash([]byte("test message content"))
	if hash1 != hash2 {
		t.Error("expected same hash for same content")
	}
	if len(hash1) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(hash1))
	}
	if hash1 == ComputeMessageHash([]byte("different content")) {
		t.Error("expected different hash for different content")
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Interval: time.Second, Multiplier: 2, MaxInterval: 5 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	flat := RetryPolicy{Interval: time.Second}
	if got := flat.Delay(5); got != time.Second {
		t.Errorf("expected constant delay without multiplier, got %v", got)
	}
}

func TestPoll_Done(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), RetryPolicy{MaxRetries: 5, Interval: time.Millisecond}, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestPoll_Exhausted(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), RetryPolicy{MaxRetries: 2, Interval: time.Millisecond}, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected first attempt plus 2 retries, got %d", calls)
	}
}

func TestPoll_Error(t *testing.T) {
	boom := errors.New("boom")
	err := Poll(context.Background(), RetryPolicy{MaxRetries: 5, Interval: time.Millisecond}, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Poll(ctx, RetryPolicy{MaxRetries: 5, Interval: time.Hour}, func(context.Context) (bool, error) {
		cancel()
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
