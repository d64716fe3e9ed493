package reliability

import (
	"context"
	"errors"
	"time"
)

// ErrRetriesExhausted is returned by Poll when the policy allows no further
// attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy spaces out repeated attempts with exponential backoff.
type RetryPolicy struct {
	MaxRetries  int
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  10,
		Interval:    2 * time.Second,
		Multiplier:  1.5,
		MaxInterval: 30 * time.Second,
	}
}

// Delay returns the wait before retry number attempt, counting from 1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := float64(p.Interval)
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		delay *= mult
		if p.MaxInterval > 0 && delay >= float64(p.MaxInterval) {
			return p.MaxInterval
		}
	}
	return time.Duration(delay)
}

// Poll calls fn until it reports done or fails. Between calls it waits as
// the policy prescribes. Poll returns ctx.Err() when the context ends first
// and ErrRetriesExhausted after MaxRetries retries.
func Poll(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (bool, error)) error {
	for attempt := 0; ; attempt++ {
		done, err := fn(ctx)
		if err != nil || done {
			return err
		}
		if attempt >= p.MaxRetries {
			return ErrRetriesExhausted
		}

		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
