// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package reliability provides duplicate detection for inbound notifications
and retry scheduling for status polling.

# Duplicate Detection

The provider repeats a notification until it is acknowledged, so the same
signed document can arrive more than once. A DuplicateTracker remembers the
digest of every accepted document for a window:

	tracker := reliability.NewDuplicateTracker(24 * time.Hour)

	if tracker.Seen(signed) {
	    // Acknowledge without processing again
	}

	// Processing failed; let the next delivery through
	tracker.Forget(signed)

# Retry Policy

Status queries for a transaction the debtor is still completing are
repeated with a growing delay:

	policy := reliability.RetryPolicy{
	    MaxRetries:  10,
	    Interval:    2 * time.Second,
	    Multiplier:  1.5,
	    MaxInterval: 30 * time.Second,
	}
	err := reliability.Poll(ctx, policy, func(ctx context.Context) (bool, error) {
	    res, err := client.PaymentStatus(ctx, id, entranceCode)
	    ...
	})
*/
package reliability
