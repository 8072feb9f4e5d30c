package transfer

import (
	"context"
	"time"
)

// FixedIntervalPacer applies a fixed delay after every item plus a longer
// rest after every restEvery items. It is a static backpressure policy: it
// does not react to observed throttling signals.
type FixedIntervalPacer struct {
	itemDelay    time.Duration
	restEvery    int
	restDuration time.Duration
}

// NewFixedIntervalPacer creates a pacer with the given delays. restEvery
// values below 1 disable the rest interval.
func NewFixedIntervalPacer(itemDelay time.Duration, restEvery int, restDuration time.Duration) *FixedIntervalPacer {
	return &FixedIntervalPacer{
		itemDelay:    itemDelay,
		restEvery:    restEvery,
		restDuration: restDuration,
	}
}

// AfterItem blocks for the per-item delay, and for the rest interval when
// the item at index completes a full group of restEvery items
func (p *FixedIntervalPacer) AfterItem(ctx context.Context, index int) error {
	if err := sleepContext(ctx, p.itemDelay); err != nil {
		return err
	}
	if p.restEvery > 0 && (index+1)%p.restEvery == 0 {
		return sleepContext(ctx, p.restDuration)
	}
	return nil
}

// NopPacer applies no delay; used by tests and dry runs
type NopPacer struct{}

// AfterItem returns immediately
func (NopPacer) AfterItem(ctx context.Context, index int) error {
	return ctx.Err()
}

// sleepContext sleeps for d unless ctx is cancelled first
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
