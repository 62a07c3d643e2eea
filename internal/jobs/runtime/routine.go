package runtime

import (
	"context"
	"time"

	"roost/internal/metrics"

	"github.com/charmbracelet/log"
)

// runFunc performs one pass of a routine.
type runFunc func(ctx context.Context) error

// runLoop runs fn immediately and then on every tick. Interval changes arrive
// on updates and reset the ticker; the loop stops when ctx is cancelled.
func runLoop(ctx context.Context, name string, updates <-chan time.Duration, fn runFunc) {
	currentInterval := time.Minute
	select {
	case initial := <-updates:
		if initial > 0 {
			currentInterval = initial
		}
	default:
	}

	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	runOnce(ctx, name, fn)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, name, fn)
		case newInterval := <-updates:
			if newInterval <= 0 || newInterval == currentInterval {
				continue
			}
			drainTicker(ticker)
			currentInterval = newInterval
			ticker.Reset(currentInterval)
			log.Debug("Routine interval updated", "routine", name, "interval", currentInterval)
		}
	}
}

func runOnce(ctx context.Context, name string, fn runFunc) {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordRoutine(name, err, time.Since(start).Seconds())

	if err != nil && ctx.Err() == nil {
		log.Error("Routine run failed", "routine", name, "error", err)
	}
}

func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}
