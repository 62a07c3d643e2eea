package checker

import (
	"context"
	"time"

	"roost/internal/domain"
	"roost/internal/metrics"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

type probeOutcome struct {
	ok      bool
	elapsed time.Duration
}

// probePage runs one probe per proxy with at most Concurrency in flight and
// returns once every probe has finished. outcomes[i] belongs to page[i].
func (c *Checker) probePage(ctx context.Context, page []domain.Proxy) []probeOutcome {
	outcomes := make([]probeOutcome, len(page))

	var g errgroup.Group
	g.SetLimit(c.settings.Concurrency)

	for i := range page {
		proxy := page[i]
		slot := &outcomes[i]

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c.limiter.Take()

			elapsed, err := c.prober.Probe(ctx, proxy)
			metrics.RecordProbe(err == nil)
			if err != nil {
				log.Debug("Proxy probe failed", "proxy", proxy.URL(), "error", err)
				return nil
			}

			slot.ok = true
			slot.elapsed = elapsed
			return nil
		})
	}

	// Probe failures are recorded in outcomes; every goroutine returns nil.
	_ = g.Wait()
	return outcomes
}
