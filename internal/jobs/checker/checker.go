package checker

import (
	"context"
	"fmt"
	"time"

	"roost/internal/domain"

	"github.com/charmbracelet/log"
	"go.uber.org/ratelimit"
)

// ProxyStore is the slice of the proxy registry the checker reads and writes.
type ProxyStore interface {
	Page(ctx context.Context, afterID uint64, size int) ([]domain.Proxy, error)
	UpdateMany(ctx context.Context, proxies []domain.Proxy) error
}

// Prober performs one reachability check through proxy and reports how long it took.
type Prober interface {
	Probe(ctx context.Context, proxy domain.Proxy) (time.Duration, error)
}

type Settings struct {
	PageSize        int
	Timeout         time.Duration
	MaxFails        uint32
	ProbeURL        string
	Concurrency     int
	MaxPagesPerRun  int // 0 walks until an empty page
	ProbesPerSecond int // 0 disables pacing
}

type Checker struct {
	store    ProxyStore
	prober   Prober
	settings Settings
	limiter  ratelimit.Limiter
}

func New(store ProxyStore, prober Prober, settings Settings) *Checker {
	if settings.PageSize <= 0 {
		settings.PageSize = 100
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}

	limiter := ratelimit.NewUnlimited()
	if settings.ProbesPerSecond > 0 {
		limiter = ratelimit.New(settings.ProbesPerSecond)
	}

	return &Checker{
		store:    store,
		prober:   prober,
		settings: settings,
		limiter:  limiter,
	}
}

// RunOnce evaluates up to MaxPagesPerRun pages of non-blacklisted proxies and
// persists the new rating, fails and blacklist state. It reports whether any
// proxy was found. Probe failures are absorbed; store failures end the run.
func (c *Checker) RunOnce(ctx context.Context) (bool, error) {
	var (
		cursor uint64
		found  bool
	)

	for pages := 0; c.settings.MaxPagesPerRun <= 0 || pages < c.settings.MaxPagesPerRun; pages++ {
		page, err := c.store.Page(ctx, cursor, c.settings.PageSize)
		if err != nil {
			return found, fmt.Errorf("checker: fetch page after %d: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}
		found = true
		cursor = page[len(page)-1].ID

		started := time.Now()
		outcomes := c.probePage(ctx, page)

		// A cancelled run would otherwise count every pending probe as a failure.
		if err := ctx.Err(); err != nil {
			return found, err
		}

		updated, healthy := applyOutcomes(page, outcomes, c.settings.Timeout, c.settings.MaxFails)
		if err := c.store.UpdateMany(ctx, updated); err != nil {
			return found, fmt.Errorf("checker: persist page: %w", err)
		}

		log.Info("Health check page evaluated",
			"updated", len(updated),
			"healthy", healthy,
			"duration", time.Since(started).Round(time.Millisecond))
	}

	return found, nil
}
