package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roost/internal/domain"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// RateLimitStore is the slice of the rate-limit registry the sweeper needs.
type RateLimitStore interface {
	Page(ctx context.Context, afterID uint64, size int) ([]domain.RateLimit, error)
	DeleteMany(ctx context.Context, entries []domain.RateLimit) (int64, error)
}

type SweeperSettings struct {
	PageSize    int
	Concurrency int
}

type Sweeper struct {
	store    RateLimitStore
	settings SweeperSettings
	now      func() time.Time
}

func NewSweeper(store RateLimitStore, settings SweeperSettings) *Sweeper {
	if settings.PageSize <= 0 {
		settings.PageSize = 100
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	return &Sweeper{store: store, settings: settings, now: time.Now}
}

// RunOnce walks every rate limit page, collects entries whose ban has ended and
// removes them in a single delete. It returns the number of rows removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	now := s.now()

	var (
		cursor  uint64
		expired []domain.RateLimit
		scanned int
	)

	for {
		page, err := s.store.Page(ctx, cursor, s.settings.PageSize)
		if err != nil {
			return 0, fmt.Errorf("maintenance: fetch rate limits after %d: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].ID
		scanned += len(page)

		matched, err := s.expiredIn(ctx, page, now)
		if err != nil {
			return 0, err
		}
		expired = append(expired, matched...)
	}

	if len(expired) == 0 {
		log.Debug("Rate limit sweep found nothing to remove", "scanned", scanned)
		return 0, nil
	}

	removed, err := s.store.DeleteMany(ctx, expired)
	if err != nil {
		return 0, fmt.Errorf("maintenance: delete expired rate limits: %w", err)
	}

	log.Info("Rate limit sweep completed",
		"scanned", scanned,
		"removed", removed,
		"duration", time.Since(start).Round(time.Millisecond))

	return removed, nil
}

func (s *Sweeper) expiredIn(ctx context.Context, page []domain.RateLimit, now time.Time) ([]domain.RateLimit, error) {
	var (
		mu      sync.Mutex
		matched []domain.RateLimit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.Concurrency)

	for _, entry := range page {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if !entry.Expired(now) {
				return nil
			}
			mu.Lock()
			matched = append(matched, entry)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return matched, nil
}
