package runtime

import (
	"context"

	"roost/internal/config"
	"roost/internal/jobs/maintenance"
	"roost/internal/metrics"
)

const rateLimitSweepRoutine = "rate_limit_sweep"

func SweeperSettings(cfg config.Config) maintenance.SweeperSettings {
	return maintenance.SweeperSettings{
		PageSize:    int(cfg.Sweeper.Pagination),
		Concurrency: int(cfg.Sweeper.Concurrency),
	}
}

func RunRateLimitSweepOnce(ctx context.Context, store maintenance.RateLimitStore) (int64, error) {
	removed, err := maintenance.NewSweeper(store, SweeperSettings(config.GetConfig())).RunOnce(ctx)
	metrics.RecordRateLimitsRemoved(removed)
	return removed, err
}

func StartRateLimitSweepRoutine(ctx context.Context, store maintenance.RateLimitStore) {
	if ctx == nil {
		ctx = context.Background()
	}

	runLoop(ctx, rateLimitSweepRoutine, config.SweepIntervalUpdates(), func(ctx context.Context) error {
		_, err := RunRateLimitSweepOnce(ctx, store)
		return err
	})
}
