package runtime

import (
	"context"
	"time"

	"roost/internal/config"
	"roost/internal/jobs/checker"

	"github.com/charmbracelet/log"
)

const healthCheckRoutine = "health_check"

// CheckerSettings maps the live configuration onto checker settings.
func CheckerSettings(cfg config.Config) checker.Settings {
	return checker.Settings{
		PageSize:        int(cfg.Checker.Pagination),
		Timeout:         time.Duration(cfg.Checker.Timeout) * time.Second,
		MaxFails:        cfg.Checker.MaxFails,
		ProbeURL:        cfg.Checker.HeadDest,
		Concurrency:     int(cfg.Checker.Concurrency),
		MaxPagesPerRun:  int(cfg.Checker.MaxPagesPerRun),
		ProbesPerSecond: int(cfg.Checker.ProbesPerSecond),
	}
}

// RunHealthCheckOnce builds a checker from the current configuration and runs it once.
func RunHealthCheckOnce(ctx context.Context, store checker.ProxyStore) (bool, error) {
	settings := CheckerSettings(config.GetConfig())
	prober := checker.NewHTTPProber(settings.ProbeURL, settings.Timeout)
	return checker.New(store, prober, settings).RunOnce(ctx)
}

// StartHealthCheckRoutine re-reads the configuration on every pass so settings
// reloads apply without a restart.
func StartHealthCheckRoutine(ctx context.Context, store checker.ProxyStore) {
	if ctx == nil {
		ctx = context.Background()
	}

	runLoop(ctx, healthCheckRoutine, config.CheckIntervalUpdates(), func(ctx context.Context) error {
		found, err := RunHealthCheckOnce(ctx, store)
		if err == nil && !found {
			log.Debug("Health check found no proxies to evaluate")
		}
		return err
	})
}
