package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"roost/internal/auth"
	"roost/internal/availability"
	"roost/internal/config"
	"roost/internal/database"
	"roost/internal/geolite"
	"roost/internal/jobs/runtime"
	"roost/internal/metrics"
	"roost/internal/service"
	"roost/internal/support"
)

// Runtime holds every long-lived component of a running instance.
type Runtime struct {
	DB         *gorm.DB
	Proxies    *database.ProxyRegistry
	RateLimits *database.RateLimitRegistry
	Managers   *database.ManagerStore
	Pool       *service.Pool
	Resolver   *auth.Resolver
	Registry   *prometheus.Registry

	locator *geolite.Locator
}

// Setup loads settings from settingsPath and opens the store. The caller must Close the returned Runtime.
func Setup(settingsPath string) (*Runtime, error) {
	if err := config.ReadSettings(settingsPath); err != nil {
		return nil, err
	}
	cfg := config.GetConfig()

	dialector, err := database.DialectorFor(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	db, err := database.SetupDB(database.WithDialector(dialector))
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Init(registry); err != nil {
		return nil, errors.Join(err, database.CloseDB(db))
	}

	rt := &Runtime{
		DB:         db,
		Proxies:    database.NewProxyRegistry(db),
		RateLimits: database.NewRateLimitRegistry(db),
		Managers:   database.NewManagerStore(db),
		Registry:   registry,
		locator:    geolite.OpenOptional(support.GetEnv("GEOLITE_DB_PATH", "")),
	}

	engine := availability.New(rt.Proxies, rt.RateLimits,
		availability.WithMaxAttempts(int(cfg.Availability.MaxAttempts)),
		availability.WithWidening(cfg.Availability.WidenCandidates),
		availability.WithMaxCandidates(int(cfg.Availability.MaxCandidates)),
	)
	rt.Pool = service.NewPool(rt.Proxies, rt.RateLimits, engine, service.WithLocator(rt.locator))
	rt.Resolver = auth.NewResolver(rt.Managers, resolverOptions()...)

	counts, err := rt.Proxies.Count(context.Background())
	if err != nil {
		log.Warn("Could not count stored proxies", "error", err)
	} else {
		log.Info("Proxy pool loaded", "proxies", counts.Total, "blacklisted", counts.Blacklisted)
	}

	return rt, nil
}

func resolverOptions() []auth.Option {
	if !support.RedisConfigured() {
		return nil
	}

	client, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, token lookups will hit the database", "error", err)
		return nil
	}

	ttl := support.GetEnvDuration("AUTH_CACHE_TTL", auth.DefaultCacheTTL)
	log.Info("Token cache enabled", "ttl", ttl)
	return []auth.Option{auth.WithCache(auth.NewRedisCache(client, ttl))}
}

// StartRoutines launches the health check and rate-limit sweep loops. Both stop with ctx.
func (rt *Runtime) StartRoutines(ctx context.Context) {
	go runtime.StartHealthCheckRoutine(ctx, rt.Proxies)
	go runtime.StartRateLimitSweepRoutine(ctx, rt.RateLimits)
}

func (rt *Runtime) Close() error {
	var errs []error
	if err := rt.locator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close geolite: %w", err))
	}
	if err := support.CloseRedisClient(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if err := database.CloseDB(rt.DB); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
