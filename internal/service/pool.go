package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"roost/internal/availability"
	"roost/internal/database"
	"roost/internal/domain"
	"roost/internal/support"

	"github.com/charmbracelet/log"
)

var (
	ErrNoValidProxies = errors.New("no valid proxies in request")
	ErrNoValidEntries = errors.New("no valid rate limit entries in request")
	ErrAdminRequired  = errors.New("admin state required")
)

type ProxyStore interface {
	InsertMany(ctx context.Context, proxies []domain.Proxy) (int64, error)
	DeleteMany(ctx context.Context, proxies []domain.Proxy) (int64, error)
	Count(ctx context.Context) (database.ProxyCounts, error)
}

type RateLimitStore interface {
	AddMany(ctx context.Context, entries []domain.RateLimit) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type ProxyQuerier interface {
	GetProxies(ctx context.Context, q availability.Query) ([]domain.Proxy, error)
}

// CountryLocator fills Country on freshly parsed proxies.
type CountryLocator interface {
	Enrich(proxies []domain.Proxy)
}

// RateLimitEntry bans Address for For seconds from the time of the request.
type RateLimitEntry struct {
	Address string
	For     uint64
}

type Stats struct {
	Total       int64 `json:"total"`
	Blacklisted int64 `json:"blacklisted"`
	RateLimits  int64 `json:"ratelimits"`
}

// Pool is the entry point for every proxy pool operation exposed to clients.
type Pool struct {
	proxies    ProxyStore
	rateLimits RateLimitStore
	engine     ProxyQuerier
	locator    CountryLocator
	now        func() time.Time
}

type PoolOption func(*Pool)

func WithLocator(locator CountryLocator) PoolOption {
	return func(p *Pool) {
		p.locator = locator
	}
}

func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPool(proxies ProxyStore, rateLimits RateLimitStore, engine ProxyQuerier, opts ...PoolOption) *Pool {
	pool := &Pool{
		proxies:    proxies,
		rateLimits: rateLimits,
		engine:     engine,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// AddProxies parses addresses, skipping malformed ones, and inserts the rest.
// Endpoints that already exist are ignored. It returns the number inserted.
func (p *Pool) AddProxies(ctx context.Context, addresses []string) (int64, error) {
	proxies, skipped := support.ParseProxyList(addresses)
	if len(proxies) == 0 {
		return 0, ErrNoValidProxies
	}
	if skipped > 0 {
		log.Debug("Skipped malformed proxy addresses", "skipped", skipped)
	}

	if p.locator != nil {
		p.locator.Enrich(proxies)
	}

	inserted, err := p.proxies.InsertMany(ctx, proxies)
	if err != nil {
		return 0, err
	}

	log.Info("Proxies added", "received", len(addresses), "inserted", inserted, "skipped", skipped)
	return inserted, nil
}

func (p *Pool) RemoveProxies(ctx context.Context, addresses []string) (int64, error) {
	proxies, _ := support.ParseProxyList(addresses)
	if len(proxies) == 0 {
		return 0, ErrNoValidProxies
	}

	removed, err := p.proxies.DeleteMany(ctx, proxies)
	if err != nil {
		return 0, err
	}

	log.Info("Proxies removed", "requested", len(proxies), "removed", removed)
	return removed, nil
}

func (p *Pool) GetProxies(ctx context.Context, website string, amount int, minRating *float64) ([]domain.Proxy, error) {
	return p.engine.GetProxies(ctx, availability.Query{
		Website:   strings.TrimSpace(website),
		Amount:    amount,
		MinRating: minRating,
	})
}

// AddRateLimit records bans for website. Only Admin callers may use the global
// website "*". Entries with a malformed address are skipped.
func (p *Pool) AddRateLimit(ctx context.Context, caller domain.ManagerState, website string, entries []RateLimitEntry) (int64, error) {
	website = strings.TrimSpace(website)
	if website == domain.GlobalWebsite && !caller.IsAdmin() {
		return 0, ErrAdminRequired
	}
	if website == "" {
		return 0, ErrNoValidEntries
	}

	now := p.now().Unix()
	rateLimits := make([]domain.RateLimit, 0, len(entries))
	for _, entry := range entries {
		proxy, err := support.ParseProxyAddress(entry.Address)
		if err != nil {
			continue
		}
		rateLimits = append(rateLimits, domain.RateLimit{
			Website: website,
			Address: proxy.Address,
			Port:    proxy.Port,
			Until:   banUntil(now, entry.For),
		})
	}

	if len(rateLimits) == 0 {
		return 0, ErrNoValidEntries
	}

	added, err := p.rateLimits.AddMany(ctx, rateLimits)
	if err != nil {
		return 0, err
	}

	log.Debug("Rate limits recorded", "website", website, "entries", len(rateLimits), "added", added)
	return added, nil
}

// banUntil saturates at math.MaxInt64 so very long bans never wrap into the past.
func banUntil(now int64, seconds uint64) int64 {
	if now < 0 || seconds > uint64(math.MaxInt64-now) {
		return math.MaxInt64
	}
	return now + int64(seconds)
}

func (p *Pool) Stats(ctx context.Context) (Stats, error) {
	counts, err := p.proxies.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("service: count proxies: %w", err)
	}
	rateLimits, err := p.rateLimits.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("service: count rate limits: %w", err)
	}

	return Stats{
		Total:       counts.Total,
		Blacklisted: counts.Blacklisted,
		RateLimits:  rateLimits,
	}, nil
}
