// Package availability answers "N usable proxies for this website" queries
// from the proxy and rate-limit registries.
package availability

import (
	"context"
	"fmt"

	"roost/internal/domain"

	"github.com/charmbracelet/log"
)

const (
	DefaultMaxAttempts   = 5
	DefaultMaxCandidates = 1000
)

type CandidateSource interface {
	TopRated(ctx context.Context, limit int) ([]domain.Proxy, error)
	AboveRating(ctx context.Context, minRating float64, limit int) ([]domain.Proxy, error)
}

type BanSource interface {
	Banned(ctx context.Context, website string, endpoints []domain.Endpoint) (map[domain.Endpoint]struct{}, error)
}

type Query struct {
	Website   string
	Amount    int
	MinRating *float64 // nil selects the best rated proxies
}

type Engine struct {
	candidates    CandidateSource
	bans          BanSource
	maxAttempts   int
	widen         bool
	maxCandidates int
}

type Option func(*Engine)

func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithWidening toggles growing the candidate limit between attempts.
func WithWidening(enabled bool) Option {
	return func(e *Engine) {
		e.widen = enabled
	}
}

func WithMaxCandidates(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxCandidates = n
		}
	}
}

func New(candidates CandidateSource, bans BanSource, opts ...Option) *Engine {
	engine := &Engine{
		candidates:    candidates,
		bans:          bans,
		maxAttempts:   DefaultMaxAttempts,
		widen:         true,
		maxCandidates: DefaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// GetProxies returns at most q.Amount non-blacklisted proxies that are not
// banned for q.Website, best candidates first. A short list is not an error.
func (e *Engine) GetProxies(ctx context.Context, q Query) ([]domain.Proxy, error) {
	if q.Amount <= 0 {
		return []domain.Proxy{}, nil
	}

	var usable []domain.Proxy
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		limit := e.candidateLimit(q.Amount, attempt)

		candidates, err := e.fetchCandidates(ctx, q, limit)
		if err != nil {
			return nil, err
		}

		usable, err = e.withoutBanned(ctx, q.Website, candidates)
		if err != nil {
			return nil, err
		}

		if len(usable) >= q.Amount {
			break
		}
		if len(candidates) < limit {
			// The registry has nothing more to offer.
			break
		}

		log.Debug("Not enough usable proxies, retrying",
			"website", q.Website,
			"attempt", attempt+1,
			"usable", len(usable),
			"wanted", q.Amount)
	}

	if len(usable) > q.Amount {
		usable = usable[:q.Amount]
	}
	if usable == nil {
		usable = []domain.Proxy{}
	}
	return usable, nil
}

// candidateLimit is Amount for the first attempt and doubles per retry when widening.
func (e *Engine) candidateLimit(amount, attempt int) int {
	if !e.widen || attempt == 0 {
		return amount
	}

	limit := amount
	for i := 0; i < attempt && limit < e.maxCandidates; i++ {
		limit <<= 1
	}
	if limit > e.maxCandidates {
		limit = max(e.maxCandidates, amount)
	}
	return limit
}

func (e *Engine) fetchCandidates(ctx context.Context, q Query, limit int) ([]domain.Proxy, error) {
	var (
		candidates []domain.Proxy
		err        error
	)
	if q.MinRating != nil {
		candidates, err = e.candidates.AboveRating(ctx, *q.MinRating, limit)
	} else {
		candidates, err = e.candidates.TopRated(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("availability: fetch candidates: %w", err)
	}
	return candidates, nil
}

func (e *Engine) withoutBanned(ctx context.Context, website string, candidates []domain.Proxy) ([]domain.Proxy, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	endpoints := make([]domain.Endpoint, len(candidates))
	for i := range candidates {
		endpoints[i] = candidates[i].Endpoint()
	}

	banned, err := e.bans.Banned(ctx, website, endpoints)
	if err != nil {
		return nil, fmt.Errorf("availability: lookup bans: %w", err)
	}

	usable := make([]domain.Proxy, 0, len(candidates))
	for i := range candidates {
		if _, isBanned := banned[endpoints[i]]; isBanned {
			continue
		}
		usable = append(usable, candidates[i])
	}
	return usable, nil
}
