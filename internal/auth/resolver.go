package auth

import (
	"context"
	"errors"
	"fmt"

	"roost/internal/database"
	"roost/internal/domain"
	"roost/internal/support"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMissingToken means the request did not carry exactly one Authorization header.
	ErrMissingToken = errors.New("missing authorization token")
	// ErrInvalidToken covers malformed, unknown and disabled tokens alike.
	ErrInvalidToken = errors.New("invalid token")
)

type TokenStore interface {
	State(ctx context.Context, token string) (domain.ManagerState, error)
}

// Resolver maps a cleartext token to an active manager state.
type Resolver struct {
	store TokenStore
	cache StateCache
	group singleflight.Group
}

type Option func(*Resolver)

func WithCache(cache StateCache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

func NewResolver(store TokenStore, opts ...Option) *Resolver {
	resolver := &Resolver{store: store}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Resolve returns Ok or Admin. Disabled and Unknown tokens yield ErrInvalidToken;
// store failures are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.ManagerState, error) {
	if !support.IsValidToken(token) {
		return domain.ManagerUnknown, ErrInvalidToken
	}

	key := support.HashToken(token)

	if r.cache != nil {
		state, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warn("Manager state cache read failed", "error", err)
		} else if ok {
			return activeState(state)
		}
	}

	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.store.State(ctx, token)
	})
	if err != nil {
		if errors.Is(err, database.ErrTokenNotFound) || errors.Is(err, database.ErrInvalidToken) {
			return domain.ManagerUnknown, ErrInvalidToken
		}
		return domain.ManagerUnknown, fmt.Errorf("auth: resolve token: %w", err)
	}
	state := result.(domain.ManagerState)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, state); err != nil {
			log.Warn("Manager state cache write failed", "error", err)
		}
	}

	return activeState(state)
}

// Forget drops a cached state so the next Resolve reads the store.
func (r *Resolver) Forget(ctx context.Context, token string) {
	if r.cache == nil || !support.IsValidToken(token) {
		return
	}
	if err := r.cache.Delete(ctx, support.HashToken(token)); err != nil {
		log.Warn("Manager state cache delete failed", "error", err)
	}
}

func activeState(state domain.ManagerState) (domain.ManagerState, error) {
	if !state.Active() {
		return state, ErrInvalidToken
	}
	return state, nil
}
