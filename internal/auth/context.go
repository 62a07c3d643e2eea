package auth

import (
	"context"
	"net/http"
	"strings"

	"roost/internal/domain"
)

type contextKey struct{}

func WithState(ctx context.Context, state domain.ManagerState) context.Context {
	return context.WithValue(ctx, contextKey{}, state)
}

// StateFromContext returns the state stored by the auth middleware, or Unknown.
func StateFromContext(ctx context.Context) domain.ManagerState {
	state, ok := ctx.Value(contextKey{}).(domain.ManagerState)
	if !ok {
		return domain.ManagerUnknown
	}
	return state
}

// TokenFromRequest requires exactly one Authorization header. A "Bearer " prefix is accepted.
func TokenFromRequest(r *http.Request) (string, error) {
	values := r.Header.Values("Authorization")
	if len(values) != 1 {
		return "", ErrMissingToken
	}

	token := strings.TrimSpace(values[0])
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")), nil
}
