package server

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"roost/internal/auth"
	"roost/internal/metrics"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader  = "X-Request-ID"
	msgInvalidToken  = "Invalid token"
	msgStoreFailure  = "Something went wrong"
	msgAdminRequired = "You must be an admin to perform this action."
)

// requireManager resolves the Authorization token and stores the manager state
// in the request context. Missing or duplicated headers are a bad request.
func (s *Server) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			metrics.RecordAuthFailure("missing_token")
			writeStatus(w, http.StatusBadRequest, msgInvalidToken)
			return
		}

		state, err := s.resolver.Resolve(r.Context(), token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			metrics.RecordAuthFailure("invalid_token")
			writeStatus(w, http.StatusUnauthorized, msgInvalidToken)
			return
		case err != nil:
			log.Error("Token lookup failed", "error", err)
			writeStatus(w, http.StatusInternalServerError, msgStoreFailure)
			return
		}

		if !s.throttle.allow(token) {
			writeStatus(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithState(r.Context(), state)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return s.requireManager(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.StateFromContext(r.Context()).IsAdmin() {
			metrics.RecordAuthFailure("admin_required")
			writeStatus(w, http.StatusUnauthorized, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(r.Method, route, strconv.Itoa(rec.status), elapsed.Seconds())
		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed.Round(time.Microsecond),
			"request_id", w.Header().Get(requestIDHeader))
	})
}

// tokenThrottle keeps one token bucket per manager token.
type tokenThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newTokenThrottle(perSecond float64, burst int) *tokenThrottle {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenThrottle{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *tokenThrottle) allow(token string) bool {
	if t == nil {
		return true
	}

	t.mu.Lock()
	limiter, ok := t.limiters[token]
	if !ok {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[token] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}
