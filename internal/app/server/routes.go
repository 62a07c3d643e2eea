package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"roost/internal/api/dto"
	"roost/internal/auth"
	"roost/internal/domain"
	"roost/internal/metrics"
	"roost/internal/service"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

type ManagerStore interface {
	Create(ctx context.Context, state domain.ManagerState) (string, error)
	UpdateState(ctx context.Context, token string, state domain.ManagerState) error
}

type Deps struct {
	Pool     *service.Pool
	Managers ManagerStore
	Resolver *auth.Resolver
	Gatherer prometheus.Gatherer
	// RequestsPerSecond <= 0 disables per-token throttling.
	RequestsPerSecond float64
	Burst             int
}

type Server struct {
	pool      *service.Pool
	managers  ManagerStore
	resolver  *auth.Resolver
	gatherer  prometheus.Gatherer
	throttle  *tokenThrottle
	validator *validator.Validate
}

func New(deps Deps) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		pool:      deps.Pool,
		managers:  deps.Managers,
		resolver:  deps.Resolver,
		gatherer:  gatherer,
		throttle:  newTokenThrottle(deps.RequestsPerSecond, deps.Burst),
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handler builds the routed handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()

	router.Handle("POST /proxies/add", s.requireAdmin(http.HandlerFunc(s.addProxies)))
	router.Handle("GET /proxies/get", s.requireManager(http.HandlerFunc(s.getProxies)))
	router.Handle("POST /proxies/remove", s.requireAdmin(http.HandlerFunc(s.removeProxies)))
	router.Handle("GET /proxies/stats", s.requireManager(http.HandlerFunc(s.proxyStats)))

	router.Handle("POST /ratelimited/add", s.requireManager(http.HandlerFunc(s.addRateLimited)))

	router.Handle("POST /managers/add", s.requireAdmin(http.HandlerFunc(s.addManager)))
	router.Handle("PATCH /managers/modify", s.requireAdmin(http.HandlerFunc(s.modifyManager)))

	router.HandleFunc("GET /healthz", healthz)
	router.Handle("GET /metrics", metrics.Handler(s.gatherer))
	router.HandleFunc("/", notFound)

	return requestID(accessLog(router))
}

// ListenAndServe serves on port until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting roost on port :%d", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.Status{Code: status, Msg: msg})
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeStatus(w, http.StatusBadRequest, "Bad request")
		return false
	}
	return s.validate(w, dst)
}

func (s *Server) validate(w http.ResponseWriter, dst any) bool {
	if err := s.validator.Struct(dst); err != nil {
		log.Debug("Request validation failed", "error", err)
		writeStatus(w, http.StatusBadRequest, "Bad request")
		return false
	}
	return true
}
