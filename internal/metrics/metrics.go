// Package metrics exposes Prometheus collectors for the HTTP boundary and the background routines.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roost"

var (
	requestsTotal     atomic.Pointer[prometheus.CounterVec]
	requestDuration   atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal atomic.Pointer[prometheus.CounterVec]
	probesTotal       atomic.Pointer[prometheus.CounterVec]
	routineDuration   atomic.Pointer[prometheus.HistogramVec]
	rateLimitsSwept   atomic.Pointer[prometheus.Counter]
)

// Init registers all collectors with reg. Record functions are no-ops until Init succeeds.
func Init(reg prometheus.Registerer) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("metrics: register requests_total: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("metrics: register request_duration_seconds: %w", err)
	}

	authFailuresVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Total number of rejected manager tokens",
		},
		[]string{"reason"},
	)
	if err := reg.Register(authFailuresVec); err != nil {
		return fmt.Errorf("metrics: register auth_failures_total: %w", err)
	}

	probesVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checker",
			Name:      "probes_total",
			Help:      "Proxy probes by outcome",
		},
		[]string{"result"},
	)
	if err := reg.Register(probesVec); err != nil {
		return fmt.Errorf("metrics: register probes_total: %w", err)
	}

	routineDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of one background routine run",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"routine", "outcome"},
	)
	if err := reg.Register(routineDurationVec); err != nil {
		return fmt.Errorf("metrics: register run_duration_seconds: %w", err)
	}

	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sweeper",
		Name:      "rate_limits_removed_total",
		Help:      "Expired rate limits removed by the sweeper",
	})
	if err := reg.Register(swept); err != nil {
		return fmt.Errorf("metrics: register rate_limits_removed_total: %w", err)
	}

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authFailuresTotal.Store(authFailuresVec)
	probesTotal.Store(probesVec)
	routineDuration.Store(routineDurationVec)
	rateLimitsSwept.Store(&swept)

	return nil
}

// RecordRequest counts one request and its latency. path should be the route pattern, not the raw URL.
func RecordRequest(method, path, status string, durationSeconds float64) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, status).Inc()
	}
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, status).Observe(durationSeconds)
	}
}

func RecordAuthFailure(reason string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(reason).Inc()
	}
}

func RecordProbe(success bool) {
	counter := probesTotal.Load()
	if counter == nil {
		return
	}
	if success {
		counter.WithLabelValues("success").Inc()
		return
	}
	counter.WithLabelValues("failure").Inc()
}

func RecordRoutine(routine string, err error, durationSeconds float64) {
	histogram := routineDuration.Load()
	if histogram == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	histogram.WithLabelValues(routine, outcome).Observe(durationSeconds)
}

func RecordRateLimitsRemoved(n int64) {
	if counter := rateLimitsSwept.Load(); counter != nil && n > 0 {
		(*counter).Add(float64(n))
	}
}

// Handler serves the text exposition of g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
