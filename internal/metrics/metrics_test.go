package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	RecordRequest("GET", "/proxies/get", "200", 0.01)
	RecordAuthFailure("invalid_token")
	RecordProbe(true)
	RecordProbe(false)
	RecordRoutine("health_check", nil, 0.5)
	RecordRoutine("rate_limit_sweep", errors.New("boom"), 0.1)
	RecordRateLimitsRemoved(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	for _, want := range []string{
		"roost_http_requests_total",
		"roost_http_request_duration_seconds",
		"roost_http_auth_failures_total",
		"roost_checker_probes_total",
		"roost_jobs_run_duration_seconds",
		"roost_sweeper_rate_limits_removed_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered, have %v", want, names)
		}
	}
}

func TestInitRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(reg); err == nil {
		t.Fatal("expected second Init on the same registry to fail")
	}
}

func TestHandlerServesExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	RecordProbe(true)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `roost_checker_probes_total{result="success"}`) {
		t.Fatalf("exposition missing probe counter:\n%s", body)
	}
}
