package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roost/internal/domain"
	"roost/internal/support"
)

const probeTarget = "http://probe.roost.invalid/"

// newForwardProxy answers absolute-form requests the way an HTTP forward proxy would.
func newForwardProxy(t *testing.T, status int) (domain.Proxy, *int) {
	t.Helper()

	var seen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Host == "probe.roost.invalid" {
			seen++
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	proxy, err := support.ParseProxyAddress(srv.URL)
	if err != nil {
		t.Fatalf("parse test proxy address: %v", err)
	}
	return proxy, &seen
}

func TestHTTPProberSuccess(t *testing.T) {
	proxy, seen := newForwardProxy(t, http.StatusNoContent)

	elapsed, err := NewHTTPProber(probeTarget, 2*time.Second).Probe(context.Background(), proxy)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if elapsed <= 0 {
		t.Fatalf("elapsed = %v, want positive", elapsed)
	}
	if *seen != 1 {
		t.Fatalf("proxy saw %d HEAD requests for the probe target, want 1", *seen)
	}
}

func TestHTTPProberRejectsNon2xx(t *testing.T) {
	proxy, _ := newForwardProxy(t, http.StatusBadGateway)

	_, err := NewHTTPProber(probeTarget, 2*time.Second).Probe(context.Background(), proxy)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("Probe error = %v, want HTTP 502 failure", err)
	}
}

func TestHTTPProberUnreachableProxy(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	proxy, err := support.ParseProxyAddress(srv.URL)
	if err != nil {
		t.Fatalf("parse test proxy address: %v", err)
	}
	srv.Close()

	if _, err := NewHTTPProber(probeTarget, time.Second).Probe(context.Background(), proxy); err == nil {
		t.Fatal("expected probe through a closed proxy to fail")
	}
}

func TestCreateTransportBySchema(t *testing.T) {
	for _, schema := range []string{"http", "https", "socks5"} {
		proxy := domain.Proxy{Schema: schema, Address: "127.0.0.1", Port: 1080}
		transport, err := createTransport(proxy, time.Second)
		if err != nil {
			t.Fatalf("createTransport(%s) returned error: %v", schema, err)
		}
		if schema == "socks5" && transport.Proxy != nil {
			t.Fatal("socks5 transport must dial through the proxy instead of using Proxy")
		}
		if schema != "socks5" && transport.Proxy == nil {
			t.Fatalf("%s transport has no Proxy func", schema)
		}
	}

	if _, err := createTransport(domain.Proxy{Schema: "gopher", Address: "127.0.0.1", Port: 70}, time.Second); err == nil {
		t.Fatal("expected unsupported schema to fail")
	}
}
