package checker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"roost/internal/domain"

	"golang.org/x/net/proxy"
)

// HTTPProber sends a HEAD request to URL through the proxy under test.
// Any transport error or non-2xx status is a failed probe.
type HTTPProber struct {
	URL     string
	Timeout time.Duration
}

func NewHTTPProber(probeURL string, timeout time.Duration) *HTTPProber {
	return &HTTPProber{URL: probeURL, Timeout: timeout}
}

func (p *HTTPProber) Probe(ctx context.Context, proxyToCheck domain.Proxy) (time.Duration, error) {
	transport, err := createTransport(proxyToCheck, p.Timeout)
	if err != nil {
		return 0, err
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   p.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("checker: build probe request: %w", err)
	}
	req.Header.Set("Connection", "close")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return elapsed, fmt.Errorf("checker: probe returned HTTP %d", resp.StatusCode)
	}

	return elapsed, nil
}

func createTransport(proxyToCheck domain.Proxy, timeout time.Duration) (*http.Transport, error) {
	dialer := &net.Dialer{Timeout: timeout}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
		IdleConnTimeout:       0,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch proxyToCheck.Schema {
	case "http", "https":
		transport.Proxy = http.ProxyURL(&url.URL{
			Scheme: proxyToCheck.Schema,
			Host:   proxyToCheck.GetFullProxy(),
		})

	case "socks5":
		socksDialer, err := proxy.SOCKS5("tcp", proxyToCheck.GetFullProxy(), nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("checker: create socks5 dialer: %w", err)
		}
		if contextDialer, ok := socksDialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return socksDialer.Dial(network, addr)
			}
		}

	default:
		return nil, fmt.Errorf("checker: unsupported proxy schema %q", proxyToCheck.Schema)
	}

	return transport, nil
}
