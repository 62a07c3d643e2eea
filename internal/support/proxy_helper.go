package support

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"roost/internal/domain"
)

var ErrMalformedProxy = errors.New("malformed proxy address")

var supportedSchemas = map[string]struct{}{
	"http":   {},
	"https":  {},
	"socks5": {},
}

func IsSupportedSchema(schema string) bool {
	_, ok := supportedSchemas[strings.ToLower(schema)]
	return ok
}

// ParseProxyAddress parses scheme://host:port with an optional trailing slash.
func ParseProxyAddress(raw string) (domain.Proxy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.Contains(raw, "://") {
		return domain.Proxy{}, fmt.Errorf("%w: %q", ErrMalformedProxy, raw)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return domain.Proxy{}, fmt.Errorf("%w: %q: %v", ErrMalformedProxy, raw, err)
	}

	schema := strings.ToLower(parsed.Scheme)
	if !IsSupportedSchema(schema) {
		return domain.Proxy{}, fmt.Errorf("%w: unsupported schema %q", ErrMalformedProxy, parsed.Scheme)
	}

	if parsed.User != nil || parsed.RawQuery != "" || parsed.Fragment != "" {
		return domain.Proxy{}, fmt.Errorf("%w: %q", ErrMalformedProxy, raw)
	}
	if parsed.Path != "" && parsed.Path != "/" {
		return domain.Proxy{}, fmt.Errorf("%w: unexpected path in %q", ErrMalformedProxy, raw)
	}

	host, portRaw, err := net.SplitHostPort(parsed.Host)
	if err != nil || host == "" {
		return domain.Proxy{}, fmt.Errorf("%w: %q", ErrMalformedProxy, raw)
	}

	port, err := strconv.Atoi(portRaw)
	if err != nil || port < 1 || port > 65535 {
		return domain.Proxy{}, fmt.Errorf("%w: invalid port in %q", ErrMalformedProxy, raw)
	}

	return domain.Proxy{
		Schema:  schema,
		Address: strings.ToLower(host),
		Port:    uint16(port),
	}, nil
}

// ParseProxyList keeps every parseable entry and counts the skipped ones.
func ParseProxyList(raw []string) ([]domain.Proxy, int) {
	proxies := make([]domain.Proxy, 0, len(raw))
	skipped := 0

	for _, entry := range raw {
		proxy, err := ParseProxyAddress(entry)
		if err != nil {
			skipped++
			continue
		}
		proxies = append(proxies, proxy)
	}

	return proxies, skipped
}
