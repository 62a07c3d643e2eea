// Package geolite resolves proxy addresses to ISO country codes from a local GeoLite2 Country database.
package geolite

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"roost/internal/domain"

	"github.com/charmbracelet/log"
	"github.com/oschwald/geoip2-golang"
)

// Locator is safe for concurrent use. A nil *Locator resolves nothing.
type Locator struct {
	mu     sync.RWMutex
	reader *geoip2.Reader
}

func Open(path string) (*Locator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geolite: open %s: %w", path, err)
	}
	return &Locator{reader: reader}, nil
}

// OpenOptional returns nil when path is empty or unreadable; lookups are then skipped.
func OpenOptional(path string) *Locator {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	locator, err := Open(path)
	if err != nil {
		log.Warn("GeoLite database unavailable, country lookups disabled", "path", path, "error", err)
		return nil
	}
	log.Info("GeoLite country database loaded", "path", path)
	return locator
}

// CountryCode returns the ISO code for an IP literal, or "" when unknown.
// Hostnames are not resolved.
func (l *Locator) CountryCode(address string) string {
	if l == nil {
		return ""
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return ""
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.reader == nil {
		return ""
	}

	record, err := l.reader.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// Enrich fills Country on proxies that do not have one yet.
func (l *Locator) Enrich(proxies []domain.Proxy) {
	if l == nil {
		return
	}
	for i := range proxies {
		if proxies[i].Country == "" {
			proxies[i].Country = l.CountryCode(proxies[i].Address)
		}
	}
}

func (l *Locator) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reader == nil {
		return nil
	}
	err := l.reader.Close()
	l.reader = nil
	return err
}
