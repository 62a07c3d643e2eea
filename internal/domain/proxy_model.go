package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const MaxRating = 10.0

type Proxy struct {
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"-"`
	Schema      string  `gorm:"column:schema;size:16;not null;default:'http'" json:"schema"`
	Address     string  `gorm:"size:255;not null;uniqueIndex:idx_proxy_endpoint,priority:1" json:"address"`
	Port        uint16  `gorm:"not null;uniqueIndex:idx_proxy_endpoint,priority:2" json:"port"`
	Rating      float64 `gorm:"not null;default:0;index" json:"rating"`
	Fails       uint32  `gorm:"not null;default:0" json:"fails"`
	Blacklisted bool    `gorm:"not null;default:false;index" json:"blacklisted"`

	Country string `gorm:"size:2;not null;default:''" json:"country,omitempty"` // ISO code, empty when unknown

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Endpoint identifies a proxy independent of its record id.
type Endpoint struct {
	Address string
	Port    uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(int(e.Port)))
}

func (proxy *Proxy) Endpoint() Endpoint {
	return Endpoint{Address: proxy.Address, Port: proxy.Port}
}

func (proxy *Proxy) GetFullProxy() string {
	return proxy.Endpoint().String()
}

// URL renders the proxy as scheme://host:port.
func (proxy *Proxy) URL() string {
	return fmt.Sprintf("%s://%s", proxy.Schema, proxy.GetFullProxy())
}

// ApplyProbeSuccess blends a fresh score into the rating. The result is kept
// within [0, MaxRating] and fails only recovers when the rating is non-zero.
func (proxy *Proxy) ApplyProbeSuccess(timeout, elapsed time.Duration) {
	score := (timeout - elapsed).Seconds()
	rating := (score + proxy.Rating) / 2

	switch {
	case rating > MaxRating:
		rating = MaxRating
	case rating < 0:
		rating = 0
	}
	proxy.Rating = rating

	if proxy.Rating != 0 && proxy.Fails > 0 {
		proxy.Fails--
	}
}

func (proxy *Proxy) ApplyProbeFailure() {
	proxy.Fails++
}

// EvaluateBlacklist recomputes the flag from the current fail count, so a proxy
// whose fails drop back under the threshold is reinstated.
func (proxy *Proxy) EvaluateBlacklist(maxFails uint32) {
	proxy.Blacklisted = proxy.Fails >= maxFails
}
