package domain

import "time"

// GlobalWebsite bans a proxy for every destination.
const GlobalWebsite = "*"

type RateLimit struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Website string `gorm:"size:255;not null;uniqueIndex:idx_rate_limit_target,priority:1"`
	Address string `gorm:"size:255;not null;uniqueIndex:idx_rate_limit_target,priority:2;index:idx_rate_limit_endpoint,priority:1"`
	Port    uint16 `gorm:"not null;uniqueIndex:idx_rate_limit_target,priority:3;index:idx_rate_limit_endpoint,priority:2"`
	Until   int64  `gorm:"not null;index"` // unix seconds
}

func (rl *RateLimit) Endpoint() Endpoint {
	return Endpoint{Address: rl.Address, Port: rl.Port}
}

func (rl *RateLimit) IsGlobal() bool {
	return rl.Website == GlobalWebsite
}

func (rl *RateLimit) Expired(now time.Time) bool {
	return rl.Until <= now.Unix()
}

// Matches reports whether the ban applies to the endpoint when requesting website.
func (rl *RateLimit) Matches(website string, endpoint Endpoint) bool {
	if !rl.IsGlobal() && rl.Website != website {
		return false
	}
	return rl.Endpoint() == endpoint
}
