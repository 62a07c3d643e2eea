package domain

import "time"

type ManagerState uint8

const (
	ManagerDisabled ManagerState = iota
	ManagerOk
	ManagerAdmin
	ManagerUnknown
)

// ParseManagerState maps stored values; anything outside the known range is Unknown.
func ParseManagerState(value uint8) ManagerState {
	switch ManagerState(value) {
	case ManagerDisabled, ManagerOk, ManagerAdmin:
		return ManagerState(value)
	default:
		return ManagerUnknown
	}
}

func (s ManagerState) String() string {
	switch s {
	case ManagerDisabled:
		return "disabled"
	case ManagerOk:
		return "ok"
	case ManagerAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Active reports whether the token may use the API at all.
func (s ManagerState) Active() bool {
	return s == ManagerOk || s == ManagerAdmin
}

func (s ManagerState) IsAdmin() bool {
	return s == ManagerAdmin
}

type Manager struct {
	TokenHash string       `gorm:"primaryKey;size:64"` // hex BLAKE2b-256 of the token
	State     ManagerState `gorm:"not null"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}
