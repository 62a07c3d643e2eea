package database

import (
	"context"
	"errors"
	"fmt"

	"roost/internal/domain"
	"roost/internal/support"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTokenNotFound = errors.New("manager token not found")
	ErrInvalidToken  = errors.New("invalid manager token")
)

// ManagerStore keeps token digests and their states.
type ManagerStore struct {
	db *gorm.DB
}

func NewManagerStore(db *gorm.DB) *ManagerStore {
	return &ManagerStore{db: db}
}

// Create generates a fresh token with the given state and returns it in cleartext once.
func (s *ManagerStore) Create(ctx context.Context, state domain.ManagerState) (string, error) {
	token, err := support.GenerateToken()
	if err != nil {
		return "", err
	}

	manager := domain.Manager{TokenHash: support.HashToken(token), State: state}
	if err := s.db.WithContext(ctx).Create(&manager).Error; err != nil {
		return "", storeError("create manager", err)
	}

	return token, nil
}

// EnsureToken registers token with state, overwriting the state of an existing token.
func (s *ManagerStore) EnsureToken(token string, state domain.ManagerState) error {
	if !support.IsValidToken(token) {
		return fmt.Errorf("%w: expected %d alphanumeric characters", ErrInvalidToken, support.TokenLength)
	}

	manager := domain.Manager{TokenHash: support.HashToken(token), State: state}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(&manager).Error
	if err != nil {
		return storeError("ensure manager", err)
	}
	return nil
}

func (s *ManagerStore) UpdateState(ctx context.Context, token string, state domain.ManagerState) error {
	if !support.IsValidToken(token) {
		return ErrInvalidToken
	}

	res := s.db.WithContext(ctx).
		Model(&domain.Manager{}).
		Where("token_hash = ?", support.HashToken(token)).
		Update("state", state)
	if res.Error != nil {
		return storeError("update manager", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// State resolves a cleartext token. Stored values outside the known range read as Unknown.
func (s *ManagerStore) State(ctx context.Context, token string) (domain.ManagerState, error) {
	if !support.IsValidToken(token) {
		return domain.ManagerUnknown, ErrInvalidToken
	}

	var manager domain.Manager
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", support.HashToken(token)).
		Take(&manager).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ManagerUnknown, ErrTokenNotFound
	}
	if err != nil {
		return domain.ManagerUnknown, storeError("lookup manager", err)
	}

	return domain.ParseManagerState(uint8(manager.State)), nil
}
