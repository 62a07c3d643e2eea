package database

import (
	"context"

	"roost/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateLimitRegistry persists per-website bans keyed by (website, address, port).
type RateLimitRegistry struct {
	db *gorm.DB
}

func NewRateLimitRegistry(db *gorm.DB) *RateLimitRegistry {
	return &RateLimitRegistry{db: db}
}

// AddMany inserts bans in one transaction; an existing ban for the same target is kept as is.
func (r *RateLimitRegistry) AddMany(ctx context.Context, entries []domain.RateLimit) (int64, error) {
	unique := deduplicateRateLimits(entries)
	if len(unique) == 0 {
		return 0, nil
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "website"}, {Name: "address"}, {Name: "port"}},
			DoNothing: true,
		}).CreateInBatches(&unique, minBatchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storeError("insert rate limits", err)
	}

	return inserted, nil
}

func (r *RateLimitRegistry) DeleteMany(ctx context.Context, entries []domain.RateLimit) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			res := tx.Where("website = ? AND address = ? AND port = ?", entry.Website, entry.Address, entry.Port).
				Delete(&domain.RateLimit{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, storeError("delete rate limits", err)
	}

	return deleted, nil
}

func (r *RateLimitRegistry) Page(ctx context.Context, afterID uint64, size int) ([]domain.RateLimit, error) {
	var entries []domain.RateLimit
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(size).
		Find(&entries).Error
	if err != nil {
		return nil, storeError("page rate limits", err)
	}
	return entries, nil
}

// Banned returns the endpoints that have a ban for website or a global ban.
// Expiry is not checked here; expired rows are removed by the sweeper.
func (r *RateLimitRegistry) Banned(ctx context.Context, website string, endpoints []domain.Endpoint) (map[domain.Endpoint]struct{}, error) {
	banned := make(map[domain.Endpoint]struct{})
	if len(endpoints) == 0 {
		return banned, nil
	}

	wanted := make(map[domain.Endpoint]struct{}, len(endpoints))
	addresses := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if _, dup := wanted[endpoint]; dup {
			continue
		}
		wanted[endpoint] = struct{}{}
		addresses = append(addresses, endpoint.Address)
	}

	var entries []domain.RateLimit
	err := r.db.WithContext(ctx).
		Where("website IN ?", []string{website, domain.GlobalWebsite}).
		Where("address IN ?", addresses).
		Find(&entries).Error
	if err != nil {
		return nil, storeError("lookup rate limits", err)
	}

	for _, entry := range entries {
		endpoint := entry.Endpoint()
		if _, ok := wanted[endpoint]; ok && entry.Matches(website, endpoint) {
			banned[endpoint] = struct{}{}
		}
	}

	return banned, nil
}

func (r *RateLimitRegistry) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.RateLimit{}).Count(&count).Error; err != nil {
		return 0, storeError("count rate limits", err)
	}
	return count, nil
}

func deduplicateRateLimits(entries []domain.RateLimit) []domain.RateLimit {
	type target struct {
		website  string
		endpoint domain.Endpoint
	}

	seen := make(map[target]struct{}, len(entries))
	unique := make([]domain.RateLimit, 0, len(entries))
	for _, entry := range entries {
		key := target{website: entry.Website, endpoint: entry.Endpoint()}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		entry.ID = 0
		unique = append(unique, entry)
	}
	return unique
}
