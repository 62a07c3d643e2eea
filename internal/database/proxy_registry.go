package database

import (
	"context"

	"roost/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	batchThreshold    = 8191  // Use batches when exceeding this number of records
	maxParamsPerBatch = 65534 // Conservative default (PostgreSQL's limit) - 1
	minBatchSize      = 100   // Minimum batch size to maintain efficiency
)

// ProxyRegistry persists proxy records. Every write runs in one transaction.
type ProxyRegistry struct {
	db *gorm.DB
}

func NewProxyRegistry(db *gorm.DB) *ProxyRegistry {
	return &ProxyRegistry{db: db}
}

// InsertMany stores new proxies and silently skips endpoints that already exist.
func (r *ProxyRegistry) InsertMany(ctx context.Context, proxies []domain.Proxy) (int64, error) {
	unique := deduplicateProxies(proxies)
	if len(unique) == 0 {
		return 0, nil
	}

	for i := range unique {
		unique[i].ID = 0
	}

	batchSize := calculateBatchSize(r.db, len(unique))

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}, {Name: "port"}},
			DoNothing: true,
		}).CreateInBatches(&unique, batchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storeError("insert proxies", err)
	}

	return inserted, nil
}

// UpdateMany writes rating, fails and blacklisted for each endpoint. Missing
// endpoints are skipped; any failure rolls back the whole batch.
func (r *ProxyRegistry) UpdateMany(ctx context.Context, proxies []domain.Proxy) error {
	if len(proxies) == 0 {
		return nil
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return storeError("begin update", tx.Error)
	}
	defer transactionRollbackHandler(tx)

	for _, proxy := range proxies {
		err := tx.Model(&domain.Proxy{}).
			Where("address = ? AND port = ?", proxy.Address, proxy.Port).
			Updates(map[string]any{
				"rating":      proxy.Rating,
				"fails":       proxy.Fails,
				"blacklisted": proxy.Blacklisted,
			}).Error
		if err != nil {
			tx.Rollback()
			return storeError("update proxy "+proxy.GetFullProxy(), err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return storeError("commit update", err)
	}
	return nil
}

func (r *ProxyRegistry) DeleteMany(ctx context.Context, proxies []domain.Proxy) (int64, error) {
	if len(proxies) == 0 {
		return 0, nil
	}

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, proxy := range proxies {
			res := tx.Where("address = ? AND port = ?", proxy.Address, proxy.Port).Delete(&domain.Proxy{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, storeError("delete proxies", err)
	}

	return deleted, nil
}

// Page returns up to size non-blacklisted proxies with id > afterID in id order.
func (r *ProxyRegistry) Page(ctx context.Context, afterID uint64, size int) ([]domain.Proxy, error) {
	var proxies []domain.Proxy
	err := r.db.WithContext(ctx).
		Where("id > ? AND blacklisted = ?", afterID, false).
		Order("id ASC").
		Limit(size).
		Find(&proxies).Error
	if err != nil {
		return nil, storeError("page proxies", err)
	}
	return proxies, nil
}

func (r *ProxyRegistry) TopRated(ctx context.Context, limit int) ([]domain.Proxy, error) {
	var proxies []domain.Proxy
	err := r.db.WithContext(ctx).
		Where("blacklisted = ?", false).
		Order("rating DESC").
		Order("id ASC").
		Limit(limit).
		Find(&proxies).Error
	if err != nil {
		return nil, storeError("top rated proxies", err)
	}
	return proxies, nil
}

// AboveRating returns proxies rated strictly above minRating, weakest first.
func (r *ProxyRegistry) AboveRating(ctx context.Context, minRating float64, limit int) ([]domain.Proxy, error) {
	var proxies []domain.Proxy
	err := r.db.WithContext(ctx).
		Where("blacklisted = ? AND rating > ?", false, minRating).
		Order("rating ASC").
		Order("id ASC").
		Limit(limit).
		Find(&proxies).Error
	if err != nil {
		return nil, storeError("proxies above rating", err)
	}
	return proxies, nil
}

type ProxyCounts struct {
	Total       int64 `json:"total"`
	Blacklisted int64 `json:"blacklisted"`
}

func (r *ProxyRegistry) Count(ctx context.Context) (ProxyCounts, error) {
	var counts ProxyCounts

	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Proxy{}).Count(&counts.Total).Error; err != nil {
		return ProxyCounts{}, storeError("count proxies", err)
	}
	if err := db.Model(&domain.Proxy{}).Where("blacklisted = ?", true).Count(&counts.Blacklisted).Error; err != nil {
		return ProxyCounts{}, storeError("count blacklisted proxies", err)
	}
	return counts, nil
}

func deduplicateProxies(proxies []domain.Proxy) []domain.Proxy {
	seen := make(map[domain.Endpoint]struct{}, len(proxies))
	unique := make([]domain.Proxy, 0, len(proxies))
	for _, p := range proxies {
		key := p.Endpoint()
		if _, exists := seen[key]; !exists {
			seen[key] = struct{}{}
			unique = append(unique, p)
		}
	}
	return unique
}

func calculateBatchSize(db *gorm.DB, count int) int {
	if count <= batchThreshold {
		return count
	}

	numFields, err := getNumDatabaseFields(domain.Proxy{}, db)
	if err != nil || numFields == 0 {
		return minBatchSize
	}

	batchSize := maxParamsPerBatch / numFields
	return clamp(batchSize, minBatchSize, count)
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func getNumDatabaseFields(model interface{}, db *gorm.DB) (int, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return 0, err
	}
	return len(stmt.Schema.DBNames), nil
}
