package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotChannel is the Postgres NOTIFY channel announcing stored snapshots
var SnapshotChannel = "ch_charts_snapshot"

// SnapshotRepository is the database repository for index snapshots
type SnapshotRepository struct {
	DB *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{DB: db}
}

// SaveSnapshot upserts a snapshot on (view, group, as-of) and notifies listeners
func (r *SnapshotRepository) SaveSnapshot(t snapshot.Table) error {
	m, err := models.NewSnapshotModel(t)
	if err != nil {
		return err
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "view"}, {Name: "group_key"}, {Name: "as_of"}},
			DoUpdates: clause.AssignmentColumns([]string{"columns", "rows", "row_count", "updated_at"}),
		}).Create(&m)
		if result.Error != nil {
			return fmt.Errorf("failed to upsert snapshot %s %s: %v", t.View, t.Group, result.Error)
		}
		key := SnapshotKey(t.View, t.Group)
		if err := tx.Exec("SELECT pg_notify(?, ?)", SnapshotChannel, key).Error; err != nil {
			return fmt.Errorf("failed to notify %s: %v", SnapshotChannel, err)
		}
		return nil
	})
}

// GetLatestSnapshot returns the most recently stored snapshot of a view and group
func (r *SnapshotRepository) GetLatestSnapshot(view, group string) (snapshot.Table, bool, error) {
	var m models.SnapshotModel
	err := r.DB.Where("view = ? AND group_key = ?", view, group).
		Order("updated_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snapshot.Table{}, false, nil
		}
		return snapshot.Table{}, false, fmt.Errorf("failed to get snapshot %s %s: %v", view, group, err)
	}
	t, err := m.Table()
	return t, err == nil, err
}

// SnapshotKey is the cache and notification key of a view and group
func SnapshotKey(view, group string) string {
	if group == "" {
		return "SNAPSHOT:" + view
	}
	return "SNAPSHOT:" + view + ":" + group
}

// SnapshotCache keeps the latest snapshots as JSON in Redis
type SnapshotCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewSnapshotCache creates a new snapshot cache
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{Client: client, TTL: ttl}
}

// Get returns the cached snapshot, ok is false on a miss
func (c *SnapshotCache) Get(ctx context.Context, view, group string) (snapshot.Table, bool, error) {
	raw, err := c.Client.Get(ctx, SnapshotKey(view, group)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return snapshot.Table{}, false, nil
		}
		return snapshot.Table{}, false, fmt.Errorf("failed to read snapshot cache: %v", err)
	}
	var t snapshot.Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return snapshot.Table{}, false, fmt.Errorf("failed to decode cached snapshot: %v", err)
	}
	return t, true, nil
}

// Set caches a snapshot for the cache TTL
func (c *SnapshotCache) Set(ctx context.Context, t snapshot.Table) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %v", err)
	}
	if err := c.Client.Set(ctx, SnapshotKey(t.View, t.Group), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %v", err)
	}
	return nil
}
