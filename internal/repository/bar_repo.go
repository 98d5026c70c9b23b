package repository

import (
	"fmt"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BarRepository is the database repository for historical bars
type BarRepository struct {
	DB *gorm.DB
}

// NewBarRepository creates a new bar repository
func NewBarRepository(db *gorm.DB) *BarRepository {
	return &BarRepository{DB: db}
}

// UpsertBars stores bars, replacing the values of bars already stored
func (r *BarRepository) UpsertBars(bars []models.BarModel) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "segment"}, {Name: "symbol"}, {Name: "bar_interval"}, {Name: "ts"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "updated_at"}),
	}).CreateInBatches(bars, insertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to upsert bars into %s: %v", models.BarsTableName, result.Error)
	}
	return result.RowsAffected, nil
}

// GetBars returns stored bars in [from, to], ascending. A zero to means no upper bound.
func (r *BarRepository) GetBars(segment, symbol, interval string, from, to int64) ([]models.BarModel, error) {
	query := r.DB.Where("segment = ? AND symbol = ? AND bar_interval = ? AND ts >= ?", segment, symbol, interval, from)
	if to > 0 {
		query = query.Where("ts <= ?", to)
	}
	var bars []models.BarModel
	if err := query.Order("ts ASC").Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("failed to get bars: %v", err)
	}
	return bars, nil
}
