package repository

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/nsvirk/moneybotscharts/internal/models"
	"gorm.io/gorm"
)

const insertBatchSize = 500

// InstrumentRepository is the database repository for instrument masters
type InstrumentRepository struct {
	DB *gorm.DB
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{DB: db}
}

// ReplaceSegment swaps the stored master of a segment in one transaction
func (r *InstrumentRepository) ReplaceSegment(segment string, instruments []models.InstrumentModel) (int64, error) {
	var inserted int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("segment = ?", segment).Delete(&models.InstrumentModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete %s instruments: %v", segment, err)
		}
		if len(instruments) == 0 {
			return nil
		}
		result := tx.CreateInBatches(instruments, insertBatchSize)
		if result.Error != nil {
			return fmt.Errorf("failed to insert batch into %s: %v", models.InstrumentsTableName, result.Error)
		}
		inserted = result.RowsAffected
		return nil
	})
	return inserted, err
}

// GetBySegment returns the stored master of a segment in download order
func (r *InstrumentRepository) GetBySegment(segment string) ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	err := r.DB.Where("segment = ?", segment).Order("seq ASC").Find(&instruments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s instruments: %v", segment, err)
	}
	return instruments, nil
}

// GetBySymbols returns the instruments of a segment whose symbol is in symbols
func (r *InstrumentRepository) GetBySymbols(segment string, symbols []string) ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	err := r.DB.Where("segment = ? AND symbol = ANY(?)", segment, pq.Array(symbols)).
		Order("seq ASC").
		Find(&instruments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get instruments by symbols: %v", err)
	}
	return instruments, nil
}

// GetInstrumentsRecordCount returns the number of stored instruments of a segment
func (r *InstrumentRepository) GetInstrumentsRecordCount(segment string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.InstrumentModel{}).Where("segment = ?", segment).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get instruments record count: %v", err)
	}
	return count, nil
}
