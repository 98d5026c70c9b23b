// Package state keeps small key/value job markers in Postgres.
package state

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimeLayout is the layout time values are stored in.
const TimeLayout = time.RFC3339

// StateTableName is the table holding the markers
var StateTableName = "_app_state"

// StateEntry is one marker
type StateEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (StateEntry) TableName() string {
	return StateTableName
}

// State reads and writes markers
type State struct {
	db *gorm.DB
}

// NewState migrates the marker table and returns a State
func NewState(db *gorm.DB) (*State, error) {
	err := db.AutoMigrate(&StateEntry{})
	if err != nil {
		return nil, err
	}

	return &State{db: db}, nil
}

// Get returns the value of key, or "" when it is not set.
func (s *State) Get(key string) (string, error) {
	var entry StateEntry
	result := s.db.Where("key = ?", key).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return entry.Value, nil
}

// Set creates or replaces key.
func (s *State) Set(key, value string) error {
	entry := StateEntry{Key: key, Value: value}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// GetTime returns the time stored under key. ok is false when the key is
// unset or does not hold a time.
func (s *State) GetTime(key string) (t time.Time, ok bool, err error) {
	value, err := s.Get(key)
	if err != nil || value == "" {
		return time.Time{}, false, err
	}
	t, err = time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// SetTime stores t under key.
func (s *State) SetTime(key string, t time.Time) error {
	if err := s.Set(key, t.Format(TimeLayout)); err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *State) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&StateEntry{}).Error
}
