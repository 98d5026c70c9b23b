package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"gorm.io/datatypes"
)

// SnapshotsTableName is the name of the table for index snapshots
var SnapshotsTableName = "snapshots"

// SnapshotModel stores one parsed snapshot download.
type SnapshotModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"-"`
	View      string         `gorm:"uniqueIndex:idx_view_group_asof,priority:1" json:"view"`
	GroupKey  string         `gorm:"uniqueIndex:idx_view_group_asof,priority:2" json:"group"`
	AsOf      string         `gorm:"uniqueIndex:idx_view_group_asof,priority:3" json:"as_of"`
	Columns   pq.StringArray `gorm:"type:text[]" json:"columns"`
	Rows      datatypes.JSON `gorm:"type:jsonb" json:"rows"`
	RowCount  int            `json:"row_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Snapshot model
func (SnapshotModel) TableName() string {
	return SnapshotsTableName
}

// NewSnapshotModel converts a snapshot table to a row.
func NewSnapshotModel(t snapshot.Table) (SnapshotModel, error) {
	rows, err := json.Marshal(t.Rows)
	if err != nil {
		return SnapshotModel{}, fmt.Errorf("failed to encode snapshot rows: %w", err)
	}
	return SnapshotModel{
		View:     t.View,
		GroupKey: t.Group,
		AsOf:     t.AsOf,
		Columns:  pq.StringArray(t.Columns),
		Rows:     datatypes.JSON(rows),
		RowCount: t.Len(),
	}, nil
}

// Table converts the row back to a snapshot table.
func (m SnapshotModel) Table() (snapshot.Table, error) {
	t := snapshot.Table{
		View:    m.View,
		Group:   m.GroupKey,
		AsOf:    m.AsOf,
		Columns: []string(m.Columns),
		Rows:    [][]string{},
	}
	if len(m.Rows) > 0 {
		if err := json.Unmarshal(m.Rows, &t.Rows); err != nil {
			return t, fmt.Errorf("failed to decode snapshot rows: %w", err)
		}
	}
	return t, nil
}
