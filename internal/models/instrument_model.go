// Package models contains the database models for the Moneybots Charts API
package models

import (
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
)

// InstrumentsTableName is the name of the table for instrument masters
var InstrumentsTableName = "instruments"

// InstrumentModel is one master row. Position keeps the download order,
// which decides the first match on resolve.
type InstrumentModel struct {
	Segment   string    `gorm:"primaryKey;index:idx_segment_symbol,priority:1" json:"segment"`
	ScripCode string    `gorm:"primaryKey" json:"scrip_code"`
	Position  int       `gorm:"column:seq;index" json:"-"`
	Symbol    string    `gorm:"index:idx_segment_symbol,priority:2" json:"symbol"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	FetchedAt time.Time `json:"fetched_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the Instrument model
func (InstrumentModel) TableName() string {
	return InstrumentsTableName
}

// Instrument converts the row back to a directory instrument.
func (m InstrumentModel) Instrument() directory.Instrument {
	return directory.Instrument{
		Code:   m.ScripCode,
		Symbol: m.Symbol,
		Name:   m.Name,
		Type:   m.Type,
	}
}

// InstrumentModelsFromTable converts a directory table to rows.
func InstrumentModelsFromTable(t directory.Table) []InstrumentModel {
	rows := make([]InstrumentModel, 0, len(t.Instruments))
	for i, inst := range t.Instruments {
		rows = append(rows, InstrumentModel{
			Segment:   string(t.Segment),
			ScripCode: inst.Code,
			Position:  i,
			Symbol:    inst.Symbol,
			Name:      inst.Name,
			Type:      inst.Type,
			FetchedAt: t.FetchedAt,
		})
	}
	return rows
}

// SearchInstrumentsParams is the parameters for the instrument search endpoints
type SearchInstrumentsParams struct {
	Query   string `query:"q"`
	Segment string `query:"segment"`
	Exact   bool   `query:"exact"`
}
