package models

import (
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
)

// BarsTableName is the name of the table for historical bars
var BarsTableName = "bars"

// BarModel is one stored OHLCV bar.
type BarModel struct {
	Segment   string    `gorm:"primaryKey" json:"segment"`
	Symbol    string    `gorm:"primaryKey" json:"symbol"`
	Interval  string    `gorm:"primaryKey;column:bar_interval" json:"interval"`
	Timestamp int64     `gorm:"primaryKey;autoIncrement:false;column:ts" json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the Bar model
func (BarModel) TableName() string {
	return BarsTableName
}

// BarModelsFromSeries converts a series to rows.
func BarModelsFromSeries(s historical.Series) []BarModel {
	rows := make([]BarModel, 0, len(s.Bars))
	for _, b := range s.Bars {
		rows = append(rows, BarModel{
			Segment:   string(s.Segment),
			Symbol:    s.Symbol,
			Interval:  string(s.Interval),
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return rows
}

// Bar converts the row back to a bar.
func (m BarModel) Bar() historical.Bar {
	return historical.Bar{
		Timestamp: m.Timestamp,
		Open:      m.Open,
		High:      m.High,
		Low:       m.Low,
		Close:     m.Close,
		Volume:    m.Volume,
	}
}

// HistoricalParams is the parameters for the historical endpoint
type HistoricalParams struct {
	Symbol   string `query:"symbol"`
	Segment  string `query:"segment"`
	Interval string `query:"interval"`
	From     string `query:"from"`
	To       string `query:"to"`
	Strict   bool   `query:"strict"`
}
