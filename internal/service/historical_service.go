package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
)

// ErrInvalidDate is returned for from/to values that are not dates
var ErrInvalidDate = errors.New("invalid date")

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// HistoricalFetcher fetches bar series
type HistoricalFetcher interface {
	Historical(ctx context.Context, req historical.Request) (historical.Series, error)
}

// BarStore persists bars
type BarStore interface {
	UpsertBars(bars []models.BarModel) (int64, error)
	GetBars(segment, symbol, interval string, from, to int64) ([]models.BarModel, error)
}

// HistoricalService is the service for historical bars
type HistoricalService struct {
	client       HistoricalFetcher
	strictClient HistoricalFetcher
	bars         BarStore
}

// NewHistoricalService creates a new historical service. strictClient
// serves requests that ask for strict interval checking.
func NewHistoricalService(client, strictClient HistoricalFetcher, bars BarStore) *HistoricalService {
	return &HistoricalService{
		client:       client,
		strictClient: strictClient,
		bars:         bars,
	}
}

// Timeframe describes one supported interval
type Timeframe struct {
	Interval historical.Interval `json:"interval"`
	Count    int                 `json:"count"`
	Unit     string              `json:"unit"`
	Period   string              `json:"period"`
}

// GetTimeframes returns the supported intervals
func (s *HistoricalService) GetTimeframes() []Timeframe {
	intervals := historical.Timeframes()
	timeframes := make([]Timeframe, 0, len(intervals))
	for _, iv := range intervals {
		g, _ := historical.LookupInterval(iv)
		timeframes = append(timeframes, Timeframe{
			Interval: iv,
			Count:    g.Count,
			Unit:     string(g.Unit),
			Period:   g.Unit.String(),
		})
	}
	return timeframes
}

// ParseHistoricalParams turns query parameters into a request
func ParseHistoricalParams(params models.HistoricalParams) (historical.Request, error) {
	segment, err := directory.ParseSegment(params.Segment)
	if err != nil {
		return historical.Request{}, err
	}
	start, err := ParseDate(params.From)
	if err != nil {
		return historical.Request{}, err
	}
	end, err := ParseDate(params.To)
	if err != nil {
		return historical.Request{}, err
	}
	interval := historical.Interval(strings.TrimSpace(params.Interval))
	if interval == "" {
		interval = historical.DefaultInterval
	}
	return historical.Request{
		Symbol:   strings.TrimSpace(params.Symbol),
		Segment:  segment,
		Start:    start,
		End:      end,
		Interval: interval,
	}, nil
}

// ParseDate accepts epoch seconds or an IST date/time. Empty gives the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).In(historical.IST), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, historical.IST); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q, use YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or epoch seconds", ErrInvalidDate, value)
}

// GetHistorical fetches the series for params and stores the bars. When
// NSE cannot be reached the stored bars for the range are served instead.
func (s *HistoricalService) GetHistorical(ctx context.Context, params models.HistoricalParams) (historical.Series, error) {
	req, err := ParseHistoricalParams(params)
	if err != nil {
		return historical.Series{Symbol: params.Symbol, Bars: []historical.Bar{}}, err
	}

	client := s.client
	if params.Strict {
		client = s.strictClient
	}

	defer zaplogger.TimeTrack(time.Now(), "GetHistorical")
	series, err := client.Historical(ctx, req)
	if err != nil {
		var te *transport.TransportError
		if errors.As(err, &te) {
			if stored, ok := s.storedSeries(series, req); ok {
				return stored, nil
			}
		}
		return series, err
	}

	if s.bars != nil && series.Len() > 0 {
		if _, err := s.bars.UpsertBars(models.BarModelsFromSeries(series)); err != nil {
			zaplogger.Error("Failed to store bars", zaplogger.Fields{
				"symbol":   series.Symbol,
				"interval": string(series.Interval),
				"error":    err.Error(),
			})
		}
	}
	return series, nil
}

// storedSeries reads the bars kept for the resolved series in the range of req.
func (s *HistoricalService) storedSeries(series historical.Series, req historical.Request) (historical.Series, bool) {
	if s.bars == nil {
		return series, false
	}
	var from, to int64
	if !req.Start.IsZero() {
		from = req.Start.Unix()
	}
	if !req.End.IsZero() {
		to = req.End.Unix()
	}
	rows, err := s.bars.GetBars(string(series.Segment), series.Symbol, string(series.Interval), from, to)
	if err != nil {
		zaplogger.Warn("Stored bars read failed", zaplogger.Fields{"symbol": series.Symbol, "error": err.Error()})
		return series, false
	}
	if len(rows) == 0 {
		return series, false
	}

	stored := series
	stored.Bars = make([]historical.Bar, 0, len(rows))
	for _, row := range rows {
		stored.Bars = append(stored.Bars, row.Bar())
	}
	zaplogger.Info("Serving stored bars", zaplogger.Fields{
		"symbol":   series.Symbol,
		"interval": string(series.Interval),
		"bars":     len(rows),
	})
	return stored, true
}
