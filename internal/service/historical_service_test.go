package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"2024-12-02", time.Date(2024, 12, 2, 0, 0, 0, 0, historical.IST)},
		{"2024-12-02 09:15", time.Date(2024, 12, 2, 9, 15, 0, 0, historical.IST)},
		{"2024-12-02 09:15:30", time.Date(2024, 12, 2, 9, 15, 30, 0, historical.IST)},
		{"1733111100", time.Unix(1733111100, 0)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%q: got %v", tt.in, got)
	}

	_, err := ParseDate("02/12/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseHistoricalParams(t *testing.T) {
	req, err := ParseHistoricalParams(models.HistoricalParams{Symbol: " NIFTY 50 ", Segment: "nse", From: "2024-11-01"})

	require.NoError(t, err)
	assert.Equal(t, "NIFTY 50", req.Symbol)
	assert.Equal(t, directory.SegmentNSE, req.Segment)
	assert.Equal(t, historical.DefaultInterval, req.Interval)
	assert.True(t, req.End.IsZero())

	_, err = ParseHistoricalParams(models.HistoricalParams{Symbol: "X", Segment: "MCX"})
	assert.ErrorIs(t, err, directory.ErrInvalidSegment)
}

func TestGetHistorical_StoresBars(t *testing.T) {
	series := historical.Series{
		Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: historical.Minute5,
		Bars: []historical.Bar{{Timestamp: 1, Close: 1}, {Timestamp: 2, Close: 2}},
	}
	client := &fakeHistorical{series: series}
	strict := &fakeHistorical{}
	bars := &fakeBars{}
	s := NewHistoricalService(client, strict, bars)

	got, err := s.GetHistorical(context.Background(), models.HistoricalParams{Symbol: "NIFTY 50", Segment: "NSE", Interval: "5m"})

	require.NoError(t, err)
	assert.Equal(t, series, got)
	assert.Equal(t, historical.Minute5, client.got.Interval)
	assert.Zero(t, strict.calls)
	assert.Len(t, bars.upserted, 2)
}

func TestGetHistorical_ServesStoredBarsWhenNSEUnreachable(t *testing.T) {
	// Arrange: the fetch resolved the symbol but the request failed
	client := &fakeHistorical{
		series: historical.Series{Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: historical.Day1, Bars: []historical.Bar{}},
		err:    &transport.TransportError{Method: "POST", URL: historical.HistoricalURL, StatusCode: 503},
	}
	bars := &fakeBars{stored: []models.BarModel{
		{Segment: "NSE", Symbol: "NIFTY 50", Interval: "1d", Timestamp: 100, Close: 10},
		{Segment: "NSE", Symbol: "NIFTY 50", Interval: "1d", Timestamp: 200, Close: 20},
	}}
	s := NewHistoricalService(client, client, bars)

	// Act
	got, err := s.GetHistorical(context.Background(), models.HistoricalParams{
		Symbol: "nif", Segment: "NSE", Interval: "1d", From: "100",
	})

	// Assert
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 20.0, got.Bars[1].Close)
	assert.Equal(t, []any{"NSE", "NIFTY 50", "1d", int64(100), int64(0)}, bars.query)
}

func TestGetHistorical_TransportErrorWithoutStoredBars(t *testing.T) {
	client := &fakeHistorical{
		series: historical.Series{Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Bars: []historical.Bar{}},
		err:    &transport.TransportError{Method: "POST", URL: historical.HistoricalURL},
	}
	s := NewHistoricalService(client, client, &fakeBars{})

	got, err := s.GetHistorical(context.Background(), models.HistoricalParams{Symbol: "NIFTY 50", Segment: "NSE"})

	var te *transport.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Zero(t, got.Len())
}

func TestGetHistorical_StrictUsesStrictClient(t *testing.T) {
	client := &fakeHistorical{}
	strict := &fakeHistorical{err: historical.ErrInvalidInterval}
	s := NewHistoricalService(client, strict, &fakeBars{})

	_, err := s.GetHistorical(context.Background(), models.HistoricalParams{Symbol: "NIFTY 50", Segment: "NSE", Interval: "2h", Strict: true})

	assert.ErrorIs(t, err, historical.ErrInvalidInterval)
	assert.Equal(t, 1, strict.calls)
	assert.Zero(t, client.calls)
}

func TestGetHistorical_BadParamsMakeNoCall(t *testing.T) {
	client := &fakeHistorical{}
	s := NewHistoricalService(client, client, nil)

	got, err := s.GetHistorical(context.Background(), models.HistoricalParams{Symbol: "NIFTY 50", Segment: "NSE", From: "yesterday"})

	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.NotNil(t, got.Bars)
	assert.Zero(t, client.calls)
}

func TestGetTimeframes(t *testing.T) {
	s := NewHistoricalService(nil, nil, nil)

	timeframes := s.GetTimeframes()

	require.Len(t, timeframes, 10)
	assert.Equal(t, Timeframe{Interval: historical.Hour1, Count: 60, Unit: "I", Period: "intraday"}, timeframes[6])
}

func TestCronService_SchedulesJobs(t *testing.T) {
	cs := NewCronService(nil, nil)
	cs.addScheduledJob("instruments", func() {}, instrumentsSchedule)
	cs.addScheduledJob("snapshots", func() {}, snapshotsSchedule)
	cs.addScheduledJob("broken", func() {}, "not a schedule")

	assert.Equal(t, 2, cs.Entries())
}
