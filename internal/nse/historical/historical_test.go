package historical_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport/transportmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	homeURL  = "https://home.test"
	chartURL = "https://charts.test/symbolhistoricaldata/"
)

var fixedNow = time.Date(2024, 12, 2, 15, 30, 0, 0, historical.IST)

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()

	d := directory.New(nil)
	require.NoError(t, d.Load(directory.SegmentNSE, []directory.Instrument{
		{Code: "26000", Symbol: "NIFTY 50", Name: "Nifty 50", Type: "Index"},
		{Code: "2885", Symbol: "RELIANCE-EQ", Name: "Reliance Industries Ltd", Type: "EQ"},
	}, fixedNow))
	require.NoError(t, d.Load(directory.SegmentNFO, []directory.Instrument{
		{Code: "35001", Symbol: "NIFTY24DECFUT", Name: "NIFTY", Type: "FUTIDX"},
	}, fixedNow))
	return d
}

func newClient(t *testing.T, tr transport.Transport, options ...historical.Option) *historical.Client {
	t.Helper()

	options = append([]historical.Option{
		historical.WithHomeURL(homeURL),
		historical.WithURL(chartURL),
		historical.WithClock(func() time.Time { return fixedNow }),
	}, options...)
	return historical.NewClient(tr, testDirectory(t), options...)
}

type recordingNormalizer struct {
	interval historical.Interval
	raw      json.RawMessage
}

func (r *recordingNormalizer) Normalize(raw json.RawMessage, interval historical.Interval) (historical.Series, error) {
	r.raw = raw
	r.interval = interval
	return historical.Series{Interval: interval, Bars: []historical.Bar{{Timestamp: 1, Close: 10}}}, nil
}

func TestBuildRequest_Cash(t *testing.T) {
	t.Parallel()

	b := historical.NewBuilder(testDirectory(t), func() time.Time { return fixedNow }, false)
	start := time.Date(2024, 11, 1, 9, 15, 0, 0, historical.IST)

	p, err := b.BuildRequest(historical.Request{
		Symbol:   "RELIANCE",
		Segment:  directory.SegmentNSE,
		Start:    start,
		Interval: historical.Hour1,
	})

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "N", p.Exch)
	assert.Equal(t, "C", p.InstrType)
	assert.EqualValues(t, 2885, p.ScripCode)
	assert.EqualValues(t, 2885, p.ULToken)
	assert.Equal(t, start.Unix(), p.FromDate)
	assert.Equal(t, fixedNow.Unix(), p.ToDate)
	assert.Equal(t, "60", p.TimeInterval)
	assert.Equal(t, "I", p.ChartPeriod)
	assert.Zero(t, p.ChartStart)
}

func TestBuildRequest_Derivatives(t *testing.T) {
	t.Parallel()

	b := historical.NewBuilder(testDirectory(t), nil, false)
	end := time.Date(2024, 11, 29, 15, 30, 0, 0, historical.IST)

	p, err := b.BuildRequest(historical.Request{
		Symbol:   "NIFTY24DEC",
		Segment:  directory.SegmentNFO,
		End:      end,
		Interval: historical.Week1,
	})

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "D", p.Exch)
	assert.Equal(t, "D", p.InstrType)
	assert.EqualValues(t, 35001, p.ScripCode)
	assert.Zero(t, p.FromDate, "missing start means from the beginning")
	assert.Equal(t, end.Unix(), p.ToDate)
	assert.Equal(t, "1", p.TimeInterval)
	assert.Equal(t, "W", p.ChartPeriod)
}

func TestBuildRequest_UnknownIntervalFallsBackToDaily(t *testing.T) {
	t.Parallel()

	b := historical.NewBuilder(testDirectory(t), nil, false)

	p, err := b.BuildRequest(historical.Request{Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: "7m"})

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1", p.TimeInterval)
	assert.Equal(t, "D", p.ChartPeriod)
}

func TestBuildRequest_StrictIntervals(t *testing.T) {
	t.Parallel()

	b := historical.NewBuilder(testDirectory(t), nil, true)

	p, err := b.BuildRequest(historical.Request{Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: "7m"})

	assert.Nil(t, p)
	assert.ErrorIs(t, err, historical.ErrInvalidInterval)
}

func TestBuildRequest_Unresolved(t *testing.T) {
	t.Parallel()

	b := historical.NewBuilder(testDirectory(t), nil, false)

	p, err := b.BuildRequest(historical.Request{Symbol: "NOSUCH", Segment: directory.SegmentNSE, Interval: historical.Day1})

	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestHistorical_UnresolvedMakesNoRequest(t *testing.T) {
	t.Parallel()

	// Arrange: no expectations, any transport call fails the test
	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	c := newClient(t, tr)

	// Act
	series, err := c.Historical(context.Background(), historical.Request{
		Symbol: "NOSUCH", Segment: directory.SegmentNSE, Interval: historical.Day1,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "NOSUCH", series.Symbol)
	assert.NotNil(t, series.Bars)
	assert.Zero(t, series.Len())
}

func TestHistorical_PostsPayloadAndNormalizes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	body := `{"s":"Ok","t":[1733117400,1733113800],"o":[2,1],"h":[3,2],"l":[1,0.5],"c":[2.5,1.5],"v":[200,100]}`

	var posted historical.Payload
	gomock.InOrder(
		tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil),
		tr.EXPECT().Post(gomock.Any(), chartURL, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, b []byte) ([]byte, error) {
				require.NoError(t, json.Unmarshal(b, &posted))
				return []byte(body), nil
			}),
	)

	series, err := newClient(t, tr).Historical(context.Background(), historical.Request{
		Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: historical.Minute15,
	})

	require.NoError(t, err)
	assert.Equal(t, "15", posted.TimeInterval)
	assert.Equal(t, "I", posted.ChartPeriod)
	assert.EqualValues(t, 26000, posted.ScripCode)

	assert.Equal(t, historical.Minute15, series.Interval)
	assert.Equal(t, directory.SegmentNSE, series.Segment)
	require.Equal(t, 2, series.Len())
	assert.EqualValues(t, 1733113800, series.Bars[0].Timestamp)
	assert.EqualValues(t, 100, series.Bars[0].Volume)
	assert.Equal(t, 2.5, series.Bars[1].Close)
}

func TestHistorical_SeriesCarriesResolvedSymbol(t *testing.T) {
	t.Parallel()

	// Arrange: a fragment of the symbol resolves to the index
	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil)
	tr.EXPECT().Post(gomock.Any(), chartURL, gomock.Any()).Return([]byte(`{"s":"Ok"}`), nil)

	// Act
	series, err := newClient(t, tr, historical.WithNormalizer(&recordingNormalizer{})).Historical(context.Background(), historical.Request{
		Symbol: "nif", Segment: directory.SegmentNSE, Interval: historical.Day1,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "NIFTY 50", series.Symbol)
	assert.Equal(t, 1, series.Len())
}

func TestHistorical_IntervalReachesNormalizerUnchanged(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil)
	tr.EXPECT().Post(gomock.Any(), chartURL, gomock.Any()).Return([]byte(`{"s":"Ok"}`), nil)
	n := &recordingNormalizer{}

	series, err := newClient(t, tr, historical.WithNormalizer(n)).Historical(context.Background(), historical.Request{
		Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: "7m",
	})

	require.NoError(t, err)
	assert.Equal(t, historical.Interval("7m"), n.interval)
	assert.JSONEq(t, `{"s":"Ok"}`, string(n.raw))
	assert.Equal(t, 1, series.Len())
}

func TestHistorical_EmptyBody(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "null", "{}", " [] "} {
		ctrl := gomock.NewController(t)
		tr := transportmock.NewMockTransport(ctrl)
		tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil)
		tr.EXPECT().Post(gomock.Any(), chartURL, gomock.Any()).Return([]byte(body), nil)
		n := &recordingNormalizer{}

		series, err := newClient(t, tr, historical.WithNormalizer(n)).Historical(context.Background(), historical.Request{
			Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: historical.Day1,
		})

		require.NoError(t, err, "body %q", body)
		assert.Zero(t, series.Len(), "body %q", body)
		assert.Nil(t, n.raw, "normalizer not called for body %q", body)
	}
}

func TestHistorical_TransportFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil)
	tr.EXPECT().Post(gomock.Any(), chartURL, gomock.Any()).
		Return(nil, &transport.TransportError{Method: "POST", URL: chartURL, StatusCode: 403})

	series, err := newClient(t, tr).Historical(context.Background(), historical.Request{
		Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: historical.Day1,
	})

	require.Error(t, err)
	var te *transport.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 403, te.StatusCode)
	assert.Zero(t, series.Len())
}

func TestHistorical_StrictIntervalMakesNoRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)

	_, err := newClient(t, tr, historical.WithStrictIntervals()).Historical(context.Background(), historical.Request{
		Symbol: "NIFTY 50", Segment: directory.SegmentNSE, Interval: "2h",
	})

	assert.ErrorIs(t, err, historical.ErrInvalidInterval)
}

func TestLookupInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		interval historical.Interval
		want     historical.Granularity
		ok       bool
	}{
		{historical.Minute1, historical.Granularity{Count: 1, Unit: historical.Intraday}, true},
		{historical.Minute30, historical.Granularity{Count: 30, Unit: historical.Intraday}, true},
		{historical.Hour1, historical.Granularity{Count: 60, Unit: historical.Intraday}, true},
		{historical.Day1, historical.Granularity{Count: 1, Unit: historical.Daily}, true},
		{historical.Month1, historical.Granularity{Count: 1, Unit: historical.Monthly}, true},
		{"1y", historical.Granularity{Count: 1, Unit: historical.Daily}, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			got, ok := historical.LookupInterval(tt.interval)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}

	assert.Len(t, historical.Timeframes(), 10)
}
