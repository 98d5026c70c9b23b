package historical

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
)

// ErrMalformedResponse is returned when a chart response cannot be mapped to bars.
var ErrMalformedResponse = errors.New("malformed historical response")

// IST is the exchange time zone.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Bar is one OHLCV record. Timestamp is in epoch seconds.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"`
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    int64   `json:"v" parquet:"v"`
}

// Time returns the bar timestamp in exchange time.
func (b Bar) Time() time.Time {
	return time.Unix(b.Timestamp, 0).In(IST)
}

// Series is an ascending run of bars at one interval.
type Series struct {
	Symbol   string            `json:"symbol"`
	Segment  directory.Segment `json:"segment"`
	Interval Interval          `json:"interval"`
	Bars     []Bar             `json:"bars"`
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Bars)
}

// Normalizer turns a raw chart response into a series. The interval token
// is passed through unchanged because bar boundaries depend on it.
type Normalizer interface {
	Normalize(raw json.RawMessage, interval Interval) (Series, error)
}

// chartResponse is the column-oriented body of the charting endpoint.
type chartResponse struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// ChartNormalizer maps the {s,t,o,h,l,c,v} chart body to bars, ascending by
// time with duplicate timestamps collapsed to the last one received.
type ChartNormalizer struct{}

// Normalize implements Normalizer.
func (ChartNormalizer) Normalize(raw json.RawMessage, interval Interval) (Series, error) {
	series := Series{Interval: interval, Bars: []Bar{}}

	var resp chartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return series, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "ok") {
		return series, nil
	}

	n := len(resp.T)
	for _, col := range [][]float64{resp.O, resp.H, resp.L, resp.C, resp.V} {
		if len(col) != n {
			return series, fmt.Errorf("%w: column lengths differ (t=%d)", ErrMalformedResponse, n)
		}
	}

	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = Bar{
			Timestamp: resp.T[i],
			Open:      resp.O[i],
			High:      resp.H[i],
			Low:       resp.L[i],
			Close:     resp.C[i],
			Volume:    int64(resp.V[i]),
		}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })

	for i, bar := range bars {
		if i+1 < len(bars) && bars[i+1].Timestamp == bar.Timestamp {
			continue
		}
		series.Bars = append(series.Bars, bar)
	}
	return series, nil
}
