// Package historical builds NSE charting requests for OHLCV bars and maps
// the responses back into bar series.
package historical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
)

// HistoricalURL is the charting endpoint. The double slash is what the site itself uses.
const HistoricalURL = "https://charting.nseindia.com//Charts/symbolhistoricaldata/"

// Resolver looks up an instrument in a segment.
type Resolver interface {
	Resolve(query string, segment directory.Segment, exact bool) (directory.Instrument, bool, error)
}

// Request is a logical bar request. Zero Start means the earliest available
// bar, zero End means now.
type Request struct {
	Symbol   string            `json:"symbol"`
	Segment  directory.Segment `json:"segment"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Interval Interval          `json:"interval"`
}

// Payload is the JSON body the charting endpoint accepts.
type Payload struct {
	Exch         string `json:"exch"`
	InstrType    string `json:"instrType"`
	ScripCode    int64  `json:"scripCode"`
	ULToken      int64  `json:"ulToken"`
	FromDate     int64  `json:"fromDate"`
	ToDate       int64  `json:"toDate"`
	TimeInterval string `json:"timeInterval"`
	ChartPeriod  string `json:"chartPeriod"`
	ChartStart   int    `json:"chartStart"`
}

// Builder maps requests to payloads.
type Builder struct {
	resolver Resolver
	now      func() time.Time
	strict   bool
}

// NewBuilder creates a Builder. A nil now uses time.Now. With strict set,
// unknown intervals fail with ErrInvalidInterval instead of falling back to daily.
func NewBuilder(r Resolver, now func() time.Time, strict bool) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{resolver: r, now: now, strict: strict}
}

// BuildRequest resolves the symbol and fills the payload. A nil payload
// with a nil error means the symbol did not resolve.
func (b *Builder) BuildRequest(req Request) (*Payload, error) {
	payload, _, err := b.build(req)
	return payload, err
}

// build is BuildRequest that also returns the resolved instrument.
func (b *Builder) build(req Request) (*Payload, directory.Instrument, error) {
	inst, ok, err := b.resolver.Resolve(req.Symbol, req.Segment, false)
	if err != nil {
		return nil, inst, err
	}
	if !ok {
		return nil, inst, nil
	}

	code, err := inst.ScripCode()
	if err != nil {
		return nil, inst, err
	}

	var g Granularity
	if b.strict {
		if g, err = StrictLookupInterval(req.Interval); err != nil {
			return nil, inst, err
		}
	} else {
		g, _ = LookupInterval(req.Interval)
	}

	exch, instrType := "D", "D"
	if req.Segment.IsCash() {
		exch, instrType = "N", "C"
	}

	var from int64
	if !req.Start.IsZero() {
		from = req.Start.Unix()
	}
	to := b.now().Unix()
	if !req.End.IsZero() {
		to = req.End.Unix()
	}

	return &Payload{
		Exch:         exch,
		InstrType:    instrType,
		ScripCode:    code,
		ULToken:      code,
		FromDate:     from,
		ToDate:       to,
		TimeInterval: fmt.Sprintf("%d", g.Count),
		ChartPeriod:  string(g.Unit),
		ChartStart:   0,
	}, inst, nil
}

// Client fetches bar series.
type Client struct {
	transport  transport.Transport
	resolver   Resolver
	normalizer Normalizer
	builder    *Builder
	url        string
	homeURL    string
	now        func() time.Time
	strict     bool
}

// Option configures a Client.
type Option func(*Client)

// WithNormalizer replaces the response transform.
func WithNormalizer(n Normalizer) Option {
	return func(c *Client) { c.normalizer = n }
}

// WithURL overrides the charting endpoint.
func WithURL(u string) Option {
	return func(c *Client) { c.url = u }
}

// WithHomeURL overrides the priming page.
func WithHomeURL(u string) Option {
	return func(c *Client) { c.homeURL = u }
}

// WithClock overrides the clock used for a missing End.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithStrictIntervals rejects unknown interval tokens.
func WithStrictIntervals() Option {
	return func(c *Client) { c.strict = true }
}

// NewClient creates a Client resolving symbols through r.
func NewClient(t transport.Transport, r Resolver, options ...Option) *Client {
	c := &Client{
		transport:  t,
		resolver:   r,
		normalizer: ChartNormalizer{},
		url:        HistoricalURL,
		homeURL:    transport.HomeURL,
		now:        time.Now,
	}
	for _, option := range options {
		option(c)
	}
	c.builder = NewBuilder(c.resolver, c.now, c.strict)
	return c
}

// Historical fetches the bar series for req. It always returns a usable
// series: an unresolved symbol or an empty response gives an empty series
// and no error, a transport failure gives an empty series and the error.
// A resolved series carries the instrument's full symbol, not the query.
func (c *Client) Historical(ctx context.Context, req Request) (Series, error) {
	series := emptySeries(req)

	payload, inst, err := c.builder.build(req)
	if err != nil {
		return series, err
	}
	if payload == nil {
		zaplogger.Info("No matching symbol", zaplogger.Fields{
			"symbol":  req.Symbol,
			"segment": string(req.Segment),
		})
		return series, nil
	}
	series.Symbol = inst.Symbol

	body, err := json.Marshal(payload)
	if err != nil {
		return series, fmt.Errorf("failed to encode payload: %w", err)
	}

	if err := transport.Prime(ctx, c.transport, c.homeURL); err != nil {
		zaplogger.Error("Historical priming request failed", zaplogger.Fields{
			"endpoint": c.homeURL,
			"error":    err.Error(),
		})
		return series, err
	}

	raw, err := c.transport.Post(ctx, c.url, body)
	if err != nil {
		zaplogger.Error("Historical request failed", zaplogger.Fields{
			"endpoint": c.url,
			"symbol":   series.Symbol,
			"error":    err.Error(),
		})
		return series, fmt.Errorf("failed to fetch historical data for %s: %w", series.Symbol, err)
	}

	if isEmptyBody(raw) {
		zaplogger.Info("No data received from the API", zaplogger.Fields{
			"symbol":   series.Symbol,
			"interval": string(req.Interval),
		})
		return series, nil
	}

	normalized, err := c.normalizer.Normalize(json.RawMessage(raw), req.Interval)
	if err != nil {
		return series, fmt.Errorf("failed to normalize historical data for %s: %w", series.Symbol, err)
	}
	series.Bars = normalized.Bars
	if series.Bars == nil {
		series.Bars = []Bar{}
	}
	return series, nil
}

func emptySeries(req Request) Series {
	return Series{
		Symbol:   req.Symbol,
		Segment:  req.Segment,
		Interval: req.Interval,
		Bars:     []Bar{},
	}
}

func isEmptyBody(raw []byte) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}
