// Package directory holds the NSE charting instrument masters and resolves
// user queries against them.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
)

// Master endpoints, one per segment.
const (
	EQMastersURL = "https://charting.nseindia.com/Charts/GetEQMasters"
	FOMastersURL = "https://charting.nseindia.com/Charts/GetFOMasters"
)

// fieldDelimiter separates ScripCode|Symbol|Name|Type in the master files.
const fieldDelimiter = "|"

var (
	// ErrDirectoryNotLoaded is returned when a segment is queried before any successful refresh.
	ErrDirectoryNotLoaded = errors.New("directory not loaded")
	// ErrInvalidSegment is returned for segment names other than NSE and NFO.
	ErrInvalidSegment = errors.New("invalid segment")
)

// Segment is a market division with its own scrip code space.
type Segment string

const (
	// SegmentNSE is the cash equity segment.
	SegmentNSE Segment = "NSE"
	// SegmentNFO is the derivatives segment.
	SegmentNFO Segment = "NFO"
)

// Segments lists the supported segments in refresh order.
var Segments = []Segment{SegmentNSE, SegmentNFO}

// ParseSegment normalizes a segment name.
func ParseSegment(name string) (Segment, error) {
	switch Segment(strings.ToUpper(strings.TrimSpace(name))) {
	case SegmentNSE:
		return SegmentNSE, nil
	case SegmentNFO:
		return SegmentNFO, nil
	}
	return "", fmt.Errorf("%w: %q, choose NSE or NFO", ErrInvalidSegment, name)
}

// IsCash reports whether s is the cash segment.
func (s Segment) IsCash() bool {
	return s == SegmentNSE
}

func (s Segment) valid() bool {
	return s == SegmentNSE || s == SegmentNFO
}

// Instrument is one row of a master file.
type Instrument struct {
	Code   string `json:"scrip_code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// ScripCode returns the numeric form of Code used in chart payloads.
func (i Instrument) ScripCode() (int64, error) {
	code, err := strconv.ParseInt(strings.TrimSpace(i.Code), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scrip code %q for %s: %w", i.Code, i.Symbol, err)
	}
	return code, nil
}

// Table is an immutable batch of instruments for one segment.
type Table struct {
	Segment     Segment      `json:"segment"`
	Instruments []Instrument `json:"instruments"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// Len returns the number of instruments in the table.
func (t Table) Len() int {
	return len(t.Instruments)
}

// FetchFailure reports a failed master download for one segment.
type FetchFailure struct {
	Segment Segment
	URL     string
	Err     error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("failed to download %s master from %s: %v", e.Segment, e.URL, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// Directory keeps one table per segment. Tables are swapped whole on
// refresh and never mutated, so readers always see a complete batch.
type Directory struct {
	transport transport.Transport
	urls      map[Segment]string
	tables    map[Segment]*atomic.Pointer[Table]
	now       func() time.Time
}

// Option configures a Directory.
type Option func(*Directory)

// WithMasterURL overrides the master endpoint of a segment.
func WithMasterURL(segment Segment, url string) Option {
	return func(d *Directory) {
		d.urls[segment] = url
	}
}

// WithClock overrides the clock used to stamp tables.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		d.now = now
	}
}

// New creates an empty Directory.
func New(t transport.Transport, options ...Option) *Directory {
	d := &Directory{
		transport: t,
		urls: map[Segment]string{
			SegmentNSE: EQMastersURL,
			SegmentNFO: FOMastersURL,
		},
		tables: map[Segment]*atomic.Pointer[Table]{
			SegmentNSE: {},
			SegmentNFO: {},
		},
		now: time.Now,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

// Refresh downloads the master for segment and replaces its table.
// A failed download returns an empty table and a *FetchFailure; the
// previously loaded table, if any, stays in place.
func (d *Directory) Refresh(ctx context.Context, segment Segment) (Table, error) {
	if !segment.valid() {
		return Table{Segment: segment}, fmt.Errorf("%w: %q", ErrInvalidSegment, segment)
	}

	url := d.urls[segment]
	body, err := d.transport.Get(ctx, url)
	if err != nil {
		failure := &FetchFailure{Segment: segment, URL: url, Err: err}
		zaplogger.Error("Instrument master download failed", zaplogger.Fields{
			"segment": string(segment),
			"url":     url,
			"error":   err.Error(),
		})
		return Table{Segment: segment}, failure
	}

	table := Table{
		Segment:     segment,
		Instruments: ParseMaster(string(body)),
		FetchedAt:   d.now(),
	}
	d.tables[segment].Store(&table)

	zaplogger.Info("Instrument master loaded", zaplogger.Fields{
		"segment": string(segment),
		"records": table.Len(),
	})
	return table, nil
}

// RefreshAll refreshes every segment. A failing segment does not stop the others.
func (d *Directory) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, segment := range Segments {
		if _, err := d.Refresh(ctx, segment); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load installs instruments as the table of segment without a download.
func (d *Directory) Load(segment Segment, instruments []Instrument, fetchedAt time.Time) error {
	if !segment.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSegment, segment)
	}
	table := Table{Segment: segment, Instruments: instruments, FetchedAt: fetchedAt}
	d.tables[segment].Store(&table)
	return nil
}

// Table returns the current table of segment.
func (d *Directory) Table(segment Segment) (Table, error) {
	if !segment.valid() {
		return Table{}, fmt.Errorf("%w: %q", ErrInvalidSegment, segment)
	}
	table := d.tables[segment].Load()
	if table == nil {
		return Table{}, fmt.Errorf("%w: %s, refresh it first", ErrDirectoryNotLoaded, segment)
	}
	return *table, nil
}

// Resolve returns the first instrument of segment matching query.
// ok is false when nothing matches.
func (d *Directory) Resolve(query string, segment Segment, exact bool) (inst Instrument, ok bool, err error) {
	table, err := d.Table(segment)
	if err != nil {
		return Instrument{}, false, err
	}
	match := matcher(query, exact)
	for _, instrument := range table.Instruments {
		if match(instrument.Symbol) {
			return instrument, true, nil
		}
	}
	return Instrument{}, false, nil
}

// Search returns every instrument of segment matching query, in table order.
func (d *Directory) Search(query string, segment Segment, exact bool) ([]Instrument, error) {
	table, err := d.Table(segment)
	if err != nil {
		return nil, err
	}
	match := matcher(query, exact)
	results := make([]Instrument, 0)
	for _, instrument := range table.Instruments {
		if match(instrument.Symbol) {
			results = append(results, instrument)
		}
	}
	return results, nil
}

// matcher compares case-insensitively: equality when exact, substring otherwise.
func matcher(query string, exact bool) func(symbol string) bool {
	q := strings.ToUpper(query)
	if exact {
		return func(symbol string) bool { return strings.ToUpper(symbol) == q }
	}
	return func(symbol string) bool { return strings.Contains(strings.ToUpper(symbol), q) }
}

// ParseMaster parses a ScripCode|Symbol|Name|Type master body. Blank
// lines and lines without exactly four fields are skipped.
func ParseMaster(body string) []Instrument {
	lines := strings.Split(body, "\n")
	instruments := make([]Instrument, 0, len(lines))
	skipped := 0
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, fieldDelimiter)
		if len(fields) != 4 {
			skipped++
			continue
		}
		instruments = append(instruments, Instrument{
			Code:   fields[0],
			Symbol: fields[1],
			Name:   fields[2],
			Type:   fields[3],
		})
	}
	if skipped > 0 {
		zaplogger.Warn("Skipped malformed master lines", zaplogger.Fields{"skipped": skipped})
	}
	return instruments
}
