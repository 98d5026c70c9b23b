// Package snapshot assembles the NSE index csv downloads into typed tables.
//
// Both downloads share one layout: a fixed-length preamble carrying the
// as-of date on a known line, followed by quote-wrapped rows whose numbers
// use commas as thousands separators. A View captures what differs.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nsvirk/moneybotscharts/internal/nse/recliner"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
	"github.com/shopspring/decimal"
)

const (
	// SegmentEndpoint serves the constituents view of one index group.
	SegmentEndpoint = "https://www.nseindia.com/api/equity-stockIndices"
	// AllIndicesEndpoint serves the all-indices view.
	AllIndicesEndpoint = "https://www.nseindia.com/api/allIndices?csv=true"
)

// AsOfColumn is appended to every view's columns and carries the as-of date.
const AsOfColumn = "datadate"

const delimiter = ","

// ErrMalformedResponse is returned in strict mode when a row does not fit the view.
var ErrMalformedResponse = errors.New("malformed response")

// View describes one csv download layout.
type View struct {
	Name string
	// PreambleLines is the number of lines before the first data row.
	PreambleLines int
	// DateLineIndex is the preamble line holding the as-of date.
	DateLineIndex int
	// DateFirstField keeps only the first comma-separated token of the date line.
	DateFirstField bool
	Columns        []string
}

// SegmentView is the equity-stockIndices constituents download.
var SegmentView = View{
	Name:          "segment",
	PreambleLines: 16,
	DateLineIndex: 15,
	Columns: []string{
		"Symbol", "Open", "High", "Low", "PrevClose", "LTP", "IndicativeClose",
		"Chng", "%Chng", "Volume", "ValueCrores", "52WH", "52WL", "30D%Chng", "365D%Chng",
	},
}

// AllIndicesView is the allIndices download.
var AllIndicesView = View{
	Name:           "all-indices",
	PreambleLines:  17,
	DateLineIndex:  12,
	DateFirstField: true,
	Columns: []string{
		"Index", "Current", "%Change", "Open", "High", "Low", "IndicativeClose",
		"PrevClose", "PrevDay", "1WAgo", "1MonthAgo", "1YrAgo", "52WH", "52WL",
		"365D%Chng", "30D%Chng",
	},
}

// Table is a parsed snapshot. Columns ends with AsOfColumn and every row
// carries AsOf in that position.
type Table struct {
	View    string     `json:"view"`
	Group   string     `json:"group,omitempty"`
	AsOf    string     `json:"as_of"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of column, or -1.
func (t Table) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the raw cell at row, column.
func (t Table) Value(row int, column string) (string, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// Decimal parses the cell at row, column. Placeholders such as "-" and
// empty cells give zero and ok=false.
func (t Table) Decimal(row int, column string) (d decimal.Decimal, ok bool, err error) {
	v, found := t.Value(row, column)
	v = strings.TrimSpace(v)
	if !found || v == "" || v == "-" {
		return decimal.Zero, false, nil
	}
	d, err = decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("column %s row %d: %w", column, row, err)
	}
	return d, true, nil
}

// Records returns the rows as column → value maps.
func (t Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(row) {
				record[c] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

func emptyTable(view View, group string) Table {
	return Table{
		View:    view.Name,
		Group:   group,
		Columns: append(append([]string{}, view.Columns...), AsOfColumn),
		Rows:    [][]string{},
	}
}

// Assembler fetches and parses snapshot downloads.
type Assembler struct {
	transport     transport.Transport
	homeURL       string
	segmentURL    string
	allIndicesURL string
	strict        bool
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithHomeURL overrides the priming page.
func WithHomeURL(u string) Option {
	return func(a *Assembler) { a.homeURL = u }
}

// WithSegmentURL overrides the constituents endpoint.
func WithSegmentURL(u string) Option {
	return func(a *Assembler) { a.segmentURL = u }
}

// WithAllIndicesURL overrides the all-indices endpoint.
func WithAllIndicesURL(u string) Option {
	return func(a *Assembler) { a.allIndicesURL = u }
}

// WithStrict makes rows that do not fit the view an ErrMalformedResponse
// instead of being skipped.
func WithStrict() Option {
	return func(a *Assembler) { a.strict = true }
}

// NewAssembler creates an Assembler.
func NewAssembler(t transport.Transport, options ...Option) *Assembler {
	a := &Assembler{
		transport:     t,
		homeURL:       transport.HomeURL,
		segmentURL:    SegmentEndpoint,
		allIndicesURL: AllIndicesEndpoint,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// SegmentURL builds the constituents download url for an index group.
func (a *Assembler) SegmentURL(groupKey string) string {
	q := url.Values{}
	q.Set("csv", "true")
	q.Set("index", groupKey)
	q.Set("selectValFormat", "crores")
	return a.segmentURL + "?" + q.Encode()
}

// FetchSegmentSnapshot fetches the constituents of an index group such as "NIFTY 50".
func (a *Assembler) FetchSegmentSnapshot(ctx context.Context, groupKey string) (Table, error) {
	return a.fetch(ctx, SegmentView, groupKey, a.SegmentURL(groupKey))
}

// FetchAllIndicesSnapshot fetches the all-indices view.
func (a *Assembler) FetchAllIndicesSnapshot(ctx context.Context) (Table, error) {
	return a.fetch(ctx, AllIndicesView, "", a.allIndicesURL)
}

// fetch never fails with a partial table: transport errors give an empty
// table and the error, a short body gives an empty table and no error.
func (a *Assembler) fetch(ctx context.Context, view View, group, endpoint string) (Table, error) {
	if err := transport.Prime(ctx, a.transport, a.homeURL); err != nil {
		zaplogger.Error("Snapshot priming request failed", zaplogger.Fields{
			"view":     view.Name,
			"endpoint": a.homeURL,
			"error":    err.Error(),
		})
		return emptyTable(view, group), err
	}

	body, err := a.transport.Get(ctx, endpoint)
	if err != nil {
		zaplogger.Error("Snapshot request failed", zaplogger.Fields{
			"view":     view.Name,
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		return emptyTable(view, group), fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}

	table, err := Parse(view, string(body), a.strict)
	table.Group = group
	return table, err
}

// Parse assembles a downloaded body under view. A body shorter than the
// preamble yields an empty table and no error: NSE withholds data outside
// market hours. Rows that do not fit the view are skipped, or rejected
// with ErrMalformedResponse when strict is set.
func Parse(view View, body string, strict bool) (Table, error) {
	table := emptyTable(view, "")

	lines := splitLines(body)
	if len(lines) < view.PreambleLines {
		zaplogger.Warn("Snapshot response shorter than preamble", zaplogger.Fields{
			"view":     view.Name,
			"lines":    len(lines),
			"expected": view.PreambleLines,
		})
		return table, nil
	}

	table.AsOf = asOfDate(lines[view.DateLineIndex], view.DateFirstField)

	skipped := 0
	for i, line := range lines[view.PreambleLines:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(recliner.ReclineLine(line, delimiter), delimiter)
		if len(fields) != len(view.Columns) {
			if strict {
				return emptyTable(view, ""), fmt.Errorf("%w: %s row %d has %d fields, want %d",
					ErrMalformedResponse, view.Name, i, len(fields), len(view.Columns))
			}
			skipped++
			continue
		}
		for j := range fields {
			fields[j] = strings.TrimSpace(fields[j])
		}
		table.Rows = append(table.Rows, append(fields, table.AsOf))
	}

	if skipped > 0 {
		zaplogger.Warn("Skipped malformed snapshot rows", zaplogger.Fields{
			"view":    view.Name,
			"skipped": skipped,
		})
	}
	return table, nil
}

func splitLines(body string) []string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	// a trailing newline is not a line
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func asOfDate(line string, firstField bool) string {
	date := strings.TrimSpace(strings.ReplaceAll(line, recliner.Quote, ""))
	if firstField {
		date = strings.TrimSpace(strings.SplitN(date, delimiter, 2)[0])
	}
	return date
}
