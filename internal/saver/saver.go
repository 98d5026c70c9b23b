// Package saver writes bar series as csv, json or parquet.
package saver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
)

// ErrUnsupportedFormat is returned by New for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Formats lists the supported output formats.
var Formats = []string{"csv", "json", "parquet"}

// BarSaver encodes bars in one format.
type BarSaver interface {
	Write(w io.Writer, bars []historical.Bar) error
	Extension() string
	ContentType() string
}

// New returns the saver for format (csv, json, parquet).
func New(format string) (BarSaver, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}, nil
	case "json":
		return JSONSaver{}, nil
	case "parquet":
		return ParquetSaver{}, nil
	}
	return nil, fmt.Errorf("%w: %q (use: %s)", ErrUnsupportedFormat, format, strings.Join(Formats, ", "))
}

// Save writes bars to path with s.
func Save(s BarSaver, bars []historical.Bar, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return s.Write(f, bars)
}

// FileName is the default output name of a series.
func FileName(s historical.Series, saver BarSaver) string {
	symbol := strings.NewReplacer(" ", "_", "/", "_").Replace(s.Symbol)
	return fmt.Sprintf("%s_%s_%s.%s", s.Segment, symbol, s.Interval, saver.Extension())
}
