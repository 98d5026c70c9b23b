package saver

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
)

// CSVSaver writes bars as csv (header: t,o,h,l,c,v).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) ContentType() string { return "text/csv" }

func (CSVSaver) Write(out io.Writer, bars []historical.Bar) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"t", "o", "h", "l", "c", "v"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			strconv.FormatInt(b.Volume, 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
