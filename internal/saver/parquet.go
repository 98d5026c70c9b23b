package saver

import (
	"io"

	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/parquet-go/parquet-go"
)

// ParquetSaver writes bars as parquet.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetSaver) Write(w io.Writer, bars []historical.Bar) error {
	return parquet.Write(w, bars)
}
