package saver

import (
	"encoding/json"
	"io"

	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
)

// JSONSaver writes bars as a json array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) ContentType() string { return "application/json" }

func (JSONSaver) Write(w io.Writer, bars []historical.Bar) error {
	if bars == nil {
		bars = []historical.Bar{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(bars)
}
