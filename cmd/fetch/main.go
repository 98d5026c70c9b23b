// Command fetch downloads NSE chart bars or index snapshots from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/internal/saver"
	"github.com/nsvirk/moneybotscharts/internal/service"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
)

type options struct {
	symbol   string
	segment  string
	interval string
	from     string
	to       string
	format   string
	out      string
	group    string
	strict   bool
	timeout  time.Duration
	logLevel string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.StringVar(&o.symbol, "symbol", "", "symbol or symbol fragment, e.g. RELIANCE")
	fs.StringVar(&o.segment, "segment", "NSE", "NSE (cash) or NFO (derivatives)")
	fs.StringVar(&o.interval, "interval", string(historical.DefaultInterval), "bar interval: 1m 3m 5m 10m 15m 30m 1h 1d 1w 1M")
	fs.StringVar(&o.from, "from", "", "start, YYYY-MM-DD or epoch seconds (default: earliest)")
	fs.StringVar(&o.to, "to", "", "end, YYYY-MM-DD or epoch seconds (default: now)")
	fs.StringVar(&o.format, "format", "csv", "output format: csv, json, parquet")
	fs.StringVar(&o.out, "out", "", "output file or directory (default: stdout for csv/json)")
	fs.StringVar(&o.group, "group", "", "fetch the snapshot of an index group instead of bars, \"all\" for all indices")
	fs.BoolVar(&o.strict, "strict", false, "reject unknown intervals and misfit snapshot rows instead of tolerating them")
	fs.DurationVar(&o.timeout, "timeout", transport.DefaultTimeout, "per-request timeout")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.symbol == "" && o.group == "" {
		return o, fmt.Errorf("-symbol or -group is required")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zaplogger.SetLogLevel(o.logLevel)
	defer zaplogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tr := transport.New(transport.WithTimeout(o.timeout))
	if err := run(ctx, o, tr, os.Stdout); err != nil {
		zaplogger.Error("fetch failed", zaplogger.Fields{"error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, tr transport.Transport, stdout io.Writer) error {
	if o.group != "" {
		return runSnapshot(ctx, o, tr, stdout)
	}

	params := models.HistoricalParams{
		Symbol:   o.symbol,
		Segment:  o.segment,
		Interval: o.interval,
		From:     o.from,
		To:       o.to,
		Strict:   o.strict,
	}
	req, err := service.ParseHistoricalParams(params)
	if err != nil {
		return err
	}
	s, err := saver.New(o.format)
	if err != nil {
		return err
	}

	dir := directory.New(tr)
	if _, err := dir.Refresh(ctx, req.Segment); err != nil {
		return err
	}

	var clientOptions []historical.Option
	if o.strict {
		clientOptions = append(clientOptions, historical.WithStrictIntervals())
	}
	series, err := historical.NewClient(tr, dir, clientOptions...).Historical(ctx, req)
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		zaplogger.Warn("No bars returned", zaplogger.Fields{"symbol": o.symbol, "segment": o.segment})
	}

	if o.out == "" {
		if _, ok := s.(saver.ParquetSaver); ok {
			o.out = "."
		} else {
			return s.Write(stdout, series.Bars)
		}
	}
	path := o.out
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, saver.FileName(series, s))
	}
	if err := saver.Save(s, series.Bars, path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d bars written to %s\n", series.Len(), path)
	return nil
}

func runSnapshot(ctx context.Context, o options, tr transport.Transport, stdout io.Writer) error {
	var assemblerOptions []snapshot.Option
	if o.strict {
		assemblerOptions = append(assemblerOptions, snapshot.WithStrict())
	}
	assembler := snapshot.NewAssembler(tr, assemblerOptions...)

	var (
		table snapshot.Table
		err   error
	)
	if o.group == "all" {
		table, err = assembler.FetchAllIndicesSnapshot(ctx)
	} else {
		table, err = assembler.FetchSegmentSnapshot(ctx, o.group)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(table.Records())
}
