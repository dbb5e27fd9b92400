// Command render runs one dashboard pipeline once and prints the resulting
// view as JSON. It reads the same environment and dashboard.yaml as the
// server, so scale settings and default dataset paths match.
//
// Usage:
//
//	go run ./cmd/render \
//	  -dashboard turkey-landfills \
//	  -year 2022 \
//	  -csv data/sample/solid-waste-disposal_emissions_sources.csv \
//	  -fixed-time 2024-04-27T06:00:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/emissions-dashboard/internal/config"
	"github.com/couchcryptid/emissions-dashboard/internal/domain"
	"github.com/couchcryptid/emissions-dashboard/internal/observability"
	"github.com/couchcryptid/emissions-dashboard/internal/pipeline"
)

type options struct {
	dashboard string
	year      int
	csv       string
	out       string
	fixedTime string
}

func main() {
	var opts options
	flag.StringVar(&opts.dashboard, "dashboard", "", "dashboard id (required)")
	flag.IntVar(&opts.year, "year", 0, "cohort year; latest when omitted")
	flag.StringVar(&opts.csv, "csv", "", "override the dashboard's dataset path")
	flag.StringVar(&opts.out, "out", "", "write JSON here instead of stdout")
	flag.StringVar(&opts.fixedTime, "fixed-time", "", "RFC3339 timestamp for generated_at, for reproducible output")
	flag.Parse()

	if opts.dashboard == "" {
		flag.Usage()
		log.Fatal("missing required flag: -dashboard")
	}

	if err := execute(opts); err != nil {
		log.Fatal(err)
	}
}

func execute(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if opts.out == "" {
		return run(context.Background(), cfg, opts, os.Stdout)
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := run(context.Background(), cfg, opts, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func run(ctx context.Context, cfg *config.Config, opts options, w io.Writer) error {
	if opts.fixedTime != "" {
		ts, err := time.Parse(time.RFC3339, opts.fixedTime)
		if err != nil {
			return fmt.Errorf("invalid -fixed-time: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(ts))
		defer domain.SetClock(nil)
	}

	var selected []pipeline.Dashboard
	for _, d := range pipeline.DefaultDashboards(cfg) {
		if d.ID != opts.dashboard {
			continue
		}
		if opts.csv != "" {
			d.CSVPath = opts.csv
		}
		selected = append(selected, d)
	}
	if len(selected) == 0 {
		return fmt.Errorf("%w: %q", pipeline.ErrUnknownDashboard, opts.dashboard)
	}

	// Logs go to stderr so stdout stays valid JSON.
	logger := observability.NewLoggerTo(os.Stderr, cfg.LogLevel, "text")
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())

	svc, err := pipeline.NewService(selected, 1, logger, metrics)
	if err != nil {
		return err
	}
	if err := svc.Load(ctx); err != nil {
		return err
	}

	var year *int
	if opts.year != 0 {
		year = &opts.year
	}
	view, err := svc.View(ctx, opts.dashboard, year)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
