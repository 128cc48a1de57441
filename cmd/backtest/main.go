//! Backtest runner - simulates the expiry-cycle averaging strategy over a
//! daily contract CSV and prints the trade ledger and cycle summary.

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jollygold-backtest/services/engine"
	"jollygold-backtest/services/ingest"
	"jollygold-backtest/services/report"
)

func main() {
	var (
		csvFile     = flag.String("csv", "", "Path to CSV file with daily contract bars (date,open,high,low,close,expiry)")
		startStr    = flag.String("start", "", "Start date (YYYY-MM-DD), default: first bar")
		endStr      = flag.String("end", "", "End date (YYYY-MM-DD), default: last bar")
		mode        = flag.String("mode", "continuous", "Run mode: 'continuous' or 'single' (one cycle only)")
		schedName   = flag.String("scheduler", "contiguous", "Cycle scheduler: 'contiguous' or 'calendar'")
		lotsStr     = flag.String("lots", "6,4,6,6,6", "Per-leg quantities, comma separated")
		gapsStr     = flag.String("gaps", "0,1.0,1.5,2.0,2.5", "Per-leg gap percentages, comma separated (first unused)")
		target      = flag.Float64("target", 1.0, "Profit target in percent of average price")
		multiplier  = flag.Float64("multiplier", 0, "Notional multiplier on realized profit (0 = 1)")
		maxLegs     = flag.Int("max-legs", 0, "Cap on filled legs (0 = all configured legs)")
		ledgerOut   = flag.String("out", "ledger.csv", "Output CSV for the trade ledger")
		summaryOut  = flag.String("summary-out", "cycles.csv", "Output CSV for the cycle summary")
		logFile     = flag.String("log-file", "", "Optional log file to tee output into")
		quiet       = flag.Bool("quiet", false, "Suppress the ledger table on stdout")
	)
	flag.Parse()

	if *logFile != "" {
		if err := os.MkdirAll(filepath.Dir(*logFile), 0o755); err == nil {
			if f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				log.SetOutput(io.MultiWriter(os.Stdout, f))
			}
		}
	}

	if *csvFile == "" {
		fmt.Println("Error: -csv flag is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*csvFile); os.IsNotExist(err) {
		log.Fatalf("CSV file does not exist: %s", *csvFile)
	}

	bars, err := ingest.LoadCSV(*csvFile)
	if err != nil {
		log.Fatalf("load bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars parsed from %s", *csvFile)
	}
	series := engine.NewSeries(bars)
	log.Printf("Loaded %d bars across %d trading days (%s to %s)",
		len(bars), series.Len(),
		series.Day(0).Date.Format("2006-01-02"),
		series.Day(series.Len()-1).Date.Format("2006-01-02"))

	cfg := engine.Config{
		Lots:         parseFloats(*lotsStr),
		Gaps:         parseFloats(*gapsStr),
		ProfitTarget: *target / 100,
		Multiplier:   *multiplier,
		MaxLegs:      *maxLegs,
	}

	opts := engine.Options{
		SingleCycle: *mode == "single",
		Start:       parseDateFlag(*startStr, series.Day(0).Date),
		End:         parseDateFlag(*endStr, time.Time{}),
	}
	switch *schedName {
	case "calendar":
		opts.Scheduler = engine.CalendarScheduler{}
	default:
		opts.Scheduler = engine.ContiguousScheduler{}
	}

	lastPct := -10
	opts.Progress = func(done, total int) {
		pct := done * 100 / total
		if pct/10 != lastPct/10 {
			lastPct = pct
			log.Printf("progress: %d%%", pct)
		}
	}

	started := time.Now()
	res, err := engine.Run(series, cfg, opts)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	log.Printf("Simulation finished in %s: %d cycles, %d ledger rows",
		time.Since(started).Round(time.Millisecond), len(res.Cycles), len(res.Ledger))

	if !*quiet {
		fmt.Println("\n--- Trade Ledger ---")
		report.PrintLedger(os.Stdout, res.Ledger)
	}
	fmt.Println("\n--- Cycle Summary ---")
	report.PrintSummary(os.Stdout, res)

	if err := writeCSV(*ledgerOut, func(w io.Writer) error {
		return report.WriteLedgerCSV(w, res.Ledger)
	}); err != nil {
		log.Fatalf("write ledger: %v", err)
	}
	if err := writeCSV(*summaryOut, func(w io.Writer) error {
		return report.WriteSummaryCSV(w, res.Cycles)
	}); err != nil {
		log.Fatalf("write summary: %v", err)
	}
	log.Printf("Wrote %s and %s", *ledgerOut, *summaryOut)
}

func parseFloats(s string) []float64 {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Fatalf("bad number %q in %q", p, s)
		}
		out = append(out, v)
	}
	return out
}

func parseDateFlag(s string, def time.Time) time.Time {
	if s == "" {
		return def
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatalf("bad date %q (want YYYY-MM-DD)", s)
	}
	return t
}

func writeCSV(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}
