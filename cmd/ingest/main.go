// One-shot installer: parses a daily contract CSV export and loads it into
// the ClickHouse bar table with replace-on-reingest semantics.
package main

import (
	"context"
	"flag"
	"log"

	"jollygold-backtest/services/clickhouse"
	"jollygold-backtest/services/ingest"
)

func main() {
	csvFile := flag.String("csv", "", "Path to CSV file with daily contract bars")
	flag.Parse()

	if *csvFile == "" {
		log.Fatal("-csv flag is required")
	}

	bars, err := ingest.LoadCSV(*csvFile)
	if err != nil {
		log.Fatalf("load bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars parsed from %s", *csvFile)
	}
	log.Printf("Parsed %d bars from %s", len(bars), *csvFile)

	store, err := clickhouse.NewStore(clickhouse.FromEnv())
	if err != nil {
		log.Fatalf("clickhouse connect: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	if err := store.InsertBars(ctx, bars); err != nil {
		log.Fatalf("insert bars: %v", err)
	}
	log.Printf("Inserted %d bars (%s to %s)", len(bars),
		bars[0].Date.Format("2006-01-02"), bars[len(bars)-1].Date.Format("2006-01-02"))
}
