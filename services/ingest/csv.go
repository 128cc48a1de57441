// Package ingest reads daily contract bars out of CSV and spreadsheet
// exports and normalizes them into the engine's bar-series contract:
// deduplicated, ascending by date, one row per contract per day.
package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"jollygold-backtest/services/engine"
)

// dateFormats covers the exports seen in the wild: ISO, day-first numeric,
// and month-name forms. Tried in order, first match wins.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// LoadCSV reads bars from a file, decoding UTF-16 exports when a BOM is
// present.
func LoadCSV(path string) ([]engine.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if head, _ := br.Peek(2); len(head) == 2 &&
		((head[0] == 0xFF && head[1] == 0xFE) || (head[0] == 0xFE && head[1] == 0xFF)) {
		r = transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	}
	return Read(r)
}

// Read parses bars from CSV text. The header row is matched
// case-insensitively; the expiry column is any header containing "expiry".
func Read(r io.Reader) ([]engine.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []engine.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= cols.max() {
			continue
		}

		date, err := parseDate(rec[cols.date])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		expiry, err := parseDate(rec[cols.expiry])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar := engine.Bar{Date: date, Expiry: expiry}
		for _, p := range []struct {
			idx int
			dst *float64
		}{
			{cols.open, &bar.Open},
			{cols.high, &bar.High},
			{cols.low, &bar.Low},
			{cols.close, &bar.Close},
		} {
			v, err := cleanNumeric(rec[p.idx])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			*p.dst = v
		}
		bars = append(bars, bar)
	}

	return normalize(bars), nil
}

type columns struct {
	date, open, high, low, close, expiry int
}

func (c columns) max() int {
	m := c.date
	for _, v := range []int{c.open, c.high, c.low, c.close, c.expiry} {
		if v > m {
			m = v
		}
	}
	return m
}

func mapColumns(header []string) (columns, error) {
	cols := columns{date: -1, open: -1, high: -1, low: -1, close: -1, expiry: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch {
		case strings.Contains(name, "expiry"):
			cols.expiry = i
		case name == "date" || name == "trade date":
			cols.date = i
		case name == "open":
			cols.open = i
		case name == "high":
			cols.high = i
		case name == "low":
			cols.low = i
		case name == "close":
			cols.close = i
		}
	}
	switch {
	case cols.date < 0:
		return cols, fmt.Errorf("no date column in header %v", header)
	case cols.expiry < 0:
		return cols, fmt.Errorf("no expiry column in header %v", header)
	case cols.open < 0 || cols.high < 0 || cols.low < 0 || cols.close < 0:
		return cols, fmt.Errorf("missing OHLC column in header %v", header)
	}
	return cols, nil
}

// cleanNumeric strips quoting and thousands separators before parsing, so
// spreadsheet values like "78,123.50" come through.
func cleanNumeric(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\"", "")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// normalize sorts ascending by (date, expiry) and drops duplicate
// (date, expiry) rows, keeping the last occurrence.
func normalize(bars []engine.Bar) []engine.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].Date.Equal(bars[j].Date) {
			return bars[i].Date.Before(bars[j].Date)
		}
		return bars[i].Expiry.Before(bars[j].Expiry)
	})
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) && out[n-1].Expiry.Equal(b.Expiry) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
