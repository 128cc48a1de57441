package engine

import (
	"sort"
	"time"
)

// Bar is one daily OHLC row for a single contract. Several bars may share a
// Date when more than one expiry trades that day.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Expiry time.Time
}

// Day groups every contract trading on one calendar date.
type Day struct {
	Date time.Time
	Bars []Bar
}

// ForExpiry returns the day's bar for the given contract expiry.
func (d Day) ForExpiry(expiry time.Time) (Bar, bool) {
	for _, b := range d.Bars {
		if b.Expiry.Equal(expiry) {
			return b, true
		}
	}
	return Bar{}, false
}

// Series is a date-grouped view over a normalized bar sequence. Ingestion is
// expected to deliver bars deduplicated and sorted ascending by date.
type Series struct {
	days []Day
}

// NewSeries groups bars by calendar date, sorting by (date, expiry) first so
// the grouping holds for any input order.
func NewSeries(bars []Bar) *Series {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Expiry.Before(sorted[j].Expiry)
	})

	s := &Series{}
	for _, b := range sorted {
		n := len(s.days)
		if n > 0 && s.days[n-1].Date.Equal(b.Date) {
			s.days[n-1].Bars = append(s.days[n-1].Bars, b)
			continue
		}
		s.days = append(s.days, Day{Date: b.Date, Bars: []Bar{b}})
	}
	return s
}

// Len returns the number of trading days in the series.
func (s *Series) Len() int { return len(s.days) }

// Day returns the i-th trading day.
func (s *Series) Day(i int) Day { return s.days[i] }

// FirstOnOrAfter returns the index of the first day with Date >= t, or -1
// when no such day exists.
func (s *Series) FirstOnOrAfter(t time.Time) int {
	i := sort.Search(len(s.days), func(i int) bool {
		return !s.days[i].Date.Before(t)
	})
	if i == len(s.days) {
		return -1
	}
	return i
}
