package engine

// Scheduler decides which bar/contract starts the next cycle. The two
// policies correspond to a single unbroken contract series versus a series
// carrying several concurrent expiries per day.
type Scheduler interface {
	// SelectEntry picks the contract to open on the given day, or reports
	// that no cycle may start that day.
	SelectEntry(day Day) (Bar, bool)
	// NextStart returns the day index to resume scanning from after a cycle
	// exits on day exitIdx.
	NextStart(s *Series, exitIdx int) int
}

// ContiguousScheduler restarts on the bar immediately after the exit bar,
// skipping one further bar if that bar's date is already past its own
// expiry.
type ContiguousScheduler struct{}

func (ContiguousScheduler) SelectEntry(day Day) (Bar, bool) {
	if len(day.Bars) == 0 {
		return Bar{}, false
	}
	return day.Bars[0], true
}

func (ContiguousScheduler) NextStart(s *Series, exitIdx int) int {
	next := exitIdx + 1
	if next < s.Len() {
		b := s.Day(next).Bars[0]
		if !b.Date.Before(b.Expiry) {
			next++
		}
	}
	return next
}

// nearMonthCutoffDay splits each month for contract selection: through the
// 7th the target expiry is two months out, after that three.
const nearMonthCutoffDay = 7

// CalendarScheduler picks among concurrent contracts by expiry month. Days
// with no contract expiring in the target month are skipped; the orchestrator
// re-evaluates on the next day.
type CalendarScheduler struct{}

func (CalendarScheduler) SelectEntry(day Day) (Bar, bool) {
	offset := 3
	if day.Date.Day() <= nearMonthCutoffDay {
		offset = 2
	}
	year, month := addMonths(day.Date.Year(), int(day.Date.Month()), offset)
	for _, b := range day.Bars {
		if b.Expiry.Year() == year && int(b.Expiry.Month()) == month {
			return b, true
		}
	}
	return Bar{}, false
}

func (CalendarScheduler) NextStart(_ *Series, exitIdx int) int { return exitIdx + 1 }

func addMonths(year, month, n int) (int, int) {
	month += n
	for month > 12 {
		month -= 12
		year++
	}
	return year, month
}
