package engine

import (
	"fmt"
	"time"
)

// restartOffset is added to a cycle's exit price to form the synthetic
// leg-1 fill price of the next cycle.
const restartOffset = 5.0

// Ledger actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
)

// LedgerRow is one fill or exit in the flat, chronological run ledger.
// Profit is zero for BUY rows.
type LedgerRow struct {
	Date     time.Time `json:"date"`
	Action   string    `json:"action"`
	Leg      string    `json:"leg"`
	Quantity float64   `json:"qty"`
	Price    float64   `json:"price"`
	AvgPrice float64   `json:"avg_price"`
	Status   string    `json:"status"`
	Profit   float64   `json:"profit"`
	Cycle    int       `json:"cycle"`
}

// CycleSummary is one closed cycle in the run report.
type CycleSummary struct {
	Cycle      int       `json:"cycle"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Outcome    string    `json:"outcome"`
	Profit     float64   `json:"profit"`
	Cumulative float64   `json:"cumulative_profit"`
}

// Options controls a single Run invocation. A nil Scheduler means the
// contiguous-index policy; a zero End means the end of the series. Progress,
// when set, is called once per processed day and must not influence results.
type Options struct {
	Start       time.Time
	End         time.Time
	SingleCycle bool
	Scheduler   Scheduler
	Progress    func(done, total int)
}

// Result is the complete output of one run. Ledger rows are in fill order;
// cycle summaries are in closing order.
type Result struct {
	Ledger      []LedgerRow
	Cycles      []CycleSummary
	TotalProfit float64
}

// Run folds the series through consecutive cycles from Start. In continuous
// mode no new cycle opens past End, but an in-flight position runs to its
// natural exit. When no bar exists on or after Start the result is empty and
// the error nil. Configuration violations fail before any bar is touched.
func Run(series *Series, cfg Config, opts Options) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = ContiguousScheduler{}
	}

	var res Result
	total := series.Len()
	di := series.FirstOnOrAfter(opts.Start)
	if di < 0 {
		return res, nil
	}
	end := opts.End
	if end.IsZero() && total > 0 {
		end = series.Day(total - 1).Date
	}
	tick := func(done int) {
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}

	restart := 0.0
	haveRestart := false
	cycleNum := 0

	for di < total {
		day := series.Day(di)
		if !opts.SingleCycle && day.Date.After(end) {
			break
		}

		entry, ok := sched.SelectEntry(day)
		if !ok {
			// No eligible contract today; re-evaluate tomorrow.
			tick(di + 1)
			di++
			continue
		}

		cyc := NewCycle(cfg)
		price, reason := entry.High, ReasonStartHigh
		if haveRestart && !opts.SingleCycle {
			price, reason = restart, ReasonCycleRestart
		}
		cycleNum++
		leg := cyc.OpenAt(entry, price, reason)
		res.Ledger = append(res.Ledger, buyRow(leg, cycleNum))
		tick(di + 1)

		// Walk the locked contract forward until the cycle exits or the
		// data runs out.
		var exit *Exit
		exitIdx := -1
		for j := di + 1; j < total; j++ {
			d := series.Day(j)
			bar, found := d.ForExpiry(cyc.Position().Expiry)
			if !found {
				tick(j + 1)
				if !d.Date.Before(cyc.Position().Expiry) {
					exit = cyc.ForceClose(d.Date)
					exitIdx = j
					break
				}
				continue
			}
			newLeg, ex := cyc.Step(bar)
			if newLeg != nil {
				res.Ledger = append(res.Ledger, buyRow(*newLeg, cycleNum))
			}
			tick(j + 1)
			if ex != nil {
				exit = ex
				exitIdx = j
				break
			}
		}

		if exit == nil {
			// Data exhausted with the position still open: the fills stay
			// in the ledger, but no cycle closes.
			break
		}

		pos := cyc.Position()
		profit := cyc.Profit() * cfg.multiplier()
		res.Ledger = append(res.Ledger, sellRow(*exit, pos, profit, cycleNum))
		res.TotalProfit += profit
		res.Cycles = append(res.Cycles, CycleSummary{
			Cycle:      cycleNum,
			StartDate:  day.Date,
			EndDate:    exit.Date,
			Outcome:    exit.Outcome,
			Profit:     profit,
			Cumulative: res.TotalProfit,
		})

		if opts.SingleCycle {
			break
		}
		restart = exit.Price + restartOffset
		haveRestart = true
		di = sched.NextStart(series, exitIdx)
	}
	return res, nil
}

func buyRow(leg Leg, cycle int) LedgerRow {
	return LedgerRow{
		Date:     leg.Date,
		Action:   ActionBuy,
		Leg:      fmt.Sprintf("Leg %d", leg.Seq),
		Quantity: leg.Quantity,
		Price:    leg.Price,
		AvgPrice: leg.AvgAfter,
		Status:   leg.Reason,
		Cycle:    cycle,
	}
}

func sellRow(exit Exit, pos Position, profit float64, cycle int) LedgerRow {
	label := "Expiry"
	status := exit.Outcome
	if exit.Outcome == OutcomeTargetHit {
		label, status = "Target", "Profit Exit"
	}
	return LedgerRow{
		Date:     exit.Date,
		Action:   ActionSell,
		Leg:      label,
		Quantity: pos.Quantity,
		Price:    exit.Price,
		AvgPrice: pos.AvgPrice,
		Status:   status,
		Profit:   profit,
		Cycle:    cycle,
	}
}
