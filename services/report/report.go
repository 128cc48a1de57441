// Package report renders run results: the flat trade ledger, the per-cycle
// summary table, and aggregate metrics.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"jollygold-backtest/services/engine"
)

const dateLayout = "2006-01-02"

// prices print with thousands separators, the way the trading desk reads
// them.
var printer = message.NewPrinter(language.English)

// Metrics aggregates a run the way the results panel shows it.
type Metrics struct {
	Cycles      int     `json:"cycles"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate_pct"`
	TotalProfit float64 `json:"total_profit"`
	AvgProfit   float64 `json:"avg_profit_per_cycle"`
}

// Summarize computes run metrics from the cycle summaries.
func Summarize(res engine.Result) Metrics {
	m := Metrics{Cycles: len(res.Cycles), TotalProfit: res.TotalProfit}
	for _, c := range res.Cycles {
		if c.Profit > 0 {
			m.Wins++
		}
	}
	if m.Cycles > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Cycles) * 100
		m.AvgProfit = m.TotalProfit / float64(m.Cycles)
	}
	return m
}

// PrintLedger writes the ledger as an aligned text table.
func PrintLedger(w io.Writer, rows []engine.LedgerRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tAction\tLeg\tQty\tPrice\tAvgPrice\tStatus\tProfit\tCycle")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\t%s\t%s\t%d\n",
			r.Date.Format(dateLayout), r.Action, r.Leg, r.Quantity,
			money(r.Price), money(r.AvgPrice), r.Status, money(r.Profit), r.Cycle)
	}
	tw.Flush()
}

// PrintSummary writes the cycle table and the aggregate block.
func PrintSummary(w io.Writer, res engine.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Cycle\tStart\tEnd\tOutcome\tProfit\tCumulative")
	for _, c := range res.Cycles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.Cycle, c.StartDate.Format(dateLayout), c.EndDate.Format(dateLayout),
			c.Outcome, money(c.Profit), money(c.Cumulative))
	}
	tw.Flush()

	m := Summarize(res)
	fmt.Fprintf(w, "\nTotal Profit: %s\n", money(m.TotalProfit))
	fmt.Fprintf(w, "Total Cycles: %d\n", m.Cycles)
	fmt.Fprintf(w, "Win Rate: %.1f%%\n", m.WinRate)
	fmt.Fprintf(w, "Avg Profit/Cycle: %s\n", money(m.AvgProfit))
}

// WriteLedgerCSV materializes the ledger data contract.
func WriteLedgerCSV(w io.Writer, rows []engine.LedgerRow) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "action", "leg", "qty", "price", "avg_price", "status", "profit", "cycle"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format(dateLayout),
			r.Action,
			r.Leg,
			fmt.Sprintf("%g", r.Quantity),
			fmt.Sprintf("%.2f", r.Price),
			fmt.Sprintf("%.2f", r.AvgPrice),
			r.Status,
			fmt.Sprintf("%.2f", r.Profit),
			fmt.Sprintf("%d", r.Cycle),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV materializes the cycle-summary data contract.
func WriteSummaryCSV(w io.Writer, cycles []engine.CycleSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"cycle", "start_date", "end_date", "outcome", "profit", "cumulative_profit"}); err != nil {
		return err
	}
	for _, c := range cycles {
		rec := []string{
			fmt.Sprintf("%d", c.Cycle),
			c.StartDate.Format(dateLayout),
			c.EndDate.Format(dateLayout),
			c.Outcome,
			fmt.Sprintf("%.2f", c.Profit),
			fmt.Sprintf("%.2f", c.Cumulative),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return printer.Sprintf("%.2f", v)
}
