package engine

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func approx(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

// openCycle starts a cycle at a high of 78000 with close 77900, expiring at
// the given date.
func openCycle(t *testing.T, expiry time.Time) *Cycle {
	t.Helper()
	c := NewCycle(DefaultConfig())
	entry := Bar{
		Date: date(2025, time.March, 3), Open: 77800, High: 78000,
		Low: 77600, Close: 77900, Expiry: expiry,
	}
	leg := c.OpenAt(entry, entry.High, ReasonStartHigh)
	if leg.Seq != 1 || leg.Price != 78000 || leg.AvgAfter != 78000 {
		t.Fatalf("unexpected leg 1: %+v", leg)
	}
	return c
}

func TestTargetExitAtExactTarget(t *testing.T) {
	c := openCycle(t, date(2025, time.May, 28))

	bar := Bar{Date: date(2025, time.March, 5), Open: 78500, High: 79500, Low: 78300, Close: 79000, Expiry: date(2025, time.May, 28)}
	leg, exit := c.Step(bar)
	if leg != nil {
		t.Fatal("target bar must not fill a leg")
	}
	if exit == nil || exit.Outcome != OutcomeTargetHit {
		t.Fatalf("expected target hit, got %+v", exit)
	}
	approx(t, exit.Price, 78000*1.01, "exit price")
	approx(t, c.Profit(), (78000*1.01-78000)*6, "profit")
}

func TestTargetTakesPriorityOverExpiry(t *testing.T) {
	expiry := date(2025, time.May, 28)
	c := openCycle(t, expiry)

	// Expiry day, but the high also clears the target.
	bar := Bar{Date: expiry, Open: 78500, High: 79500, Low: 78300, Close: 78400, Expiry: expiry}
	_, exit := c.Step(bar)
	if exit == nil || exit.Outcome != OutcomeTargetHit {
		t.Fatalf("expiry-day target bar must close as target hit, got %+v", exit)
	}
}

func TestExpiryNoProfitNoLossExit(t *testing.T) {
	expiry := date(2025, time.May, 28)
	c := openCycle(t, expiry)

	// High reaches the average but not the target.
	bar := Bar{Date: expiry, Open: 77700, High: 78100, Low: 77500, Close: 77800, Expiry: expiry}
	_, exit := c.Step(bar)
	if exit == nil || exit.Outcome != OutcomeExpiryNPNL {
		t.Fatalf("expected NPNL expiry, got %+v", exit)
	}
	if exit.Price != 78000 {
		t.Fatalf("NPNL exit price = %v, want average 78000", exit.Price)
	}
	approx(t, c.Profit(), 0, "NPNL profit")
}

func TestExpiryLossExitAtClose(t *testing.T) {
	expiry := date(2025, time.May, 28)
	c := openCycle(t, expiry)

	bar := Bar{Date: expiry, Open: 77200, High: 77600, Low: 76900, Close: 77000, Expiry: expiry}
	_, exit := c.Step(bar)
	if exit == nil || exit.Outcome != OutcomeExpiryLoss {
		t.Fatalf("expected loss expiry, got %+v", exit)
	}
	if exit.Price != 77000 {
		t.Fatalf("loss exit price = %v, want close 77000", exit.Price)
	}
	approx(t, c.Profit(), (77000-78000)*6, "loss")
}

func TestLegFillsAtOpenOnGapDown(t *testing.T) {
	c := openCycle(t, date(2025, time.May, 28))

	// Leg 2 trigger: min(78000-800, 77900-800) = 77100. Open gaps below it.
	bar := Bar{Date: date(2025, time.March, 6), Open: 76900, High: 77300, Low: 76800, Close: 77200, Expiry: date(2025, time.May, 28)}
	leg, exit := c.Step(bar)
	if exit != nil {
		t.Fatalf("unexpected exit %+v", exit)
	}
	if leg == nil || leg.Seq != 2 {
		t.Fatalf("expected leg 2 fill, got %+v", leg)
	}
	if leg.Price != 76900 || leg.Reason != ReasonGapDown {
		t.Fatalf("gap-down fill = %+v, want open 76900", leg)
	}
	// Weighted average of 6 @ 78000 and 4 @ 76900.
	if leg.AvgAfter != 77560 {
		t.Fatalf("average after leg 2 = %v, want 77560", leg.AvgAfter)
	}
	if c.Position().LastFillClose != 77200 {
		t.Fatalf("last fill close = %v, want bar close", c.Position().LastFillClose)
	}
}

func TestLegFillsAtTriggerWhenOpenAbove(t *testing.T) {
	c := openCycle(t, date(2025, time.May, 28))

	bar := Bar{Date: date(2025, time.March, 6), Open: 77500, High: 77600, Low: 77050, Close: 77300, Expiry: date(2025, time.May, 28)}
	leg, _ := c.Step(bar)
	if leg == nil || leg.Price != 77100 || leg.Reason != ReasonLimitHit {
		t.Fatalf("limit fill = %+v, want trigger 77100", leg)
	}
	if leg.AvgAfter != 77640 {
		t.Fatalf("average after leg 2 = %v, want 77640", leg.AvgAfter)
	}
}

func TestNoLegAboveTrigger(t *testing.T) {
	c := openCycle(t, date(2025, time.May, 28))

	bar := Bar{Date: date(2025, time.March, 6), Open: 77700, High: 77900, Low: 77200, Close: 77500, Expiry: date(2025, time.May, 28)}
	leg, exit := c.Step(bar)
	if leg != nil || exit != nil {
		t.Fatalf("no transition expected, got leg=%+v exit=%+v", leg, exit)
	}
}

func TestMaxLegsCapStopsEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLegs = 2
	c := NewCycle(cfg)
	expiry := date(2025, time.May, 28)
	c.OpenAt(Bar{Date: date(2025, time.March, 3), Open: 77800, High: 78000, Low: 77600, Close: 77900, Expiry: expiry}, 78000, ReasonStartHigh)

	// Fills leg 2.
	leg, _ := c.Step(Bar{Date: date(2025, time.March, 4), Open: 77500, High: 77600, Low: 77000, Close: 77100, Expiry: expiry})
	if leg == nil || leg.Seq != 2 {
		t.Fatalf("expected leg 2, got %+v", leg)
	}
	// A much deeper low must not fill leg 3 with the cap at 2.
	leg, exit := c.Step(Bar{Date: date(2025, time.March, 5), Open: 75500, High: 75800, Low: 74000, Close: 75000, Expiry: expiry})
	if leg != nil {
		t.Fatalf("leg cap breached: %+v", leg)
	}
	if exit != nil {
		t.Fatalf("unexpected exit %+v", exit)
	}
}

func TestAtMostOneTransitionPerBar(t *testing.T) {
	c := openCycle(t, date(2025, time.May, 28))

	// Wide bar touching both the target and the leg-2 trigger: only the
	// higher-priority exit may fire, and it leaves no fill behind.
	bar := Bar{Date: date(2025, time.March, 6), Open: 78000, High: 79500, Low: 76500, Close: 77000, Expiry: date(2025, time.May, 28)}
	leg, exit := c.Step(bar)
	if exit == nil || exit.Outcome != OutcomeTargetHit {
		t.Fatalf("expected target exit, got %+v", exit)
	}
	if leg != nil {
		t.Fatalf("exit bar must not also fill a leg: %+v", leg)
	}
	if len(c.Legs()) != 1 {
		t.Fatalf("leg count = %d after exit, want 1", len(c.Legs()))
	}
}

func TestStepAfterCloseDoesNothing(t *testing.T) {
	expiry := date(2025, time.May, 28)
	c := openCycle(t, expiry)
	if _, exit := c.Step(Bar{Date: expiry, Open: 77000, High: 77100, Low: 76800, Close: 76900, Expiry: expiry}); exit == nil {
		t.Fatal("expected expiry exit")
	}
	leg, exit := c.Step(Bar{Date: expiry.AddDate(0, 0, 1), Open: 80000, High: 81000, Low: 79000, Close: 80500, Expiry: expiry})
	if leg != nil || exit != nil {
		t.Fatal("closed cycle must ignore further bars")
	}
}
