package engine

import "time"

// Fill reason tags carried on ledger rows.
const (
	ReasonStartHigh    = "Start High"
	ReasonCycleRestart = "Cycle Restart"
	ReasonGapDown      = "Gap Down Entry"
	ReasonLimitHit     = "Limit Hit"
)

// Cycle outcome tags.
const (
	OutcomeTargetHit  = "Target Hit"
	OutcomeExpiryNPNL = "Expiry (NPNL)"
	OutcomeExpiryLoss = "Expiry (Loss)"
	OutcomeDataGap    = "Data Gap"
)

// Leg is one immutable buy fill inside a cycle.
type Leg struct {
	Seq      int
	Date     time.Time
	Quantity float64
	Price    float64
	AvgAfter float64
	Reason   string
}

// Position is the mutable state of the one open cycle. LastFillClose is the
// close of the most recent fill's day, the second reference point for the
// next-leg trigger.
type Position struct {
	Open          bool
	Legs          int
	Quantity      float64
	AvgPrice      float64
	LastFillClose float64
	Expiry        time.Time
}

// fill applies one buy, rolling the quantity-weighted average, and returns
// the recorded Leg.
func (p *Position) fill(date time.Time, qty, price, dayClose float64, reason string) Leg {
	newQty := p.Quantity + qty
	p.AvgPrice = (p.AvgPrice*p.Quantity + price*qty) / newQty
	p.Quantity = newQty
	p.LastFillClose = dayClose
	p.Legs++
	p.Open = true
	return Leg{
		Seq:      p.Legs,
		Date:     date,
		Quantity: qty,
		Price:    price,
		AvgAfter: p.AvgPrice,
		Reason:   reason,
	}
}
