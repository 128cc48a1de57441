package engine

import "time"

// Exit records how a cycle closed.
type Exit struct {
	Date    time.Time
	Price   float64
	Outcome string
}

// Cycle drives one position from first fill to close. It owns the Position
// exclusively and appends one Leg per fill; Step applies at most one
// transition per bar.
type Cycle struct {
	cfg  Config
	pos  Position
	legs []Leg
	exit *Exit
}

// NewCycle prepares an empty cycle. cfg must already be validated.
func NewCycle(cfg Config) *Cycle { return &Cycle{cfg: cfg} }

// OpenAt fills leg 1 on the entry bar and locks the position to the bar's
// contract expiry. price is the day's high on a cold start, or the carried
// restart price from the previous cycle's exit.
func (c *Cycle) OpenAt(bar Bar, price float64, reason string) Leg {
	c.pos.Expiry = bar.Expiry
	leg := c.pos.fill(bar.Date, c.cfg.Lots[0], price, bar.Close, reason)
	c.legs = append(c.legs, leg)
	return leg
}

// Step consumes one bar of the locked contract while the position is open.
// The transition rules run in fixed priority order: profit target, then
// expiry, then next-leg entry. Only the first match applies, so a bar that
// satisfies both the target and the expiry condition always closes as a
// target hit.
func (c *Cycle) Step(bar Bar) (*Leg, *Exit) {
	if !c.pos.Open || c.exit != nil {
		return nil, nil
	}

	target := c.pos.AvgPrice * (1 + c.cfg.ProfitTarget)
	if bar.High >= target {
		return nil, c.close(bar.Date, target, OutcomeTargetHit)
	}

	if !bar.Date.Before(c.pos.Expiry) {
		// A high at or above average means a flat close was achievable
		// intraday; otherwise the position settles at the day's close.
		if bar.High >= c.pos.AvgPrice {
			return nil, c.close(bar.Date, c.pos.AvgPrice, OutcomeExpiryNPNL)
		}
		return nil, c.close(bar.Date, bar.Close, OutcomeExpiryLoss)
	}

	if c.pos.Legs < c.cfg.maxLegs() {
		next := c.pos.Legs // zero-based index of the next leg
		pct := c.cfg.Gaps[next]
		trigger := min(
			c.pos.AvgPrice-CeiledGap(c.pos.AvgPrice, pct),
			c.pos.LastFillClose-CeiledGap(c.pos.LastFillClose, pct),
		)
		if bar.Low <= trigger {
			price, reason := trigger, ReasonLimitHit
			if bar.Open < trigger {
				// Gapped through the level: filled at the better open.
				price, reason = bar.Open, ReasonGapDown
			}
			leg := c.pos.fill(bar.Date, c.cfg.Lots[next], price, bar.Close, reason)
			c.legs = append(c.legs, leg)
			return &c.legs[len(c.legs)-1], nil
		}
	}
	return nil, nil
}

// ForceClose ends the cycle when the locked contract disappears from the
// data past its own expiry. The exit is booked at the average price, so the
// realized profit is zero.
func (c *Cycle) ForceClose(date time.Time) *Exit {
	return c.close(date, c.pos.AvgPrice, OutcomeDataGap)
}

func (c *Cycle) close(date time.Time, price float64, outcome string) *Exit {
	c.exit = &Exit{Date: date, Price: price, Outcome: outcome}
	return c.exit
}

// Position returns a copy of the current position state.
func (c *Cycle) Position() Position { return c.pos }

// Legs returns the fills recorded so far, in order.
func (c *Cycle) Legs() []Leg { return c.legs }

// Profit is the realized profit of a closed cycle, zero while open.
func (c *Cycle) Profit() float64 {
	if c.exit == nil {
		return 0
	}
	return (c.exit.Price - c.pos.AvgPrice) * c.pos.Quantity
}
