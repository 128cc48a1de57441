package engine

import "fmt"

// Config holds the per-run strategy parameters. Lots and Gaps are indexed by
// leg, first leg first; Gaps[0] is conventionally zero since leg 1 never
// waits for a gap.
type Config struct {
	Lots         []float64 // quantity per leg
	Gaps         []float64 // gap percentage per leg, Gaps[0] unused
	ProfitTarget float64   // fraction of average price, e.g. 0.01 for 1%
	Multiplier   float64   // notional scale on realized profit, 0 means 1
	MaxLegs      int       // cap on filled legs, 0 means len(Lots)
}

// DefaultConfig returns the stock parameter set: five legs 6/4/6/6/6 lots,
// gaps 0/1.0/1.5/2.0/2.5 percent, 1% profit target.
func DefaultConfig() Config {
	return Config{
		Lots:         []float64{6, 4, 6, 6, 6},
		Gaps:         []float64{0, 1.0, 1.5, 2.0, 2.5},
		ProfitTarget: 0.01,
	}
}

// Validate checks the leg tables before a run starts. Mistakes here are
// caller contract violations, so they fail the run up front rather than
// partway through a simulation.
func (c Config) Validate() error {
	if len(c.Lots) == 0 {
		return fmt.Errorf("config: no leg quantities")
	}
	if len(c.Gaps) != len(c.Lots) {
		return fmt.Errorf("config: %d leg quantities but %d gap percentages", len(c.Lots), len(c.Gaps))
	}
	for i, q := range c.Lots {
		if q <= 0 {
			return fmt.Errorf("config: leg %d quantity %v is not positive", i+1, q)
		}
	}
	for i, g := range c.Gaps {
		if i == 0 {
			continue
		}
		if g <= 0 {
			return fmt.Errorf("config: leg %d gap %v is not positive", i+1, g)
		}
	}
	if c.ProfitTarget <= 0 {
		return fmt.Errorf("config: profit target %v is not positive", c.ProfitTarget)
	}
	if c.Multiplier < 0 {
		return fmt.Errorf("config: multiplier %v is negative", c.Multiplier)
	}
	if c.MaxLegs < 0 || c.MaxLegs > len(c.Lots) {
		return fmt.Errorf("config: max legs %d outside 1..%d", c.MaxLegs, len(c.Lots))
	}
	return nil
}

func (c Config) maxLegs() int {
	if c.MaxLegs == 0 {
		return len(c.Lots)
	}
	return c.MaxLegs
}

func (c Config) multiplier() float64 {
	if c.Multiplier == 0 {
		return 1
	}
	return c.Multiplier
}
