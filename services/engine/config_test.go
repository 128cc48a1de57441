package engine

import "testing"

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := DefaultConfig()

	cases := map[string]func(*Config){
		"no lots":             func(c *Config) { c.Lots = nil },
		"length mismatch":     func(c *Config) { c.Gaps = c.Gaps[:3] },
		"zero lot":            func(c *Config) { c.Lots[2] = 0 },
		"negative lot":        func(c *Config) { c.Lots[0] = -4 },
		"zero gap past leg 1": func(c *Config) { c.Gaps[1] = 0 },
		"negative gap":        func(c *Config) { c.Gaps[3] = -2 },
		"zero target":         func(c *Config) { c.ProfitTarget = 0 },
		"negative multiplier": func(c *Config) { c.Multiplier = -1 },
		"max legs too large":  func(c *Config) { c.MaxLegs = 6 },
	}
	for name, mutate := range cases {
		cfg := base
		cfg.Lots = append([]float64(nil), base.Lots...)
		cfg.Gaps = append([]float64(nil), base.Gaps...)
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateAllowsZeroFirstGap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gaps[0] = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("first gap of zero should pass: %v", err)
	}
}
