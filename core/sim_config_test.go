package core

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestDefaultSimConfigIsValid(t *testing.T) {
	cfg := DefaultSimConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.MaxDepth != 10 || cfg.DegradeAmount != 0.25 || cfg.EntryDirection != (r3.Vec{Z: -1}) {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestSimConfigValidate(t *testing.T) {
	cases := map[string]func(*SimConfig){
		"zero entry dir":   func(c *SimConfig) { c.EntryDirection = r3.Vec{} },
		"zero next dir":    func(c *SimConfig) { c.NextDirection = r3.Vec{} },
		"align too large":  func(c *SimConfig) { c.NextMinAlign = 1.5 },
		"no water":         func(c *SimConfig) { c.InitialWater = 0 },
		"negative cost":    func(c *SimConfig) { c.WaterBaseCost = -1 },
		"probability":      func(c *SimConfig) { c.WaterAbsorbContinueProb = 2 },
		"negative degrade": func(c *SimConfig) { c.DegradeAmount = -0.1 },
		"depth":            func(c *SimConfig) { c.MaxDepth = 0 },
		"infiltrations":    func(c *SimConfig) { c.NumInfiltrations = -1 },
		"nan entry align":  func(c *SimConfig) { c.EntryMinAlign = math.NaN() },
		"nan next align":   func(c *SimConfig) { c.NextMinAlign = math.NaN() },
		"nan entry dir":    func(c *SimConfig) { c.EntryDirection.X = math.NaN() },
		"inf next dir":     func(c *SimConfig) { c.NextDirection.Z = math.Inf(-1) },
		"nan continue":     func(c *SimConfig) { c.WaterAbsorbContinueProb = math.NaN() },
	}
	for name, mutate := range cases {
		cfg := DefaultSimConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: error = %v, want ErrInvalidConfig", name, err)
		}
	}
}

func TestLoadSimConfig(t *testing.T) {
	doc := `{
		"next_direction": [0, 1, 0],
		"max_depth": 25,
		"degrade_amount": 0.1,
		"random_seed": 42,
		"accumulate_path": true
	}`
	cfg, err := LoadSimConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadSimConfig error: %v", err)
	}
	if cfg.NextDirection != (r3.Vec{Y: 1}) || cfg.MaxDepth != 25 || cfg.DegradeAmount != 0.1 || cfg.RandomSeed != 42 || !cfg.AccumulatePath {
		t.Fatalf("fields not applied: %+v", cfg)
	}
	if cfg.EntryDirection != (r3.Vec{Z: -1}) || cfg.WaterBaseCost != 0.01 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}

	if _, err := LoadSimConfig(strings.NewReader(`{"max_dept": 3}`)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown field error = %v, want ErrInvalidConfig", err)
	}
	if _, err := LoadSimConfig(strings.NewReader(`{"max_depth": 0}`)); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("invalid value error = %v, want ErrInvalidConfig", err)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultSimConfig()
	err := cfg.ApplyOverrides(map[string]string{
		"entry_direction":   "1, 0, -1",
		"num_infiltrations": "8",
		"log_steps":         "true",
		"random_seed":       "-5",
	})
	if err != nil {
		t.Fatalf("ApplyOverrides error: %v", err)
	}
	if cfg.EntryDirection != (r3.Vec{X: 1, Z: -1}) || cfg.NumInfiltrations != 8 || !cfg.LogSteps || cfg.RandomSeed != -5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	for _, kv := range []map[string]string{
		{"bogus": "1"},
		{"max_depth": "ten"},
		{"next_direction": "1,2"},
		{"max_depth": "0"},
	} {
		c := DefaultSimConfig()
		if err := c.ApplyOverrides(kv); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("ApplyOverrides(%v) error = %v, want ErrInvalidConfig", kv, err)
		}
	}
}
