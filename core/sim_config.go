package core

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// SimConfig holds the tunable parameters of the infiltration walk.
type SimConfig struct {
	// EntryDirection is the preferred direction of water entering through
	// a wall link. NextDirection is the preferred direction of travel.
	EntryDirection r3.Vec
	NextDirection  r3.Vec
	EntryMinAlign  float64
	NextMinAlign   float64

	InitialWater            float64
	WaterBaseCost           float64
	WaterLinkCostFactor     float64
	WaterMinAbsorbThreshold float64
	WaterAbsorbContinueProb float64

	DegradeAmount    float64
	MaxDepth         int
	NumInfiltrations int
	RandomSeed       int64

	// AccumulatePath keeps the trace of earlier walks instead of replacing
	// it at the start of each walk.
	AccumulatePath bool
	// UniformDegradation degrades every link by DegradeAmount each
	// iteration without walking.
	UniformDegradation bool
	Trace              bool
	LogSteps           bool
}

// DefaultSimConfig returns the standard configuration.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		EntryDirection:          r3.Vec{Z: -1},
		NextDirection:           r3.Vec{Z: -1},
		EntryMinAlign:           0.1,
		NextMinAlign:            0.1,
		InitialWater:            1.0,
		WaterBaseCost:           0.01,
		WaterLinkCostFactor:     0.2,
		WaterMinAbsorbThreshold: 0.3,
		WaterAbsorbContinueProb: 0.9,
		DegradeAmount:           0.25,
		MaxDepth:                10,
		NumInfiltrations:        1,
		Trace:                   true,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c SimConfig) Validate() error {
	finite := []float64{
		c.EntryDirection.X, c.EntryDirection.Y, c.EntryDirection.Z,
		c.NextDirection.X, c.NextDirection.Y, c.NextDirection.Z,
		c.EntryMinAlign, c.NextMinAlign,
		c.InitialWater, c.WaterBaseCost, c.WaterLinkCostFactor,
		c.WaterMinAbsorbThreshold, c.WaterAbsorbContinueProb, c.DegradeAmount,
	}
	for _, v := range finite {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidConfig, "non-finite value %v", v)
		}
	}

	switch {
	case r3.Norm(c.EntryDirection) == 0:
		return errors.Wrap(ErrInvalidConfig, "entry direction has zero length")
	case r3.Norm(c.NextDirection) == 0:
		return errors.Wrap(ErrInvalidConfig, "next direction has zero length")
	case c.EntryMinAlign < -1 || c.EntryMinAlign > 1:
		return errors.Wrapf(ErrInvalidConfig, "entry min align %v outside [-1,1]", c.EntryMinAlign)
	case c.NextMinAlign < -1 || c.NextMinAlign > 1:
		return errors.Wrapf(ErrInvalidConfig, "next min align %v outside [-1,1]", c.NextMinAlign)
	case c.InitialWater <= 0:
		return errors.Wrapf(ErrInvalidConfig, "initial water %v must be positive", c.InitialWater)
	case c.WaterBaseCost < 0 || c.WaterLinkCostFactor < 0:
		return errors.Wrap(ErrInvalidConfig, "water costs must not be negative")
	case c.WaterAbsorbContinueProb < 0 || c.WaterAbsorbContinueProb > 1:
		return errors.Wrapf(ErrInvalidConfig, "absorb continue probability %v outside [0,1]", c.WaterAbsorbContinueProb)
	case c.DegradeAmount < 0:
		return errors.Wrapf(ErrInvalidConfig, "degrade amount %v must not be negative", c.DegradeAmount)
	case c.MaxDepth < 1:
		return errors.Wrapf(ErrInvalidConfig, "max depth %d must be at least 1", c.MaxDepth)
	case c.NumInfiltrations < 0:
		return errors.Wrapf(ErrInvalidConfig, "infiltrations %d must not be negative", c.NumInfiltrations)
	}
	return nil
}

type simConfigJSON struct {
	EntryDirection          *[3]float64 `json:"entry_direction"`
	NextDirection           *[3]float64 `json:"next_direction"`
	EntryMinAlign           *float64    `json:"entry_min_align"`
	NextMinAlign            *float64    `json:"next_min_align"`
	InitialWater            *float64    `json:"initial_water"`
	WaterBaseCost           *float64    `json:"water_base_cost"`
	WaterLinkCostFactor     *float64    `json:"water_link_cost_factor"`
	WaterMinAbsorbThreshold *float64    `json:"water_min_absorb_threshold"`
	WaterAbsorbContinueProb *float64    `json:"water_absorb_continue_prob"`
	DegradeAmount           *float64    `json:"degrade_amount"`
	MaxDepth                *int        `json:"max_depth"`
	NumInfiltrations        *int        `json:"num_infiltrations"`
	RandomSeed              *int64      `json:"random_seed"`
	AccumulatePath          *bool       `json:"accumulate_path"`
	UniformDegradation      *bool       `json:"uniform_degradation"`
	Trace                   *bool       `json:"trace"`
	LogSteps                *bool       `json:"log_steps"`
}

// LoadSimConfig reads a JSON document and applies the fields it sets on
// top of DefaultSimConfig. Unknown fields are rejected.
func LoadSimConfig(r io.Reader) (SimConfig, error) {
	cfg := DefaultSimConfig()

	var raw simConfigJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return cfg, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	setVec := func(dst *r3.Vec, src *[3]float64) {
		if src != nil {
			*dst = r3.Vec{X: src[0], Y: src[1], Z: src[2]}
		}
	}
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	setVec(&cfg.EntryDirection, raw.EntryDirection)
	setVec(&cfg.NextDirection, raw.NextDirection)
	setFloat(&cfg.EntryMinAlign, raw.EntryMinAlign)
	setFloat(&cfg.NextMinAlign, raw.NextMinAlign)
	setFloat(&cfg.InitialWater, raw.InitialWater)
	setFloat(&cfg.WaterBaseCost, raw.WaterBaseCost)
	setFloat(&cfg.WaterLinkCostFactor, raw.WaterLinkCostFactor)
	setFloat(&cfg.WaterMinAbsorbThreshold, raw.WaterMinAbsorbThreshold)
	setFloat(&cfg.WaterAbsorbContinueProb, raw.WaterAbsorbContinueProb)
	setFloat(&cfg.DegradeAmount, raw.DegradeAmount)
	setInt(&cfg.MaxDepth, raw.MaxDepth)
	setInt(&cfg.NumInfiltrations, raw.NumInfiltrations)
	if raw.RandomSeed != nil {
		cfg.RandomSeed = *raw.RandomSeed
	}
	setBool(&cfg.AccumulatePath, raw.AccumulatePath)
	setBool(&cfg.UniformDegradation, raw.UniformDegradation)
	setBool(&cfg.Trace, raw.Trace)
	setBool(&cfg.LogSteps, raw.LogSteps)

	return cfg, cfg.Validate()
}

// ApplyOverrides sets fields from flag-style key/value pairs, using the
// same keys as the JSON form. Directions are written "x,y,z".
func (c *SimConfig) ApplyOverrides(kv map[string]string) error {
	for key, v := range kv {
		var err error
		switch key {
		case "entry_direction":
			c.EntryDirection, err = parseVec(v)
		case "next_direction":
			c.NextDirection, err = parseVec(v)
		case "entry_min_align":
			c.EntryMinAlign, err = strconv.ParseFloat(v, 64)
		case "next_min_align":
			c.NextMinAlign, err = strconv.ParseFloat(v, 64)
		case "initial_water":
			c.InitialWater, err = strconv.ParseFloat(v, 64)
		case "water_base_cost":
			c.WaterBaseCost, err = strconv.ParseFloat(v, 64)
		case "water_link_cost_factor":
			c.WaterLinkCostFactor, err = strconv.ParseFloat(v, 64)
		case "water_min_absorb_threshold":
			c.WaterMinAbsorbThreshold, err = strconv.ParseFloat(v, 64)
		case "water_absorb_continue_prob":
			c.WaterAbsorbContinueProb, err = strconv.ParseFloat(v, 64)
		case "degrade_amount":
			c.DegradeAmount, err = strconv.ParseFloat(v, 64)
		case "max_depth":
			c.MaxDepth, err = strconv.Atoi(v)
		case "num_infiltrations":
			c.NumInfiltrations, err = strconv.Atoi(v)
		case "random_seed":
			c.RandomSeed, err = strconv.ParseInt(v, 10, 64)
		case "accumulate_path":
			c.AccumulatePath, err = strconv.ParseBool(v)
		case "uniform_degradation":
			c.UniformDegradation, err = strconv.ParseBool(v)
		case "trace":
			c.Trace, err = strconv.ParseBool(v)
		case "log_steps":
			c.LogSteps, err = strconv.ParseBool(v)
		default:
			return errors.Wrapf(ErrInvalidConfig, "unknown key %q", key)
		}
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%s=%q: %v", key, v, err)
		}
	}
	return c.Validate()
}

func parseVec(s string) (r3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vec{}, errors.Errorf("want x,y,z, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, err
		}
		xyz[i] = v
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
