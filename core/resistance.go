package core

import "math"

// ResistanceField scales the water cost of a link by its horizontal
// position. Values are expected in [0,1].
type ResistanceField interface {
	Resistance(x, y float64) float64
}

// ResistanceFunc adapts a plain function to ResistanceField.
type ResistanceFunc func(x, y float64) float64

func (f ResistanceFunc) Resistance(x, y float64) float64 { return f(x, y) }

// ConstantField returns the same resistance everywhere.
type ConstantField float64

func (c ConstantField) Resistance(float64, float64) float64 { return float64(c) }

// WaveField is a smooth deterministic field built from two sinusoids.
// Frequency is in radians per unit length; zero behaves as 1.
type WaveField struct {
	Frequency float64
	Phase     float64
}

func (w WaveField) Resistance(x, y float64) float64 {
	f := w.Frequency
	if f == 0 {
		f = 1
	}
	v := 0.5 + 0.25*(math.Sin(f*x+w.Phase)+math.Cos(f*y+w.Phase))
	return math.Min(math.Max(v, 0), 1)
}
