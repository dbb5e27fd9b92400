package domain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScaleMode selects how emission quantities map to marker radii.
type ScaleMode string

const (
	// ScaleLinear divides by the cohort maximum and multiplies by Factor.
	ScaleLinear ScaleMode = "linear"
	// ScaleLog interpolates log1p(quantity) onto [MinRadius, MaxRadius].
	ScaleLog ScaleMode = "log"
)

// Scale configures radius scaling for a dashboard. Radii are in meters, which
// is what deck.gl's ScatterplotLayer expects by default.
type Scale struct {
	Mode      ScaleMode `json:"mode"`
	Factor    float64   `json:"factor,omitempty"`     // linear only
	MinRadius float64   `json:"min_radius,omitempty"` // log only
	MaxRadius float64   `json:"max_radius,omitempty"` // log only
}

// Validate checks that the scale parameters yield finite, non-negative radii.
func (s Scale) Validate() error {
	switch s.Mode {
	case ScaleLinear:
		if !isFiniteNonNegative(s.Factor) {
			return fmt.Errorf("linear scale factor must be finite and >= 0, got %v", s.Factor)
		}
	case ScaleLog:
		if !isFiniteNonNegative(s.MinRadius) || !isFiniteNonNegative(s.MaxRadius) {
			return errors.New("log scale radii must be finite and >= 0")
		}
		if s.MaxRadius < s.MinRadius {
			return fmt.Errorf("log scale max radius %v is below min radius %v", s.MaxRadius, s.MinRadius)
		}
	default:
		return fmt.Errorf("unknown scale mode %q", s.Mode)
	}
	return nil
}

// ScaleRadii sets ScaledRadius on every record in place. Quantities are
// expected to be non-negative; the loader drops anything else.
func ScaleRadii(records []EmissionRecord, s Scale) {
	if len(records) == 0 {
		return
	}

	quantities := make([]float64, len(records))
	for i := range records {
		quantities[i] = records[i].Quantity
	}

	switch s.Mode {
	case ScaleLog:
		scaleLog(records, quantities, s.MinRadius, s.MaxRadius)
	default:
		scaleLinear(records, quantities, s.Factor)
	}
}

func scaleLinear(records []EmissionRecord, quantities []float64, factor float64) {
	maxQ := floats.Max(quantities)
	for i := range records {
		if maxQ == 0 {
			records[i].ScaledRadius = 0
			continue
		}
		records[i].ScaledRadius = quantities[i] / maxQ * factor
	}
}

func scaleLog(records []EmissionRecord, quantities []float64, minRadius, maxRadius float64) {
	lo := math.Log1p(floats.Min(quantities))
	hi := math.Log1p(floats.Max(quantities))
	span := hi - lo

	for i := range records {
		if span == 0 {
			records[i].ScaledRadius = minRadius
			continue
		}
		t := (math.Log1p(quantities[i]) - lo) / span
		records[i].ScaledRadius = minRadius + t*(maxRadius-minRadius)
	}
}

func isFiniteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
