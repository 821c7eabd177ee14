package ai

import (
	"fmt"
	"math"
)

// FallbackConfidence is reported by every templated enhancement
const FallbackConfidence = 0.25

// ConfidenceCalculator calibrates the confidence an LLM reports against how much
// data it actually saw
type ConfidenceCalculator struct {
	// caps[n] is the ceiling with n sources present: none 0.5, one 0.75, two 0.9, all three 1.0
	caps []float64
}

// NewConfidenceCalculator creates a calculator with default ceilings
func NewConfidenceCalculator() *ConfidenceCalculator {
	return &ConfidenceCalculator{
		caps: []float64{0.5, 0.75, 0.9, 1.0},
	}
}

// ValidateConfidence rejects values outside [0,1] and NaN
func ValidateConfidence(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", v)
	}
	return nil
}

// Calibrate caps a reported confidence by source coverage. A single-source member
// cannot be assessed with more certainty than 0.75.
func (c *ConfidenceCalculator) Calibrate(reported float64, sources int) float64 {
	if sources < 0 {
		sources = 0
	}
	if sources >= len(c.caps) {
		sources = len(c.caps) - 1
	}
	confidence := math.Min(reported, c.caps[sources])
	return math.Round(confidence*100) / 100
}
