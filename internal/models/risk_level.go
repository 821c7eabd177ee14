package models

import "strings"

// RiskLevel is the discrete low/medium/high classification
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown" // no member level to report, or a methodology without data
)

// Rank orders levels by severity; unknown ranks below low
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of low, medium, high
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// MoreSevere returns whichever level ranks higher
func MoreSevere(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseRiskLevel accepts case-insensitive level names and a few common aliases
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minimal", "none":
		return RiskLow, true
	case "medium", "moderate", "mild":
		return RiskMedium, true
	case "high", "critical", "severe":
		return RiskHigh, true
	default:
		return RiskUnknown, false
	}
}
