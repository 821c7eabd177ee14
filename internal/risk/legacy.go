package risk

import (
	"math"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/metrics"
	"github.com/rohankatakam/burnrisk/internal/models"
)

// Legacy factor names
const (
	FactorWorkload         = "workload"
	FactorAfterHours       = "after_hours"
	FactorWeekend          = "weekend"
	FactorSeverityLoad     = "severity_load"
	FactorResponsePressure = "response_pressure"
)

var legacySuggestions = map[string]string{
	FactorWorkload:         "Rebalance the on-call rotation; incident volume is well above a sustainable weekly load",
	FactorAfterHours:       "Route non-urgent pages to business hours and review after-hours escalation policies",
	FactorWeekend:          "Limit weekend coverage to critical alerts and give compensating time off",
	FactorSeverityLoad:     "Pair on high-severity incidents and invest in remediation of recurring critical alerts",
	FactorResponsePressure: "Relax acknowledgement targets or add a secondary responder to reduce response pressure",
}

// LegacyScorer computes the 0-10 weighted heuristic from incident metrics.
// It is stateless after construction and safe for concurrent use.
type LegacyScorer struct {
	config config.LegacyConfig
}

// NewLegacyScorer validates the weight group and returns a scorer.
// Weights that do not sum to 1.0 are a configuration error; they are never renormalized.
func NewLegacyScorer(cfg config.LegacyConfig) (*LegacyScorer, error) {
	if !config.WeightsSumToOne(cfg.Weights.Entries()) {
		return nil, errors.ConfigError("legacy weights must sum to 1.0")
	}
	clone := config.ScoringConfig{Legacy: cfg}.Clone()
	return &LegacyScorer{config: clone.Legacy}, nil
}

// Score computes the legacy score for one member. Without an incident source the
// heuristic has nothing to measure, so the result is marked unavailable rather than low.
func (s *LegacyScorer) Score(m *models.MemberWindowMetrics) *models.LegacyScoreResult {
	result := &models.LegacyScoreResult{
		Factors:         []models.FactorContribution{},
		Recommendations: []string{},
	}

	w := s.config.Weights
	if !m.HasSource(models.SourceIncidents) {
		for _, e := range w.Entries() {
			result.SkippedFactors = append(result.SkippedFactors, e.Name)
		}
		result.RiskLevel = models.RiskUnknown
		return result
	}
	result.Available = true

	weeks := windowWeeks(m.WindowDays)

	workload := float64(m.IncidentCount) / weeks
	s.addFactor(result, FactorWorkload, workload, saturate(workload, s.config.WorkloadPerWeek), w.Workload)
	s.addFactor(result, FactorAfterHours, m.AfterHoursRatio, saturate(m.AfterHoursRatio, s.config.AfterHoursRatio), w.AfterHours)
	s.addFactor(result, FactorWeekend, m.WeekendRatio, saturate(m.WeekendRatio, s.config.WeekendRatio), w.Weekend)

	severityLoad := s.weightedSeverity(m.SeverityDistribution) / weeks
	s.addFactor(result, FactorSeverityLoad, severityLoad, saturate(severityLoad, s.config.SeverityLoadPerWeek), w.SeverityLoad)

	if m.AvgResponseTimeMinutes != nil {
		minutes := math.Max(0, *m.AvgResponseTimeMinutes)
		pressure := decay(minutes, s.config.ResponseDecayMinutes) * outOfHoursShare(m)
		s.addFactor(result, FactorResponsePressure, minutes, pressure, w.ResponsePressure)
	} else {
		result.SkippedFactors = append(result.SkippedFactors, FactorResponsePressure)
	}

	total := 0.0
	for _, f := range result.Factors {
		total += f.Contribution
	}
	result.Score = round2(clamp(total, 0, 10))
	result.RiskLevel = classify(result.Score, s.config.MediumThreshold, s.config.HighThreshold)
	result.Recommendations = s.generateSuggestions(result)

	return result
}

// addFactor records a factor; contribution is on the 0-10 scale
func (s *LegacyScorer) addFactor(result *models.LegacyScoreResult, name string, raw, normalized, weight float64) {
	result.Factors = append(result.Factors, models.FactorContribution{
		Name:         name,
		RawValue:     raw,
		Normalized:   normalized,
		Weight:       weight,
		Contribution: 10 * weight * normalized,
	})
}

// weightedSeverity sums incident counts by severity weight; unmapped buckets use "unknown"
func (s *LegacyScorer) weightedSeverity(dist map[string]int) float64 {
	total := 0.0
	for sev, count := range dist {
		weight, ok := s.config.SeverityWeights[sev]
		if !ok {
			weight = s.config.SeverityWeights[metrics.SeverityUnknown]
		}
		total += weight * float64(count)
	}
	return total
}

// generateSuggestions creates one recommendation per elevated factor
func (s *LegacyScorer) generateSuggestions(result *models.LegacyScoreResult) []string {
	suggestions := []string{}
	for _, f := range result.Factors {
		if f.Normalized > s.config.ElevatedFactor {
			suggestions = append(suggestions, legacySuggestions[f.Name])
		}
	}
	return suggestions
}

// ElevatedFactors names the factors above the elevation threshold
func (s *LegacyScorer) ElevatedFactors(result *models.LegacyScoreResult) []string {
	if result == nil {
		return nil
	}
	var names []string
	for _, f := range result.Factors {
		if f.Normalized > s.config.ElevatedFactor {
			names = append(names, f.Name)
		}
	}
	return names
}

// Helper functions

// saturate maps [0, inf) onto [0, 1); scale is the value reaching ~63%
func saturate(x, scale float64) float64 {
	if x <= 0 || scale <= 0 {
		return 0
	}
	return 1 - math.Exp(-x/scale)
}

// decay maps [0, inf) onto (0, 1]; fast responses score close to 1
func decay(x, scale float64) float64 {
	if x < 0 {
		x = 0
	}
	return math.Exp(-x / scale)
}

// outOfHoursShare approximates the share of incidents paged outside business hours.
// A fast acknowledgement only signals pressure for those pages. Weekend nights count
// in both ratios, hence the cap.
func outOfHoursShare(m *models.MemberWindowMetrics) float64 {
	return clamp(m.AfterHoursRatio+m.WeekendRatio, 0, 1)
}

func windowWeeks(days int) float64 {
	if days <= 0 {
		days = 1
	}
	return float64(days) / 7
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
