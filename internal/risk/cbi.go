package risk

import (
	"math"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
)

// Personal burnout factors
const (
	FactorWorkHoursTrend     = "work_hours_trend"
	FactorWeekendWork        = "weekend_work"
	FactorAfterHoursActivity = "after_hours_activity"
	FactorVacationUsage      = "vacation_usage"
	FactorSleepQualityProxy  = "sleep_quality_proxy"
)

// Work-related burnout factors
const (
	FactorCadencePressure     = "cadence_pressure"
	FactorReviewSpeedPressure = "review_speed_pressure"
	FactorPRFrequency         = "pr_frequency"
	FactorDeploymentFrequency = "deployment_frequency"
	FactorMeetingLoad         = "meeting_load"
	FactorOnCallBurden        = "on_call_burden"
)

// CBIScorer computes the composite burnout index (0-100).
type CBIScorer struct {
	config config.CBIConfig
}

// NewCBIScorer validates all three weight groups and returns a scorer
func NewCBIScorer(cfg config.CBIConfig) (*CBIScorer, error) {
	groups := map[string][]config.WeightEntry{
		"personal":  cfg.Personal.Entries(),
		"work":      cfg.Work.Entries(),
		"composite": cfg.Composite.Entries(),
	}
	for name, entries := range groups {
		if !config.WeightsSumToOne(entries) {
			return nil, errors.ConfigErrorf("cbi %s weights must sum to 1.0", name)
		}
	}
	return &CBIScorer{config: cfg}, nil
}

// factorValue is a factor's 0-100 value, or not applicable for this member
type factorValue struct {
	value      float64
	applicable bool
}

func applicable(v float64) factorValue { return factorValue{value: clamp(v, 0, 100), applicable: true} }

var notApplicable = factorValue{}

// Score computes the CBI for one member
func (s *CBIScorer) Score(m *models.MemberWindowMetrics) *models.CBIResult {
	result := &models.CBIResult{}

	personal := s.personalFactors(m)
	work := s.workFactors(m)

	var skipped []string
	result.PersonalScore, result.PersonalBreakdown, skipped = blend(s.config.Personal.Entries(), personal)
	result.SkippedFactors = append(result.SkippedFactors, skipped...)
	result.WorkRelatedScore, result.WorkBreakdown, skipped = blend(s.config.Work.Entries(), work)
	result.SkippedFactors = append(result.SkippedFactors, skipped...)

	composite := s.config.Composite.Personal*result.PersonalScore + s.config.Composite.Work*result.WorkRelatedScore
	result.PersonalScore = round2(result.PersonalScore)
	result.WorkRelatedScore = round2(result.WorkRelatedScore)
	result.CompositeScore = round2(clamp(composite, 0, 100))
	result.Interpretation = s.interpret(result.CompositeScore)
	result.RiskLevel = classify(result.CompositeScore, s.config.RiskMediumThreshold, s.config.RiskHighThreshold)

	return result
}

func (s *CBIScorer) personalFactors(m *models.MemberWindowMetrics) map[string]factorValue {
	out := map[string]factorValue{
		FactorWorkHoursTrend:     notApplicable,
		FactorWeekendWork:        notApplicable,
		FactorAfterHoursActivity: notApplicable,
		FactorVacationUsage:      notApplicable,
		FactorSleepQualityProxy:  notApplicable,
	}
	if len(m.Sources) == 0 {
		return out
	}

	out[FactorWeekendWork] = applicable(100 * m.ActivityWeekend)
	out[FactorAfterHoursActivity] = applicable(100 * m.ActivityAfterHours)
	out[FactorSleepQualityProxy] = applicable(100 * m.ActivityNightRatio)

	// Trend and rest days need a feed that reflects ordinary working activity
	if m.VCS != nil || m.Chat != nil {
		out[FactorWorkHoursTrend] = applicable(100 * math.Max(0, m.ActivityTrend))

		days := math.Max(float64(m.WindowDays), 1)
		inactive := clamp(1-float64(m.ActiveDays)/days, 0, 1)
		out[FactorVacationUsage] = applicable(100 * (1 - math.Min(1, inactive/s.config.RestDayTarget)))
	}
	return out
}

func (s *CBIScorer) workFactors(m *models.MemberWindowMetrics) map[string]factorValue {
	out := map[string]factorValue{
		FactorCadencePressure:     notApplicable,
		FactorReviewSpeedPressure: notApplicable,
		FactorPRFrequency:         notApplicable,
		FactorDeploymentFrequency: notApplicable,
		FactorMeetingLoad:         notApplicable,
		FactorOnCallBurden:        notApplicable,
	}
	weeks := windowWeeks(m.WindowDays)

	if v := m.VCS; v != nil {
		out[FactorCadencePressure] = applicable(100 * (v.EndOfWindowShare - 0.25) / 0.5)
		if v.AvgReviewHours != nil {
			out[FactorReviewSpeedPressure] = applicable(100 * decay(*v.AvgReviewHours, s.config.ReviewDecayHours))
		}
		out[FactorPRFrequency] = applicable(100 * saturate(float64(v.PRCount)/weeks, s.config.PRsPerWeek))
		// Merged PRs stand in for deployments
		out[FactorDeploymentFrequency] = applicable(100 * saturate(float64(v.MergedPRCount)/weeks, s.config.DeploysPerWeek))
	}

	if c := m.Chat; c != nil {
		perDay := float64(c.MessageCount) / math.Max(float64(m.ActiveDays), 1)
		out[FactorMeetingLoad] = applicable(100 * saturate(perDay, s.config.MessagesPerDay))
	}

	if m.HasSource(models.SourceIncidents) {
		// Out-of-hours pages weigh more than business-hours pages
		weighted := float64(m.IncidentCount) * (1 + m.AfterHoursRatio + 0.5*m.WeekendRatio) / weeks
		load := 100 * saturate(weighted, s.config.OnCallLoadPerWeek)
		pressure := 0.0
		if m.AvgResponseTimeMinutes != nil {
			pressure = 100 * decay(*m.AvgResponseTimeMinutes, s.config.ResponseDecayMinutes) * outOfHoursShare(m)
		}
		out[FactorOnCallBurden] = applicable(0.6*load + 0.4*pressure)
	}
	return out
}

// blend is the weighted mean over applicable factors. The divisor is the weight
// mass actually applied, so a member without a source is not penalized for it.
func blend(entries []config.WeightEntry, values map[string]factorValue) (float64, []models.CBIComponent, []string) {
	var (
		components []models.CBIComponent
		skipped    []string
		mass       float64
	)
	for _, e := range entries {
		if values[e.Name].applicable {
			mass += e.Weight
		}
	}
	score := 0.0
	for _, e := range entries {
		fv := values[e.Name]
		if !fv.applicable {
			skipped = append(skipped, e.Name)
			continue
		}
		contribution := 0.0
		if mass > 0 {
			contribution = e.Weight * fv.value / mass
		}
		score += contribution
		components = append(components, models.CBIComponent{
			Name:         e.Name,
			Value:        fv.value,
			Weight:       e.Weight,
			Contribution: contribution,
		})
	}
	if components == nil {
		components = []models.CBIComponent{}
	}
	return clamp(score, 0, 100), components, skipped
}

// interpret maps the composite onto its qualitative band; bounds belong to the higher band
func (s *CBIScorer) interpret(composite float64) models.Interpretation {
	switch {
	case composite >= s.config.HighThreshold:
		return models.InterpretationHigh
	case composite >= s.config.ModerateThreshold:
		return models.InterpretationModerate
	case composite >= s.config.MildThreshold:
		return models.InterpretationMild
	default:
		return models.InterpretationLow
	}
}

// ElevatedComponents names the CBI factors above the elevation threshold
func (s *CBIScorer) ElevatedComponents(result *models.CBIResult) []string {
	if result == nil {
		return nil
	}
	var names []string
	for _, group := range [][]models.CBIComponent{result.PersonalBreakdown, result.WorkBreakdown} {
		for _, c := range group {
			if c.Value > s.config.ElevatedComponent {
				names = append(names, c.Name)
			}
		}
	}
	return names
}
