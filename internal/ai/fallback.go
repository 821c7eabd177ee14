package ai

import (
	"strings"
	"time"

	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/rohankatakam/burnrisk/internal/risk"
)

// Fallback reasons recorded on templated enhancements
const (
	ReasonTimeout           = "timeout"
	ReasonTransportError    = "transport_error"
	ReasonMalformedResponse = "malformed_response"
	ReasonRateLimited       = "rate_limited"
	ReasonPromptError       = "prompt_error"
	ReasonUnavailable       = "provider_unavailable"
)

type memberFallbackData struct {
	Label          string
	RiskLevel      models.RiskLevel
	HasLegacy      bool
	LegacyScore    float64
	HasCBI         bool
	CBIScore       float64
	Interpretation models.Interpretation
	Drivers        []string
	Sources        string
}

// MemberFallback builds the deterministic enhancement for a member from its scores alone
func (g *PromptGenerator) MemberFallback(req MemberRequest, reason string) *models.AIEnhancement {
	level := risk.Classify(req.Legacy, req.CBI)

	data := memberFallbackData{
		Label:     req.Label(),
		RiskLevel: level,
		Sources:   sourceList(req.Metrics),
	}
	if req.Legacy.Scored() {
		data.HasLegacy = true
		data.LegacyScore = req.Legacy.Score
	}
	if req.CBI != nil {
		data.HasCBI = true
		data.CBIScore = req.CBI.CompositeScore
		data.Interpretation = req.CBI.Interpretation
	}
	for _, f := range uniqueStrings(req.Elevated) {
		data.Drivers = append(data.Drivers, strings.ReplaceAll(f, "_", " "))
	}

	narrative, err := g.render("fallback_member", data)
	if err != nil {
		// the templates are static and covered by tests; keep a usable narrative regardless
		narrative = data.Label + " shows " + string(level) + " burnout risk."
	}

	return &models.AIEnhancement{
		Narrative:       narrative,
		RiskLevel:       level,
		Confidence:      FallbackConfidence,
		Recommendations: factorRecommendations(req.Elevated, level),
		Provenance:      models.ProvenanceFallback,
		FallbackReason:  reason,
		GeneratedAt:     time.Now().UTC(),
	}
}

type teamFallbackData struct {
	TeamName        string
	HealthStatus    models.RiskLevel
	MemberCount     int
	HighRiskCount   int
	MediumRiskCount int
	LegacyAverage   float64
	CBIAverage      float64
	Patterns        []models.CommonPattern
}

// TeamFallback builds the deterministic team insight from the aggregate alone
func (g *PromptGenerator) TeamFallback(team *models.TeamResult, reason string) *models.AIEnhancement {
	data := teamFallbackData{
		TeamName:        team.TeamName,
		HealthStatus:    team.HealthStatus,
		MemberCount:     team.MemberCount,
		HighRiskCount:   team.HighRiskCount,
		MediumRiskCount: team.MediumRiskCount,
		LegacyAverage:   team.Legacy.AverageScore,
		CBIAverage:      team.CBI.AverageScore,
		Patterns:        team.CommonPatterns,
	}
	narrative, err := g.render("fallback_team", data)
	if err != nil {
		narrative = "Team " + team.TeamName + " health is " + string(team.HealthStatus) + "."
	}

	level := team.HealthStatus
	if !level.Valid() {
		level = models.RiskLow
	}

	var factors []string
	for _, p := range team.CommonPatterns {
		factors = append(factors, p.Factors...)
	}
	recs := make([]models.Recommendation, 0, 4)
	if team.HighRiskCount > 0 {
		recs = append(recs, models.Recommendation{
			Title:       "Check in with high-risk members",
			Description: "Schedule one-to-ones with members classified high risk and review their workload.",
			Priority:    string(models.RiskHigh),
		})
	}
	for _, r := range factorRecommendations(factors, level) {
		if r.Title == maintainTitle && len(recs) > 0 {
			continue
		}
		recs = append(recs, r)
	}

	return &models.AIEnhancement{
		Narrative:       narrative,
		RiskLevel:       level,
		Confidence:      FallbackConfidence,
		Recommendations: recs,
		Provenance:      models.ProvenanceFallback,
		FallbackReason:  reason,
		GeneratedAt:     time.Now().UTC(),
	}
}

const maintainTitle = "Maintain current practices"

func factorRecommendations(factors []string, level models.RiskLevel) []models.Recommendation {
	var recs []models.Recommendation
	for _, f := range uniqueStrings(factors) {
		guide, ok := FactorGuidance[f]
		if !ok {
			continue
		}
		recs = append(recs, models.Recommendation{
			Title:       guide.Title,
			Description: guide.Description,
			Priority:    string(level),
		})
		if len(recs) == maxRecommendations {
			break
		}
	}
	if len(recs) == 0 {
		recs = append(recs, models.Recommendation{
			Title:       maintainTitle,
			Description: "No factor is elevated; keep monitoring at the usual cadence.",
			Priority:    string(models.RiskLow),
		})
	}
	return recs
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
