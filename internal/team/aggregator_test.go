package team

import (
	"testing"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(config.DefaultTeam(), config.DefaultScoring())
}

func member(id string, legacy float64, legacyLevel models.RiskLevel, cbi float64, cbiLevel models.RiskLevel, elevated ...string) models.MemberResult {
	factors := make([]models.FactorContribution, 0, len(elevated))
	for _, f := range elevated {
		factors = append(factors, models.FactorContribution{Name: f, Normalized: 0.9})
	}
	return models.MemberResult{
		MemberID:  id,
		Legacy:    &models.LegacyScoreResult{Available: true, Score: legacy, RiskLevel: legacyLevel, Factors: factors},
		CBI:       &models.CBIResult{CompositeScore: cbi, RiskLevel: cbiLevel},
		RiskLevel: models.MoreSevere(legacyLevel, cbiLevel),
	}
}

func scenarioD() []models.MemberResult {
	return []models.MemberResult{
		member("a", 8.1, models.RiskHigh, 80, models.RiskHigh, "workload", "after_hours"),
		member("b", 7.5, models.RiskHigh, 60, models.RiskMedium, "workload", "after_hours", "weekend"),
		member("c", 5.0, models.RiskMedium, 40, models.RiskLow, "weekend"),
		member("d", 2.0, models.RiskLow, 55, models.RiskMedium),
		member("e", 1.0, models.RiskLow, 10, models.RiskLow),
	}
}

func TestAggregate_ScenarioD(t *testing.T) {
	result := newTestAggregator().Aggregate("payments", scenarioD())

	assert.Equal(t, "payments", result.TeamName)
	assert.Equal(t, 5, result.MemberCount)
	assert.Equal(t, 2, result.HighRiskCount)
	assert.Equal(t, 2, result.MediumRiskCount)
	assert.Equal(t, 2, result.AtRiskCount)
	// high and medium tie at two members each
	assert.Equal(t, models.RiskHigh, result.HealthStatus)

	assert.Equal(t, 4.72, result.Legacy.AverageScore)
	assert.Equal(t, 2, result.Legacy.HighRiskCount)
	assert.Equal(t, 1, result.Legacy.MediumRiskCount)
	assert.Equal(t, 49.0, result.CBI.AverageScore)
	assert.Equal(t, 1, result.CBI.HighRiskCount)
	assert.Equal(t, 2, result.CBI.MediumRiskCount)

	require.Len(t, result.CommonPatterns, 1)
	p := result.CommonPatterns[0]
	assert.Equal(t, []string{"after_hours", "workload"}, p.Factors)
	assert.Equal(t, []string{"a", "b"}, p.MemberIDs)
	assert.Equal(t, 0.4, p.Coverage)
	assert.Equal(t, "2 of 5 members show elevated after hours and workload", p.Description)

	require.Len(t, result.Recommendations, 3)
	assert.Contains(t, result.Recommendations[0], "2 members at high risk")
	assert.Contains(t, result.Recommendations[2], "after hours and workload")
}

func TestAggregate_EmptyTeam(t *testing.T) {
	result := newTestAggregator().Aggregate("empty", nil)

	assert.Equal(t, 0, result.MemberCount)
	assert.Equal(t, models.RiskUnknown, result.HealthStatus)
	assert.Equal(t, 0.0, result.Legacy.AverageScore)
	assert.NotNil(t, result.Members)
	assert.Empty(t, result.CommonPatterns)
	assert.Empty(t, result.Recommendations)
}

func TestLegacySummary_SkipsUnscoredMembers(t *testing.T) {
	paged := member("b", 7.9, models.RiskHigh, 80, models.RiskHigh)
	chatOnly := models.MemberResult{
		MemberID:  "c",
		Legacy:    &models.LegacyScoreResult{RiskLevel: models.RiskUnknown, SkippedFactors: []string{"workload"}},
		CBI:       &models.CBIResult{CompositeScore: 20, RiskLevel: models.RiskLow},
		RiskLevel: models.RiskLow,
	}

	summary := LegacySummary([]models.MemberResult{paged, chatOnly})
	assert.Equal(t, 7.9, summary.AverageScore)
	assert.Equal(t, 1, summary.HighRiskCount)
	assert.Equal(t, 0, summary.MediumRiskCount)

	cbi := CBISummary([]models.MemberResult{paged, chatOnly})
	assert.Equal(t, 50.0, cbi.AverageScore)
}

func TestHealthStatus(t *testing.T) {
	lv := func(levels ...models.RiskLevel) []models.MemberResult {
		out := make([]models.MemberResult, len(levels))
		for i, l := range levels {
			out[i] = models.MemberResult{MemberID: string(rune('a' + i)), RiskLevel: l}
		}
		return out
	}
	tests := []struct {
		name    string
		members []models.MemberResult
		want    models.RiskLevel
	}{
		{"all low", lv(models.RiskLow, models.RiskLow), models.RiskLow},
		{"majority low", lv(models.RiskLow, models.RiskLow, models.RiskHigh), models.RiskLow},
		{"low medium tie", lv(models.RiskLow, models.RiskMedium), models.RiskMedium},
		{"three way tie", lv(models.RiskLow, models.RiskMedium, models.RiskHigh), models.RiskHigh},
		{"single", lv(models.RiskMedium), models.RiskMedium},
		{"no valid levels", lv("", models.RiskUnknown), models.RiskUnknown},
		{"invalid ignored", lv("", models.RiskLow), models.RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthStatus(tt.members))
		})
	}
}

func TestCommonPatterns_Thresholds(t *testing.T) {
	// one pair shared by 2 of 10 members is below the 30% coverage floor
	members := []models.MemberResult{
		member("a", 8, models.RiskHigh, 80, models.RiskHigh, "workload", "weekend"),
		member("b", 8, models.RiskHigh, 80, models.RiskHigh, "workload", "weekend"),
	}
	for i := 0; i < 8; i++ {
		members = append(members, member(string(rune('c'+i)), 1, models.RiskLow, 5, models.RiskLow))
	}
	result := newTestAggregator().Aggregate("big", members)
	assert.Empty(t, result.CommonPatterns)

	// a single member never forms a pattern
	solo := newTestAggregator().Aggregate("solo", members[:1])
	assert.Empty(t, solo.CommonPatterns)
}

func TestCommonPatterns_MaxPatterns(t *testing.T) {
	factors := []string{"workload", "after_hours", "weekend", "severity_load", "response_pressure"}
	members := []models.MemberResult{
		member("a", 9, models.RiskHigh, 90, models.RiskHigh, factors...),
		member("b", 9, models.RiskHigh, 90, models.RiskHigh, factors...),
	}
	result := newTestAggregator().Aggregate("x", members)
	assert.Len(t, result.CommonPatterns, 5)
}

func TestElevatedFactors_IncludesCBI(t *testing.T) {
	m := member("a", 5, models.RiskMedium, 60, models.RiskMedium, "workload")
	m.CBI.WorkBreakdown = []models.CBIComponent{
		{Name: "on_call_burden", Value: 85},
		{Name: "meeting_load", Value: 20},
	}
	assert.Equal(t, []string{"on_call_burden", "workload"}, newTestAggregator().ElevatedFactors(m))
}

func TestEnhancedCount(t *testing.T) {
	members := scenarioD()
	members[0].AIEnhancement = &models.AIEnhancement{Provenance: models.ProvenanceLLM}
	members[1].AIEnhancement = &models.AIEnhancement{Provenance: models.ProvenanceFallback}
	assert.Equal(t, 1, EnhancedCount(members))
}
