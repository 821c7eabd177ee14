package validation

import (
	"encoding/json"
	"testing"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/rohankatakam/burnrisk/internal/team"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberResult(id string, legacy float64, ll models.RiskLevel, cbi float64, cl models.RiskLevel) models.MemberResult {
	return models.MemberResult{
		MemberID:  id,
		Legacy:    &models.LegacyScoreResult{Available: true, Score: legacy, RiskLevel: ll},
		CBI:       &models.CBIResult{CompositeScore: cbi, RiskLevel: cl},
		RiskLevel: models.MoreSevere(ll, cl),
	}
}

func consistentResult() *models.TeamResult {
	members := []models.MemberResult{
		memberResult("a", 8.1, models.RiskHigh, 80, models.RiskHigh),
		memberResult("b", 7.5, models.RiskHigh, 60, models.RiskMedium),
		memberResult("c", 5.0, models.RiskMedium, 40, models.RiskLow),
		memberResult("d", 2.0, models.RiskLow, 55, models.RiskMedium),
		memberResult("e", 6.4, models.RiskMedium, 10, models.RiskLow),
	}
	members[0].AIEnhancement = &models.AIEnhancement{Provenance: models.ProvenanceLLM}
	result := team.NewAggregator(config.DefaultTeam(), config.DefaultScoring()).Aggregate("payments", members)
	result.RunID = "run-1"
	return result
}

func TestVerify_Consistent(t *testing.T) {
	v := NewConsistencyValidator(0)
	report := v.Verify(consistentResult())

	assert.True(t, report.OverallConsistency)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, DefaultTolerance, report.Tolerance)
	assert.Len(t, report.Checks, 11)
	assert.Empty(t, report.Mismatches())
}

func TestVerify_CorruptedAverage(t *testing.T) {
	result := consistentResult()
	require.Equal(t, 5.8, result.Legacy.AverageScore)
	result.Legacy.AverageScore = 6.2

	report := NewConsistencyValidator(0).Verify(result)

	assert.False(t, report.OverallConsistency)
	mismatches := report.Mismatches()
	require.Len(t, mismatches, 1)
	assert.Equal(t, CheckAverageScore, mismatches[0].Name)
	assert.Equal(t, []string{"stated average_score=6.20 but recomputed 5.80 from 5 members"}, mismatches[0].Discrepancies)

	// the input is not repaired
	assert.Equal(t, 6.2, result.Legacy.AverageScore)
}

func TestVerify_WithinTolerance(t *testing.T) {
	result := consistentResult()
	result.CBI.AverageScore += 0.01

	report := NewConsistencyValidator(0).Verify(result)
	assert.True(t, report.Check(CheckCBIAverageScore).Match)
}

func TestVerify_Mismatches(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(r *models.TeamResult)
		check   string
	}{
		{"member count", func(r *models.TeamResult) { r.MemberCount = 6 }, CheckMemberCount},
		{"high count", func(r *models.TeamResult) { r.HighRiskCount = 1 }, CheckHighRiskCount},
		{"medium count", func(r *models.TeamResult) { r.MediumRiskCount = 0 }, CheckMediumRiskCount},
		{"at risk", func(r *models.TeamResult) { r.AtRiskCount = 4 }, CheckAtRiskCount},
		{"legacy high", func(r *models.TeamResult) { r.Legacy.HighRiskCount = 3 }, CheckLegacyHighRiskCount},
		{"cbi high", func(r *models.TeamResult) { r.CBI.HighRiskCount = 0 }, CheckCBIHighRiskCount},
		{"health", func(r *models.TeamResult) { r.HealthStatus = models.RiskLow }, CheckHealthStatus},
		{"ai count", func(r *models.TeamResult) { r.AIEnhancedCount = 5 }, CheckAIEnhancedCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := consistentResult()
			tt.corrupt(result)

			report := NewConsistencyValidator(0).Verify(result)
			assert.False(t, report.OverallConsistency)
			mismatches := report.Mismatches()
			require.Len(t, mismatches, 1)
			assert.Equal(t, tt.check, mismatches[0].Name)
			assert.NotEmpty(t, mismatches[0].Discrepancies)
		})
	}
}

func TestVerify_MemberReconciliation(t *testing.T) {
	result := consistentResult()
	result.Members[1].RiskLevel = models.RiskMedium

	report := NewConsistencyValidator(0).Verify(result)
	c := report.Check(CheckMemberReconciliation)
	require.NotNil(t, c)
	assert.False(t, c.Match)
	assert.Equal(t, []string{"member b stated medium but legacy high and cbi medium reconcile to high"}, c.Discrepancies)
}

func TestVerify_UnscoredLegacyMember(t *testing.T) {
	members := []models.MemberResult{
		memberResult("a", 7.9, models.RiskHigh, 80, models.RiskHigh),
		{
			MemberID:  "chat-only",
			Legacy:    &models.LegacyScoreResult{RiskLevel: models.RiskUnknown},
			CBI:       &models.CBIResult{CompositeScore: 52, RiskLevel: models.RiskMedium},
			RiskLevel: models.RiskMedium,
		},
	}
	result := team.NewAggregator(config.DefaultTeam(), config.DefaultScoring()).Aggregate("ops", members)
	require.Equal(t, 7.9, result.Legacy.AverageScore)

	report := NewConsistencyValidator(0).Verify(result)
	assert.True(t, report.OverallConsistency, "%v", report.Mismatches())

	// averaging the unscored member back in is a mismatch
	result.Legacy.AverageScore = 3.95
	report = NewConsistencyValidator(0).Verify(result)
	assert.False(t, report.OverallConsistency)
	assert.False(t, report.Check(CheckAverageScore).Match)
}

func TestVerify_Nil(t *testing.T) {
	report := NewConsistencyValidator(0).Verify(nil)
	assert.False(t, report.OverallConsistency)
}

func TestVerifyJSON(t *testing.T) {
	data, err := json.Marshal(consistentResult())
	require.NoError(t, err)

	report, err := NewConsistencyValidator(0).VerifyJSON(data)
	require.NoError(t, err)
	assert.True(t, report.OverallConsistency)

	_, err = NewConsistencyValidator(0).VerifyJSON([]byte("{not json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
