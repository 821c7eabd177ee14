package ai

import (
	"testing"

	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMemberPrompt(t *testing.T) {
	g, err := NewPromptGenerator()
	require.NoError(t, err)

	prompt, err := g.GenerateMemberPrompt(highRiskRequest())
	require.NoError(t, err)

	assert.Contains(t, prompt, "Assess burnout risk for Bea (id u-2)")
	assert.Contains(t, prompt, "Available data sources: incidents, vcs, chat")
	assert.Contains(t, prompt, "After-hours share: 70%")
	assert.Contains(t, prompt, "Average response time: 6.0 minutes")
	assert.Contains(t, prompt, "Severity mix: critical=6, high=12")
	assert.Contains(t, prompt, "Average time to first review: no reviews")
	assert.Contains(t, prompt, "Average sentiment: -0.30")
	assert.Contains(t, prompt, "Heuristic score: 8.08/10 (high)")
	assert.Contains(t, prompt, "Composite burnout index: 84.58/100 (high")
	assert.Contains(t, prompt, "Elevated factors: workload, after_hours, weekend_work")
}

func TestGenerateMemberPrompt_PartialSources(t *testing.T) {
	g, err := NewPromptGenerator()
	require.NoError(t, err)

	req := MemberRequest{
		MemberID: "u-9",
		Metrics: &models.MemberWindowMetrics{
			WindowDays: 14,
			Timezone:   "Europe/Berlin",
			Sources:    []models.Source{models.SourceVCS},
			VCS:        &models.VCSMetrics{CommitCount: 3},
		},
		Legacy: &models.LegacyScoreResult{Available: true, RiskLevel: models.RiskLow},
	}
	prompt, err := g.GenerateMemberPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Assess burnout risk for u-9")
	assert.Contains(t, prompt, "Version control:")
	assert.NotContains(t, prompt, "On-call incidents:")
	assert.NotContains(t, prompt, "Chat:")
	assert.NotContains(t, prompt, "Composite burnout index")
	assert.NotContains(t, prompt, "Elevated factors")
}

func TestGenerateTeamPrompt(t *testing.T) {
	g, err := NewPromptGenerator()
	require.NoError(t, err)

	prompt, err := g.GenerateTeamPrompt(TeamRequest{Team: sampleTeam()})
	require.NoError(t, err)

	assert.Contains(t, prompt, "team payments (5 members)")
	assert.Contains(t, prompt, "after_hours + workload (40% of the team)")
	assert.Contains(t, prompt, "- Ana: high; Heavy paging.")
	assert.Contains(t, prompt, "- b: high")
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", `{"narrative":"ok","risk_level":"medium","confidence":0.5}`, false},
		{"fenced", "```json\n{\"narrative\":\"ok\",\"risk_level\":\"Moderate\",\"confidence\":0}\n```", false},
		{"empty", "  ", true},
		{"truncated", `{"narrative":"ok"`, true},
		{"blank narrative", `{"narrative":"  ","risk_level":"low","confidence":0.5}`, true},
		{"confidence above 1", `{"narrative":"ok","risk_level":"low","confidence":1.5}`, true},
		{"negative confidence", `{"narrative":"ok","risk_level":"low","confidence":-0.1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enh, err := parseReply(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, enh)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RiskMedium, enh.RiskLevel)
			assert.Equal(t, models.ProvenanceLLM, enh.Provenance)
		})
	}
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, "high", normalizePriority("Critical"))
	assert.Equal(t, "low", normalizePriority("low"))
	assert.Equal(t, "medium", normalizePriority(""))
	assert.Equal(t, "medium", normalizePriority("asap"))
}

func TestConfidenceCalibrate(t *testing.T) {
	c := NewConfidenceCalculator()
	assert.Equal(t, 0.5, c.Calibrate(0.9, 0))
	assert.Equal(t, 0.75, c.Calibrate(0.9, 1))
	assert.Equal(t, 0.9, c.Calibrate(0.95, 2))
	assert.Equal(t, 0.95, c.Calibrate(0.95, 3))
	assert.Equal(t, 0.4, c.Calibrate(0.4, 5))

	for sources, ceiling := range map[int]float64{0: 0.5, 1: 0.75, 2: 0.9, 3: 1.0} {
		assert.Equal(t, ceiling, c.Calibrate(1.0, sources), "%d sources", sources)
	}
}
