package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightGroupsSumToOne(t *testing.T) {
	s := DefaultScoring()
	groups := map[string][]WeightEntry{
		"legacy":    s.Legacy.Weights.Entries(),
		"personal":  s.CBI.Personal.Entries(),
		"work":      s.CBI.Work.Entries(),
		"composite": s.CBI.Composite.Entries(),
	}
	for name, entries := range groups {
		t.Run(name, func(t *testing.T) {
			assert.True(t, WeightsSumToOne(entries))
		})
	}
	assert.NoError(t, ValidateScoring(s, DefaultNormalizer(), DefaultTeam()))
}

func TestValidateScoringRejectsBadWeights(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScoringConfig)
	}{
		{"legacy sum", func(s *ScoringConfig) { s.Legacy.Weights.Workload = 0.5 }},
		{"personal sum", func(s *ScoringConfig) { s.CBI.Personal.SleepQualityProxy = 0 }},
		{"work sum", func(s *ScoringConfig) { s.CBI.Work.OnCallBurden = 0.3 }},
		{"composite sum", func(s *ScoringConfig) { s.CBI.Composite.Work = 0.6 }},
		{"negative weight", func(s *ScoringConfig) {
			s.CBI.Composite.Personal = 1.5
			s.CBI.Composite.Work = -0.5
		}},
		{"inverted thresholds", func(s *ScoringConfig) { s.Legacy.MediumThreshold = 8 }},
		{"missing unknown severity", func(s *ScoringConfig) { delete(s.Legacy.SeverityWeights, "unknown") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultScoring().Clone()
			tt.mutate(&s)
			err := ValidateScoring(s, DefaultNormalizer(), DefaultTeam())
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := DefaultScoring()
	b := a.Clone()
	b.Legacy.SeverityWeights["critical"] = 99
	assert.Equal(t, 4.0, a.Legacy.SeverityWeights["critical"])
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultScoring().Legacy.Weights, cfg.Scoring.Legacy.Weights)
	assert.Equal(t, 30, cfg.Normalizer.WindowDays)
}

func TestLoadFailsFastOnInvalidWeights(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, "config.yaml")
	content := `
scoring:
  cbi:
    composite:
      personal: 0.7
      work: 0.7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "cbi composite weights sum to 1.4000")
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, "config.yaml")
	content := `
normalizer:
  window_days: 14
ai:
  provider: gemini
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Normalizer.WindowDays)
	assert.Equal(t, 22, cfg.Normalizer.AfterHoursStart)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 0.40, cfg.Scoring.CBI.Work.OnCallBurden)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("BURNRISK_STORAGE_TYPE", "bolt")
	t.Setenv("BURNRISK_WINDOW_DAYS", "7")
	t.Setenv("BURNRISK_AI_PROVIDER", "openai")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Storage.Type)
	assert.Equal(t, 7, cfg.Normalizer.WindowDays)
	assert.Equal(t, "openai", cfg.AI.Provider)
}

func TestSaveOmitsKeys(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.AI.OpenAIKey = "sk-secret-value-1234"
	path := filepath.Join(dir, "out", "config.yaml")

	require.NoError(t, cfg.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret-value-1234")
}

func TestConfigValidate(t *testing.T) {
	cfg := Default()
	res := cfg.Validate()
	assert.False(t, res.HasErrors())
	assert.NotEmpty(t, res.Warnings, "disabled AI provider should warn")

	cfg.Storage.Type = "postgres"
	cfg.AI.Provider = "claude"
	res = cfg.Validate()
	assert.True(t, res.HasErrors())
	assert.Len(t, res.Errors, 2)
	assert.Contains(t, res.Error(), "postgres_dsn")
}
