package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohankatakam/burnrisk/internal/errors"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ✗ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ! %s\n", warn))
		}
	}

	return sb.String()
}

// ValidateScoring is the startup self-check. It returns a fatal ConfigError on the
// first problem so a process never scores with an inconsistent policy.
func ValidateScoring(s ScoringConfig, n NormalizerConfig, t TeamConfig) error {
	result := &ValidationResult{Valid: true}
	validateScoring(result, s)
	validateNormalizer(result, n)
	validateTeam(result, t)
	if result.HasErrors() {
		return errors.ConfigError(result.Errors[0]).
			WithContext("problems", len(result.Errors))
	}
	return nil
}

func validateWeightGroup(result *ValidationResult, group string, entries []WeightEntry) {
	for _, e := range entries {
		if e.Weight < 0 {
			result.AddError("%s weight %s is negative (%.4f)", group, e.Name, e.Weight)
		}
	}
	if !WeightsSumToOne(entries) {
		result.AddError("%s weights sum to %.4f, expected 1.0", group, sumEntries(entries))
	}
}

func validateScoring(result *ValidationResult, s ScoringConfig) {
	validateWeightGroup(result, "legacy", s.Legacy.Weights.Entries())
	validateWeightGroup(result, "cbi personal", s.CBI.Personal.Entries())
	validateWeightGroup(result, "cbi work", s.CBI.Work.Entries())
	validateWeightGroup(result, "cbi composite", s.CBI.Composite.Entries())

	l := s.Legacy
	for name, v := range map[string]float64{
		"workload_per_week":      l.WorkloadPerWeek,
		"after_hours_ratio":      l.AfterHoursRatio,
		"weekend_ratio":          l.WeekendRatio,
		"severity_load_per_week": l.SeverityLoadPerWeek,
		"response_decay_minutes": l.ResponseDecayMinutes,
	} {
		if v <= 0 {
			result.AddError("legacy scale %s must be positive", name)
		}
	}
	if !(0 < l.MediumThreshold && l.MediumThreshold < l.HighThreshold && l.HighThreshold <= 10) {
		result.AddError("legacy thresholds must satisfy 0 < medium (%.2f) < high (%.2f) <= 10",
			l.MediumThreshold, l.HighThreshold)
	}
	if _, ok := l.SeverityWeights["unknown"]; !ok {
		result.AddError("legacy severity_weights must define \"unknown\"")
	}

	c := s.CBI
	if !(0 < c.MildThreshold && c.MildThreshold < c.ModerateThreshold &&
		c.ModerateThreshold < c.HighThreshold && c.HighThreshold <= 100) {
		result.AddError("cbi bands must be increasing within (0, 100]")
	}
	if !(0 < c.RiskMediumThreshold && c.RiskMediumThreshold < c.RiskHighThreshold && c.RiskHighThreshold <= 100) {
		result.AddError("cbi risk thresholds must satisfy 0 < medium < high <= 100")
	}
	for name, v := range map[string]float64{
		"on_call_load_per_week":  c.OnCallLoadPerWeek,
		"response_decay_minutes": c.ResponseDecayMinutes,
		"prs_per_week":           c.PRsPerWeek,
		"deploys_per_week":       c.DeploysPerWeek,
		"messages_per_day":       c.MessagesPerDay,
		"review_decay_hours":     c.ReviewDecayHours,
		"rest_day_target":        c.RestDayTarget,
	} {
		if v <= 0 {
			result.AddError("cbi scale %s must be positive", name)
		}
	}
}

func validateNormalizer(result *ValidationResult, n NormalizerConfig) {
	for name, h := range map[string]int{
		"after_hours_start": n.AfterHoursStart,
		"after_hours_end":   n.AfterHoursEnd,
		"night_start":       n.NightStart,
		"night_end":         n.NightEnd,
	} {
		if h < 0 || h > 23 {
			result.AddError("normalizer %s must be an hour in [0, 23], got %d", name, h)
		}
	}
	if n.WindowDays <= 0 {
		result.AddError("normalizer window_days must be positive")
	}
	if n.DefaultTimezone != "" {
		if _, err := time.LoadLocation(n.DefaultTimezone); err != nil {
			result.AddError("normalizer default_timezone %q is not a known zone", n.DefaultTimezone)
		}
	}
}

func validateTeam(result *ValidationResult, t TeamConfig) {
	if t.PatternMinFraction <= 0 || t.PatternMinFraction > 1 {
		result.AddError("team pattern_min_fraction must be in (0, 1]")
	}
	if t.PatternMinMembers < 1 {
		result.AddError("team pattern_min_members must be at least 1")
	}
}

// Validate checks the whole configuration. Scoring problems are errors; missing
// optional infrastructure is reported as a warning.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	validateScoring(result, c.Scoring)
	validateNormalizer(result, c.Normalizer)
	validateTeam(result, c.Team)
	c.validateAI(result)
	c.validateStorage(result)

	if c.Workers <= 0 {
		result.AddError("workers must be positive")
	}

	return result
}

func (c *Config) validateAI(result *ValidationResult) {
	switch c.AI.Provider {
	case "", "none":
		result.AddWarning("AI provider disabled; narratives will not be generated")
		return
	case "openai", "gemini":
	default:
		result.AddError("ai.provider must be one of openai, gemini, none (got %q)", c.AI.Provider)
		return
	}

	if c.AI.Timeout <= 0 {
		result.AddError("ai.timeout must be positive")
	}
	if c.AI.Concurrency <= 0 {
		result.AddError("ai.concurrency must be positive")
	}
	if c.AI.RequestsPerSecond <= 0 {
		result.AddWarning("ai.requests_per_second is not positive; LLM calls will not be rate limited")
	}
	if c.AI.RedisAddr != "" && c.AI.RequestsPerDay <= 0 {
		result.AddError("ai.requests_per_day must be positive when redis_addr is set")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Type {
	case "sqlite", "bolt":
		if c.Storage.LocalPath == "" {
			result.AddError("storage.local_path is required for %s", c.Storage.Type)
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			result.AddError("storage.postgres_dsn is required for postgres (or set POSTGRES_DSN)")
			return
		}
		u, err := url.Parse(c.Storage.PostgresDSN)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			result.AddError("storage.postgres_dsn must be a postgres:// URL")
		}
	default:
		result.AddError("storage.type must be one of sqlite, postgres, bolt (got %q)", c.Storage.Type)
	}
}
