package validation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/rohankatakam/burnrisk/internal/risk"
	"github.com/rohankatakam/burnrisk/internal/team"
)

// DefaultTolerance matches the 2-decimal precision aggregates are persisted with
const DefaultTolerance = 0.01

// Check names
const (
	CheckMemberCount          = "member_count"
	CheckAverageScore         = "average_score"
	CheckCBIAverageScore      = "cbi_average_score"
	CheckHighRiskCount        = "high_risk_count"
	CheckMediumRiskCount      = "medium_risk_count"
	CheckAtRiskCount          = "at_risk_count"
	CheckLegacyHighRiskCount  = "legacy_high_risk_count"
	CheckCBIHighRiskCount     = "cbi_high_risk_count"
	CheckHealthStatus         = "health_status"
	CheckMemberReconciliation = "member_risk_reconciliation"
	CheckAIEnhancedCount      = "ai_enhanced_count"
)

// ConsistencyValidator recomputes a persisted TeamResult's aggregates from its member
// results and reports every disagreement. Mismatches are report data, never errors.
type ConsistencyValidator struct {
	tolerance float64
	logger    *slog.Logger
	now       func() time.Time
}

// NewConsistencyValidator creates a validator. tolerance <= 0 uses DefaultTolerance.
func NewConsistencyValidator(tolerance float64) *ConsistencyValidator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &ConsistencyValidator{
		tolerance: tolerance,
		logger:    slog.Default().With("component", "validation"),
		now:       time.Now,
	}
}

// VerifyJSON decodes a persisted result and verifies it
func (v *ConsistencyValidator) VerifyJSON(data []byte) (*models.ConsistencyReport, error) {
	var result models.TeamResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityHigh, "failed to decode team result")
	}
	return v.Verify(&result), nil
}

// Verify runs every check. The input is only read.
func (v *ConsistencyValidator) Verify(result *models.TeamResult) *models.ConsistencyReport {
	report := &models.ConsistencyReport{
		VerifiedAt: v.now().UTC(),
		Tolerance:  v.tolerance,
		Checks:     []models.ConsistencyCheck{},
	}
	if result == nil {
		report.Checks = append(report.Checks, models.ConsistencyCheck{
			Name:          CheckMemberCount,
			Stated:        "missing",
			Recomputed:    "missing",
			Discrepancies: []string{"no team result to verify"},
		})
		return report
	}
	report.RunID = result.RunID

	members := result.Members
	n := len(members)
	legacy := team.LegacySummary(members)
	cbi := team.CBISummary(members)
	high, medium := team.ReconciledCounts(members)

	report.Checks = append(report.Checks,
		intCheck(CheckMemberCount, result.MemberCount, n,
			"stated member_count=%d but found %d member results", result.MemberCount, n),
		v.floatCheck(CheckAverageScore, result.Legacy.AverageScore, legacy.AverageScore, n),
		v.floatCheck(CheckCBIAverageScore, result.CBI.AverageScore, cbi.AverageScore, n),
		countCheck(CheckHighRiskCount, result.HighRiskCount, high, n),
		countCheck(CheckMediumRiskCount, result.MediumRiskCount, medium, n),
		countCheck(CheckAtRiskCount, result.AtRiskCount, high, n),
		countCheck(CheckLegacyHighRiskCount, result.Legacy.HighRiskCount, legacy.HighRiskCount, n),
		countCheck(CheckCBIHighRiskCount, result.CBI.HighRiskCount, cbi.HighRiskCount, n),
		healthCheck(result.HealthStatus, team.HealthStatus(members)),
		reconciliationCheck(members),
		countCheck(CheckAIEnhancedCount, result.AIEnhancedCount, team.EnhancedCount(members), n),
	)

	report.OverallConsistency = true
	for _, c := range report.Checks {
		if !c.Match {
			report.OverallConsistency = false
			break
		}
	}
	return report
}

func intCheck(name string, stated, recomputed int, format string, args ...any) models.ConsistencyCheck {
	c := models.ConsistencyCheck{
		Name:       name,
		Match:      stated == recomputed,
		Stated:     fmt.Sprintf("%d", stated),
		Recomputed: fmt.Sprintf("%d", recomputed),
	}
	if !c.Match {
		c.Discrepancies = []string{fmt.Sprintf(format, args...)}
	}
	return c
}

func countCheck(name string, stated, recomputed, members int) models.ConsistencyCheck {
	return intCheck(name, stated, recomputed,
		"stated %s=%d but recomputed %d from %d members", name, stated, recomputed, members)
}

func (v *ConsistencyValidator) floatCheck(name string, stated, recomputed float64, members int) models.ConsistencyCheck {
	// the extra epsilon absorbs binary representation error at exactly the tolerance
	match := math.Abs(stated-recomputed) <= v.tolerance+1e-9
	c := models.ConsistencyCheck{
		Name:       name,
		Match:      match,
		Stated:     fmt.Sprintf("%.2f", stated),
		Recomputed: fmt.Sprintf("%.2f", recomputed),
	}
	if !match {
		c.Discrepancies = []string{fmt.Sprintf("stated %s=%.2f but recomputed %.2f from %d members",
			name, stated, recomputed, members)}
	}
	return c
}

func healthCheck(stated, recomputed models.RiskLevel) models.ConsistencyCheck {
	c := models.ConsistencyCheck{
		Name:       CheckHealthStatus,
		Match:      stated == recomputed,
		Stated:     string(stated),
		Recomputed: string(recomputed),
	}
	if !c.Match {
		c.Discrepancies = []string{fmt.Sprintf("stated health_status=%s but recomputed %s", stated, recomputed)}
	}
	return c
}

// reconciliationCheck confirms each member's level is the more severe of its two methodologies
func reconciliationCheck(members []models.MemberResult) models.ConsistencyCheck {
	c := models.ConsistencyCheck{Name: CheckMemberReconciliation}
	for _, m := range members {
		want := risk.Classify(m.Legacy, m.CBI)
		if m.RiskLevel == want {
			continue
		}
		c.Discrepancies = append(c.Discrepancies, fmt.Sprintf(
			"member %s stated %s but legacy %s and cbi %s reconcile to %s",
			m.MemberID, m.RiskLevel, levelOf(m.Legacy), cbiLevelOf(m.CBI), want))
	}
	c.Match = len(c.Discrepancies) == 0
	c.Stated = fmt.Sprintf("%d members", len(members))
	c.Recomputed = fmt.Sprintf("%d mismatched", len(c.Discrepancies))
	return c
}

func levelOf(r *models.LegacyScoreResult) models.RiskLevel {
	if !r.Scored() {
		return "none"
	}
	return r.RiskLevel
}

func cbiLevelOf(r *models.CBIResult) models.RiskLevel {
	if r == nil {
		return "none"
	}
	return r.RiskLevel
}

// LogResults logs a report in a formatted way
func (v *ConsistencyValidator) LogResults(report *models.ConsistencyReport) {
	v.logger.Info("consistency verification",
		"run_id", report.RunID,
		"checks", len(report.Checks),
		"overall_consistency", report.OverallConsistency)
	for _, c := range report.Mismatches() {
		for _, d := range c.Discrepancies {
			v.logger.Warn("consistency mismatch", "check", c.Name, "detail", d)
		}
	}
}
