package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rohankatakam/burnrisk/internal/models"
)

// TextFormatter writes human-readable reports
type TextFormatter struct {
	Level     VerbosityLevel
	Decorated bool
}

func (f *TextFormatter) FormatTeam(result *models.TeamResult, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("no team result to format")
	}
	if f.Level == VerbosityQuiet {
		_, err := fmt.Fprintln(w, quietLine(result))
		return err
	}

	ew := &errWriter{w: w}
	ew.printf("%sBurnout Risk Report: %s\n", f.icon("📊 "), result.TeamName)
	ew.printf("Run: %s  Window: %d days  Status: %s\n", result.RunID, result.WindowDays, result.Status)
	ew.printf("Health: %s %s  (at risk: %d of %d)\n\n",
		f.levelMark(result.HealthStatus), strings.ToUpper(string(result.HealthStatus)),
		result.AtRiskCount, result.MemberCount)

	tw := tabwriter.NewWriter(ew, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Methodology\tAverage\tHigh\tMedium")
	fmt.Fprintf(tw, "Legacy (0-10)\t%.2f\t%d\t%d\n", result.Legacy.AverageScore, result.Legacy.HighRiskCount, result.Legacy.MediumRiskCount)
	fmt.Fprintf(tw, "CBI (0-100)\t%.2f\t%d\t%d\n", result.CBI.AverageScore, result.CBI.HighRiskCount, result.CBI.MediumRiskCount)
	tw.Flush()
	ew.printf("\n")

	if len(result.Members) > 0 {
		ew.printf("Members:\n")
		for i := range result.Members {
			f.writeMember(ew, &result.Members[i])
		}
		ew.printf("\n")
	}

	if len(result.CommonPatterns) > 0 {
		ew.printf("Common patterns:\n")
		for _, p := range result.CommonPatterns {
			ew.printf("- %s\n", p.Description)
		}
		ew.printf("\n")
	}

	if len(result.Recommendations) > 0 {
		ew.printf("Recommendations:\n")
		for _, rec := range result.Recommendations {
			ew.printf("- %s\n", rec)
		}
		ew.printf("\n")
	}

	if result.AIAttempted {
		ew.printf("AI enhancement: %d of %d members", result.AIEnhancedCount, result.MemberCount)
		if result.PartialAICoverage {
			ew.printf(" (partial, missing: %s)", strings.Join(result.MissingMembers, ", "))
		}
		ew.printf("\n")
		if ti := result.TeamInsight; ti != nil {
			ew.printf("Team insight [%s]: %s\n", provenanceLabel(ti), ti.Narrative)
			if f.Level == VerbosityExplain {
				writeRecommendations(ew, "  ", ti.Recommendations)
			}
		}
	}

	if f.Level != VerbosityExplain && result.HealthStatus != models.RiskLow {
		ew.printf("\nRun with --verbosity explain for factor breakdowns\n")
	}
	return ew.err
}

func (f *TextFormatter) writeMember(ew *errWriter, m *models.MemberResult) {
	label := m.MemberID
	if m.Name != "" {
		label = fmt.Sprintf("%s (%s)", m.Name, m.MemberID)
	}
	ew.printf("%s %s: %s", f.levelMark(m.RiskLevel), label, m.RiskLevel)
	if m.Legacy.Scored() {
		ew.printf(" | legacy %.2f %s", m.Legacy.Score, m.Legacy.RiskLevel)
	} else if m.Legacy != nil {
		ew.printf(" | legacy n/a")
	}
	if m.CBI != nil {
		ew.printf(" | cbi %.2f %s", m.CBI.CompositeScore, m.CBI.RiskLevel)
	}
	ew.printf("\n")

	if f.Level != VerbosityExplain {
		return
	}
	if m.Legacy.Scored() {
		for _, fc := range m.Legacy.Factors {
			ew.printf("    %-24s raw %-8.2f norm %.2f x %.2f = %.3f\n", fc.Name, fc.RawValue, fc.Normalized, fc.Weight, fc.Contribution)
		}
	}
	if m.CBI != nil {
		ew.printf("    cbi personal %.2f, work %.2f (%s)\n", m.CBI.PersonalScore, m.CBI.WorkRelatedScore, m.CBI.Interpretation)
	}
	if ai := m.AIEnhancement; ai != nil {
		ew.printf("    ai [%s, %s, confidence %.2f]: %s\n", provenanceLabel(ai), ai.RiskLevel, ai.Confidence, ai.Narrative)
		writeRecommendations(ew, "      ", ai.Recommendations)
	}
}

func (f *TextFormatter) FormatReport(report *models.ConsistencyReport, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("no consistency report to format")
	}
	ew := &errWriter{w: w}
	mismatches := report.Mismatches()
	status := "CONSISTENT"
	if !report.OverallConsistency {
		status = "INCONSISTENT"
	}
	ew.printf("Run %s: %s (%d checks, %d mismatches, tolerance %.2f)\n",
		report.RunID, status, len(report.Checks), len(mismatches), report.Tolerance)
	if f.Level == VerbosityQuiet {
		return ew.err
	}

	for _, c := range report.Checks {
		if c.Match && f.Level != VerbosityExplain {
			continue
		}
		ew.printf("%s %s: stated %s, recomputed %s\n", f.checkMark(c.Match), c.Name, c.Stated, c.Recomputed)
		for _, d := range c.Discrepancies {
			ew.printf("    %s\n", d)
		}
	}
	return ew.err
}

func quietLine(r *models.TeamResult) string {
	return fmt.Sprintf("%s: health=%s, %d high / %d medium of %d members (legacy avg %.2f, cbi avg %.2f)",
		r.TeamName, r.HealthStatus, r.HighRiskCount, r.MediumRiskCount, r.MemberCount,
		r.Legacy.AverageScore, r.CBI.AverageScore)
}

func writeRecommendations(ew *errWriter, indent string, recs []models.Recommendation) {
	for _, rec := range recs {
		ew.printf("%s- [%s] %s", indent, rec.Priority, rec.Title)
		if rec.Description != "" {
			ew.printf(": %s", rec.Description)
		}
		ew.printf("\n")
	}
}

func provenanceLabel(e *models.AIEnhancement) string {
	if e.IsFallback() {
		return "fallback: " + e.FallbackReason
	}
	return string(e.Provenance)
}

func (f *TextFormatter) icon(s string) string {
	if f.Decorated {
		return s
	}
	return ""
}

func (f *TextFormatter) levelMark(level models.RiskLevel) string {
	if !f.Decorated {
		return "[" + strings.ToUpper(string(level)) + "]"
	}
	switch level {
	case models.RiskHigh:
		return "🔴"
	case models.RiskMedium:
		return "⚠️ "
	case models.RiskLow:
		return "🟢"
	default:
		return "•"
	}
}

func (f *TextFormatter) checkMark(ok bool) string {
	switch {
	case ok && f.Decorated:
		return "✅"
	case ok:
		return "[ok]"
	case f.Decorated:
		return "❌"
	default:
		return "[mismatch]"
	}
}

// errWriter keeps the first write error so report code can stay linear
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...)
}
