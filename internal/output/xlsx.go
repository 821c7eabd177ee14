package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names in exported workbooks
const (
	SheetSummary  = "Summary"
	SheetMembers  = "Members"
	SheetFactors  = "Factors"
	SheetPatterns = "Patterns"
)

var memberHeader = []any{
	"Member ID", "Name", "Risk Level", "Legacy Score", "Legacy Level",
	"CBI Composite", "CBI Personal", "CBI Work", "CBI Level", "Interpretation",
	"Sources", "AI Provenance", "AI Confidence", "AI Narrative",
}

// ExportXLSX writes a workbook for a team run to path
func ExportXLSX(result *models.TeamResult, path string) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// WriteXLSX streams the workbook to w
func WriteXLSX(result *models.TeamResult, w io.Writer) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(result *models.TeamResult) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("no team result to export")
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetMembers, SheetFactors, SheetPatterns} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, *models.TeamResult, int) error{
		writeSummarySheet, writeMemberSheet, writeFactorSheet, writePatternSheet,
	}
	for _, step := range steps {
		if err := step(f, result, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("build workbook: %w", err)
		}
	}
	return f, nil
}

func writeSummarySheet(f *excelize.File, r *models.TeamResult, bold int) error {
	rows := [][]any{
		{"Team", r.TeamName},
		{"Run ID", r.RunID},
		{"Created At", r.CreatedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Window Days", r.WindowDays},
		{"Status", string(r.Status)},
		{"Members", r.MemberCount},
		{"Health Status", string(r.HealthStatus)},
		{"High Risk", r.HighRiskCount},
		{"Medium Risk", r.MediumRiskCount},
		{"At Risk", r.AtRiskCount},
		{"Legacy Average", r.Legacy.AverageScore},
		{"CBI Average", r.CBI.AverageScore},
		{"AI Enhanced", r.AIEnhancedCount},
		{"Missing AI", strings.Join(r.MissingMembers, ", ")},
	}
	for i, rec := range r.Recommendations {
		rows = append(rows, []any{fmt.Sprintf("Recommendation %d", i+1), rec})
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 20)
}

func writeMemberSheet(f *excelize.File, r *models.TeamResult, bold int) error {
	rows := [][]any{memberHeader}
	for _, m := range r.Members {
		row := []any{m.MemberID, m.Name, string(m.RiskLevel)}
		if m.Legacy.Scored() {
			row = append(row, m.Legacy.Score, string(m.Legacy.RiskLevel))
		} else {
			row = append(row, "", "")
		}
		if m.CBI != nil {
			row = append(row, m.CBI.CompositeScore, m.CBI.PersonalScore, m.CBI.WorkRelatedScore,
				string(m.CBI.RiskLevel), string(m.CBI.Interpretation))
		} else {
			row = append(row, "", "", "", "", "")
		}
		row = append(row, sourceNames(m.Metrics))
		if ai := m.AIEnhancement; ai != nil {
			row = append(row, string(ai.Provenance), ai.Confidence, ai.Narrative)
		} else {
			row = append(row, "", "", "")
		}
		rows = append(rows, row)
	}
	if err := writeRows(f, SheetMembers, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetMembers, len(memberHeader), bold)
}

func writeFactorSheet(f *excelize.File, r *models.TeamResult, bold int) error {
	header := []any{"Member ID", "Methodology", "Factor", "Raw", "Normalized", "Weight", "Contribution"}
	rows := [][]any{header}
	for _, m := range r.Members {
		if m.Legacy != nil {
			for _, fc := range m.Legacy.Factors {
				rows = append(rows, []any{m.MemberID, "legacy", fc.Name, fc.RawValue, fc.Normalized, fc.Weight, fc.Contribution})
			}
		}
		if m.CBI != nil {
			for _, c := range m.CBI.PersonalBreakdown {
				rows = append(rows, []any{m.MemberID, "cbi_personal", c.Name, "", c.Value, c.Weight, c.Contribution})
			}
			for _, c := range m.CBI.WorkBreakdown {
				rows = append(rows, []any{m.MemberID, "cbi_work", c.Name, "", c.Value, c.Weight, c.Contribution})
			}
		}
	}
	if err := writeRows(f, SheetFactors, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetFactors, len(header), bold)
}

func writePatternSheet(f *excelize.File, r *models.TeamResult, bold int) error {
	header := []any{"Factors", "Members", "Coverage", "Description"}
	rows := [][]any{header}
	for _, p := range r.CommonPatterns {
		rows = append(rows, []any{strings.Join(p.Factors, ", "), strings.Join(p.MemberIDs, ", "), p.Coverage, p.Description})
	}
	if err := writeRows(f, SheetPatterns, rows); err != nil {
		return err
	}
	return styleHeader(f, SheetPatterns, len(header), bold)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols, style int) error {
	last, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func sourceNames(m *models.MemberWindowMetrics) string {
	if m == nil {
		return ""
	}
	names := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
