package ai

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/rohankatakam/burnrisk/internal/models"
)

// MemberRequest is everything the enhancer may see about one member
type MemberRequest struct {
	MemberID string
	Name     string
	Metrics  *models.MemberWindowMetrics
	Legacy   *models.LegacyScoreResult
	CBI      *models.CBIResult
	// Elevated names the scoring factors above their elevation thresholds
	Elevated []string
}

// Label is the display name, falling back to the id
func (r MemberRequest) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.MemberID
}

// HasLegacy reports whether the heuristic scored this member
func (r MemberRequest) HasLegacy() bool {
	return r.Legacy.Scored()
}

// TeamRequest carries an aggregated team result whose members are already
// enhanced (or fell back). Raw metrics are not re-sent.
type TeamRequest struct {
	Team *models.TeamResult
}

var templateFuncs = template.FuncMap{
	"f2":  func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"minutes": func(v *float64) string {
		if v == nil {
			return "no samples"
		}
		return fmt.Sprintf("%.1f minutes", *v)
	},
	"hours": func(v *float64) string {
		if v == nil {
			return "no reviews"
		}
		return fmt.Sprintf("%.1f hours", *v)
	},
	"sentiment": func(v *float64) string {
		if v == nil {
			return "not scored"
		}
		return fmt.Sprintf("%+.2f", *v)
	},
	"dist": func(d map[string]int) string {
		if len(d) == 0 {
			return "none"
		}
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, d[k]))
		}
		return strings.Join(parts, ", ")
	},
	"join": strings.Join,
}

// PromptGenerator renders prompts and fallback narratives from templates.
// Templates are parsed once; rendering is safe for concurrent use.
type PromptGenerator struct {
	templates *template.Template
}

// NewPromptGenerator parses every prompt and fallback template
func NewPromptGenerator() (*PromptGenerator, error) {
	root := template.New("ai").Funcs(templateFuncs).Option("missingkey=error")
	for name, body := range PromptTemplates {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
		}
	}
	for name, body := range FallbackTemplates {
		if _, err := root.New("fallback_" + name).Parse(body); err != nil {
			return nil, fmt.Errorf("failed to parse fallback template %s: %w", name, err)
		}
	}
	return &PromptGenerator{templates: root}, nil
}

func (g *PromptGenerator) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := g.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

type memberPromptData struct {
	MemberRequest
	WindowDays int
	Timezone   string
	Sources    string
}

// GenerateMemberPrompt renders the user prompt for one member
func (g *PromptGenerator) GenerateMemberPrompt(req MemberRequest) (string, error) {
	data := memberPromptData{MemberRequest: req}
	data.Name = req.Label()
	if req.Metrics != nil {
		data.WindowDays = req.Metrics.WindowDays
		data.Timezone = req.Metrics.Timezone
	}
	data.Sources = sourceList(req.Metrics)
	return g.render("member_narrative", data)
}

type teamMemberLine struct {
	Label     string
	RiskLevel models.RiskLevel
	Narrative string
}

type teamPromptData struct {
	TeamName        string
	MemberCount     int
	HealthStatus    models.RiskLevel
	LegacyAverage   float64
	LegacyHigh      int
	LegacyMedium    int
	CBIAverage      float64
	CBIHigh         int
	CBIMedium       int
	HighRiskCount   int
	MediumRiskCount int
	Patterns        []models.CommonPattern
	Members         []teamMemberLine
}

func newTeamPromptData(team *models.TeamResult) teamPromptData {
	data := teamPromptData{
		TeamName:        team.TeamName,
		MemberCount:     team.MemberCount,
		HealthStatus:    team.HealthStatus,
		LegacyAverage:   team.Legacy.AverageScore,
		LegacyHigh:      team.Legacy.HighRiskCount,
		LegacyMedium:    team.Legacy.MediumRiskCount,
		CBIAverage:      team.CBI.AverageScore,
		CBIHigh:         team.CBI.HighRiskCount,
		CBIMedium:       team.CBI.MediumRiskCount,
		HighRiskCount:   team.HighRiskCount,
		MediumRiskCount: team.MediumRiskCount,
		Patterns:        team.CommonPatterns,
	}
	for _, m := range team.Members {
		line := teamMemberLine{Label: m.MemberID, RiskLevel: m.RiskLevel}
		if m.Name != "" {
			line.Label = m.Name
		}
		if m.AIEnhancement != nil {
			line.Narrative = m.AIEnhancement.Narrative
		}
		data.Members = append(data.Members, line)
	}
	return data
}

// GenerateTeamPrompt renders the user prompt for a team insight
func (g *PromptGenerator) GenerateTeamPrompt(req TeamRequest) (string, error) {
	if req.Team == nil {
		return "", fmt.Errorf("team result is required")
	}
	return g.render("team_insight", newTeamPromptData(req.Team))
}

func sourceList(m *models.MemberWindowMetrics) string {
	if m == nil || len(m.Sources) == 0 {
		return "none"
	}
	names := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
