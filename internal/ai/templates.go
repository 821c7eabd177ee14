package ai

// SystemPrompt frames every narrative request. The model must answer with one JSON object.
const SystemPrompt = `You are an engineering wellbeing analyst. You review behavioral workload signals
(on-call incidents, version control activity, chat activity) and explain burnout risk to an
engineering manager in plain, non-judgmental language. You never diagnose individuals.

Respond with a single JSON object and nothing else:
{
  "narrative": "2-4 sentences",
  "risk_level": "low" | "medium" | "high",
  "confidence": number between 0 and 1,
  "recommendations": [{"title": "...", "description": "...", "priority": "low" | "medium" | "high"}]
}`

// PromptTemplates contains the narrative prompt templates (text/template syntax)
var PromptTemplates = map[string]string{
	"member_narrative": `Assess burnout risk for {{.Name}} (id {{.MemberID}}).

Analysis window: {{.WindowDays}} days, local timezone {{.Timezone}}
Available data sources: {{.Sources}}
{{- with .Metrics}}
{{- if .HasSource "incidents"}}

On-call incidents:
- Count: {{.IncidentCount}}
- After-hours share: {{pct .AfterHoursRatio}}
- Weekend share: {{pct .WeekendRatio}}
- Average response time: {{minutes .AvgResponseTimeMinutes}}
- Severity mix: {{dist .SeverityDistribution}}
{{- end}}
{{- with .VCS}}

Version control:
- Commits: {{.CommitCount}}, pull requests: {{.PRCount}} ({{.MergedPRCount}} merged)
- After-hours commits: {{pct .AfterHoursCommitRatio}}, weekend commits: {{pct .WeekendCommitRatio}}
- Large changes: {{pct .LargeChangeRatio}}
- Average time to first review: {{hours .AvgReviewHours}}
{{- end}}
{{- with .Chat}}

Chat:
- Messages: {{.MessageCount}}
- After-hours messages: {{pct .MessagesAfterHoursRatio}}, weekend messages: {{pct .MessagesWeekendRatio}}
- Average sentiment: {{sentiment .SentimentScore}}
{{- end}}
{{- end}}
{{- if .HasLegacy}}
{{- with .Legacy}}

Heuristic score: {{f2 .Score}}/10 ({{.RiskLevel}})
{{- range .Factors}}
- {{.Name}}: contributes {{f2 .Contribution}}
{{- end}}
{{- end}}
{{- end}}
{{- with .CBI}}

Composite burnout index: {{f2 .CompositeScore}}/100 ({{.Interpretation}}; personal {{f2 .PersonalScore}}, work-related {{f2 .WorkRelatedScore}})
{{- end}}
{{- if .Elevated}}

Elevated factors: {{join .Elevated ", "}}
{{- end}}

Explain what is driving the risk, state your own risk level, and give at most 3 concrete
recommendations a manager could act on this month.`,

	"team_insight": `Summarize burnout risk for team {{.TeamName}} ({{.MemberCount}} members).

Team health status: {{.HealthStatus}}
Heuristic score average: {{f2 .LegacyAverage}}/10 ({{.LegacyHigh}} high, {{.LegacyMedium}} medium)
Composite index average: {{f2 .CBIAverage}}/100 ({{.CBIHigh}} high, {{.CBIMedium}} medium)
Members at high risk: {{.HighRiskCount}}, at medium risk: {{.MediumRiskCount}}
{{- if .Patterns}}

Shared patterns:
{{- range .Patterns}}
- {{join .Factors " + "}} ({{pct .Coverage}} of the team)
{{- end}}
{{- end}}

Member summaries:
{{- range .Members}}
- {{.Label}}: {{.RiskLevel}}{{if .Narrative}}; {{.Narrative}}{{end}}
{{- end}}

Describe the team-level picture without singling anyone out, state the team risk level, and give
at most 3 team-level recommendations.`,
}

// FactorGuidance provides the human-readable title and action for each scoring factor.
// Used to build fallback recommendations.
var FactorGuidance = map[string]struct {
	Title       string
	Description string
}{
	"workload":              {"Rebalance on-call load", "Incident volume is above a sustainable weekly level; spread pages across the rotation."},
	"after_hours":           {"Reduce after-hours pages", "Route non-urgent alerts to business hours and review escalation policies."},
	"weekend":               {"Protect weekends", "Limit weekend coverage to critical alerts and give compensating time off."},
	"severity_load":         {"Share high-severity incidents", "Pair on critical incidents and fix the alerts that recur most often."},
	"response_pressure":     {"Ease response-time pressure", "Relax acknowledgement targets or add a secondary responder."},
	"work_hours_trend":      {"Watch rising hours", "Activity is growing through the window; check scope and deadlines."},
	"weekend_work":          {"Discourage weekend work", "Weekend activity is high; make it visible in planning and push back on it."},
	"after_hours_activity":  {"Discourage late work", "Much of the activity happens outside working hours."},
	"vacation_usage":        {"Encourage time off", "There are few inactive days in the window; plan recovery time."},
	"sleep_quality_proxy":   {"Protect sleep hours", "Activity between 22:00 and 06:00 is frequent."},
	"cadence_pressure":      {"Smooth delivery cadence", "Work is bunched at the end of the window; revisit sprint commitments."},
	"review_speed_pressure": {"Relax review expectations", "Reviews arrive very quickly, which suggests constant interruption."},
	"pr_frequency":          {"Right-size pull requests", "Pull request volume is high; check for fragmentation or excess scope."},
	"deployment_frequency":  {"Review release load", "Frequent merges may carry release and follow-up pressure."},
	"meeting_load":          {"Reduce chat load", "Message volume per active day is high; consider focus blocks."},
	"on_call_burden":        {"Review on-call burden", "On-call load and response pressure are both elevated."},
}

// FallbackTemplates render the deterministic narrative used when the LLM path fails
var FallbackTemplates = map[string]string{
	"member": `{{.Label}} shows {{.RiskLevel}} burnout risk:` +
		`{{if .HasLegacy}} heuristic score {{f2 .LegacyScore}}/10{{else}} no incident data for the heuristic score{{end}}` +
		`{{if .HasCBI}} and composite index {{f2 .CBIScore}}/100 ({{.Interpretation}}){{end}}.` +
		`{{if .Drivers}} Main drivers: {{join .Drivers ", "}}.{{else}} No factor is elevated.{{end}}` +
		` Based on {{.Sources}} data; generated without AI analysis.`,

	"team": `Team {{.TeamName}} health is {{.HealthStatus}} across {{.MemberCount}} members` +
		` ({{.HighRiskCount}} high risk, {{.MediumRiskCount}} medium risk).` +
		` Average heuristic score {{f2 .LegacyAverage}}/10, average composite index {{f2 .CBIAverage}}/100.` +
		`{{if .Patterns}} Shared patterns: {{range $i, $p := .Patterns}}{{if $i}}; {{end}}{{join $p.Factors " + "}}{{end}}.{{end}}` +
		` Generated without AI analysis.`,
}
