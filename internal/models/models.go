package models

import (
	"time"
)

// Source names a raw activity feed
type Source string

const (
	SourceIncidents Source = "incidents"
	SourceVCS       Source = "vcs"
	SourceChat      Source = "chat"
)

// IncidentRecord is one on-call incident as delivered by an incident collector.
// Timestamps are kept as strings so malformed values can be counted instead of rejected.
type IncidentRecord struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Severity       string `json:"severity" yaml:"severity"`
	Status         string `json:"status" yaml:"status"`
	CreatedAt      string `json:"created_at" yaml:"created_at"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty" yaml:"acknowledged_at,omitempty"`
	ResolvedAt     string `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
}

// CommitRecord represents a git commit authored by the member
type CommitRecord struct {
	SHA       string `json:"sha" yaml:"sha"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Additions int    `json:"additions" yaml:"additions"`
	Deletions int    `json:"deletions" yaml:"deletions"`
}

// PullRequestRecord represents a pull request opened by the member
type PullRequestRecord struct {
	Number        int    `json:"number" yaml:"number"`
	State         string `json:"state" yaml:"state"`
	CreatedAt     string `json:"created_at" yaml:"created_at"`
	FirstReviewAt string `json:"first_review_at,omitempty" yaml:"first_review_at,omitempty"`
	MergedAt      string `json:"merged_at,omitempty" yaml:"merged_at,omitempty"`
	Additions     int    `json:"additions" yaml:"additions"`
	Deletions     int    `json:"deletions" yaml:"deletions"`
}

// MessageRecord represents a chat message sent by the member
type MessageRecord struct {
	Timestamp string   `json:"timestamp" yaml:"timestamp"`
	Channel   string   `json:"channel,omitempty" yaml:"channel,omitempty"`
	Sentiment *float64 `json:"sentiment,omitempty" yaml:"sentiment,omitempty"` // -1.0 to 1.0 when scored upstream
}

// MemberRecords bundles one member's raw feeds for an analysis window.
// A nil slice means the source was not collected; an empty slice means
// the source was collected and the member had no activity.
type MemberRecords struct {
	MemberID     string              `json:"member_id" yaml:"member_id"`
	Name         string              `json:"name,omitempty" yaml:"name,omitempty"`
	Email        string              `json:"email,omitempty" yaml:"email,omitempty"`
	Timezone     string              `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Incidents    []IncidentRecord    `json:"incidents" yaml:"incidents"`
	Commits      []CommitRecord      `json:"commits" yaml:"commits"`
	PullRequests []PullRequestRecord `json:"pull_requests" yaml:"pull_requests"`
	Messages     []MessageRecord     `json:"messages" yaml:"messages"`
}

// HasVCS reports whether any version-control feed was collected
func (r *MemberRecords) HasVCS() bool {
	return r.Commits != nil || r.PullRequests != nil
}

// HasChat reports whether the chat feed was collected
func (r *MemberRecords) HasChat() bool {
	return r.Messages != nil
}

// HasIncidents reports whether the incident feed was collected
func (r *MemberRecords) HasIncidents() bool {
	return r.Incidents != nil
}

// VCSMetrics holds version-control derived metrics. Nil on MemberWindowMetrics when absent.
type VCSMetrics struct {
	CommitCount           int      `json:"commit_count"`
	PRCount               int      `json:"pr_count"`
	MergedPRCount         int      `json:"merged_pr_count"`
	AfterHoursCommitRatio float64  `json:"after_hours_commit_ratio"`
	WeekendCommitRatio    float64  `json:"weekend_commit_ratio"`
	LargeChangeRatio      float64  `json:"large_change_ratio"`
	AvgReviewHours        *float64 `json:"avg_review_hours,omitempty"`
	EndOfWindowShare      float64  `json:"end_of_window_share"`
}

// ChatMetrics holds chat derived metrics. Nil on MemberWindowMetrics when absent.
type ChatMetrics struct {
	MessageCount            int      `json:"message_count"`
	SentimentScore          *float64 `json:"sentiment_score,omitempty"`
	MessagesAfterHoursRatio float64  `json:"messages_after_hours_ratio"`
	MessagesWeekendRatio    float64  `json:"messages_weekend_ratio"`
}

// MemberWindowMetrics is the common metric vector for one member over one analysis window.
// It is produced once by the normalizer and never mutated afterwards.
type MemberWindowMetrics struct {
	MemberID   string    `json:"member_id"`
	WindowDays int       `json:"window_days"`
	WindowEnd  time.Time `json:"window_end"`
	Timezone   string    `json:"timezone"`
	Sources    []Source  `json:"sources"`

	// Incident feed
	IncidentCount          int            `json:"incident_count"`
	AfterHoursRatio        float64        `json:"after_hours_ratio"`
	WeekendRatio           float64        `json:"weekend_ratio"`
	AvgResponseTimeMinutes *float64       `json:"avg_response_time_minutes,omitempty"`
	ResponseSamples        int            `json:"response_samples"`
	SeverityDistribution   map[string]int `json:"severity_distribution"`
	StatusDistribution     map[string]int `json:"status_distribution"`

	VCS  *VCSMetrics  `json:"vcs,omitempty"`
	Chat *ChatMetrics `json:"chat,omitempty"`

	// Combined activity across every timestamped record
	ActivityCount      int     `json:"activity_count"`
	ActiveDays         int     `json:"active_days"`
	ActivityAfterHours float64 `json:"activity_after_hours_ratio"`
	ActivityWeekend    float64 `json:"activity_weekend_ratio"`
	ActivityNightRatio float64 `json:"activity_night_ratio"`
	ActivityTrend      float64 `json:"activity_trend"`
	UnparsedTimestamps int     `json:"unparsed_timestamps"`
}

// HasSource reports whether the named source contributed to the metrics
func (m *MemberWindowMetrics) HasSource(s Source) bool {
	for _, src := range m.Sources {
		if src == s {
			return true
		}
	}
	return false
}

// FactorContribution is one weighted factor inside a score breakdown
type FactorContribution struct {
	Name         string  `json:"name"`
	RawValue     float64 `json:"raw_value"`
	Normalized   float64 `json:"normalized"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// LegacyScoreResult is the 0-10 weighted heuristic score. Available is false when the
// member has no incident source; such a result carries only its skipped factors.
type LegacyScoreResult struct {
	Available       bool                 `json:"available"`
	Score           float64              `json:"score"`
	RiskLevel       RiskLevel            `json:"risk_level"`
	Factors         []FactorContribution `json:"factors"`
	SkippedFactors  []string             `json:"skipped_factors,omitempty"`
	Recommendations []string             `json:"recommendations"`
}

// Scored reports whether the heuristic produced a score
func (r *LegacyScoreResult) Scored() bool {
	return r != nil && r.Available
}

// Interpretation is the qualitative CBI band
type Interpretation string

const (
	InterpretationLow      Interpretation = "low"
	InterpretationMild     Interpretation = "mild"
	InterpretationModerate Interpretation = "moderate"
	InterpretationHigh     Interpretation = "high"
)

// CBIComponent is one factor of a CBI sub-score
type CBIComponent struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"` // clamped to [0,100]
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// CBIResult is the composite burnout index
type CBIResult struct {
	PersonalScore     float64        `json:"personal_score"`
	WorkRelatedScore  float64        `json:"work_related_score"`
	CompositeScore    float64        `json:"composite_score"`
	Interpretation    Interpretation `json:"interpretation"`
	RiskLevel         RiskLevel      `json:"risk_level"`
	PersonalBreakdown []CBIComponent `json:"personal_breakdown"`
	WorkBreakdown     []CBIComponent `json:"work_breakdown"`
	SkippedFactors    []string       `json:"skipped_factors,omitempty"`
}

// Provenance distinguishes LLM output from the templated fallback
type Provenance string

const (
	ProvenanceLLM      Provenance = "llm"
	ProvenanceFallback Provenance = "fallback"
)

// Recommendation is a structured action item
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // "low", "medium", "high"
}

// AIEnhancement is attached to a member or team result only when the enhancement path ran
type AIEnhancement struct {
	Narrative       string           `json:"narrative"`
	RiskLevel       RiskLevel        `json:"ai_risk_level"`
	Confidence      float64          `json:"ai_confidence"`
	Recommendations []Recommendation `json:"recommendations"`
	Provenance      Provenance       `json:"provenance"`
	FallbackReason  string           `json:"fallback_reason,omitempty"`
	Model           string           `json:"model,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// IsFallback reports whether the enhancement came from the templated path
func (e *AIEnhancement) IsFallback() bool {
	return e != nil && e.Provenance == ProvenanceFallback
}

// MemberResult is the full per-member output of a run
type MemberResult struct {
	MemberID      string               `json:"member_id"`
	Name          string               `json:"name,omitempty"`
	Metrics       *MemberWindowMetrics `json:"metrics"`
	Legacy        *LegacyScoreResult   `json:"legacy"`
	CBI           *CBIResult           `json:"cbi"`
	RiskLevel     RiskLevel            `json:"risk_level"`
	AIEnhancement *AIEnhancement       `json:"ai_enhancement,omitempty"`
}

// MethodologySummary aggregates one scoring methodology across the team
type MethodologySummary struct {
	AverageScore    float64 `json:"average_score"`
	HighRiskCount   int     `json:"high_risk_count"`
	MediumRiskCount int     `json:"medium_risk_count"`
}

// CommonPattern is a pair of elevated factors shared by a meaningful share of the team
type CommonPattern struct {
	Factors     []string `json:"factors"`
	MemberIDs   []string `json:"member_ids"`
	Coverage    float64  `json:"coverage"`
	Description string   `json:"description"`
}

// RunStatus describes how far a run got
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
)

// TeamResult is the persisted output of an analysis run
type TeamResult struct {
	RunID      string    `json:"run_id"`
	TeamName   string    `json:"team_name"`
	Actor      string    `json:"actor,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	WindowDays int       `json:"window_days"`
	Status     RunStatus `json:"status"`

	Members     []MemberResult `json:"members"`
	MemberCount int            `json:"member_count"`

	Legacy          MethodologySummary `json:"legacy"`
	CBI             MethodologySummary `json:"cbi"`
	HighRiskCount   int                `json:"high_risk_count"`
	MediumRiskCount int                `json:"medium_risk_count"`
	AtRiskCount     int                `json:"at_risk_count"`
	HealthStatus    RiskLevel          `json:"health_status"`

	CommonPatterns    []CommonPattern `json:"common_patterns"`
	Recommendations   []string        `json:"recommendations"`
	TeamInsight       *AIEnhancement  `json:"team_insight,omitempty"`
	AIAttempted       bool            `json:"ai_attempted"`
	AIEnhancedCount   int             `json:"ai_enhanced_count"`
	PartialAICoverage bool            `json:"partial_ai_coverage"`
	MissingMembers    []string        `json:"missing_members,omitempty"`
}

// ConsistencyCheck is one named comparison performed by the verifier
type ConsistencyCheck struct {
	Name          string   `json:"name"`
	Match         bool     `json:"match"`
	Stated        string   `json:"stated"`
	Recomputed    string   `json:"recomputed"`
	Discrepancies []string `json:"discrepancies,omitempty"`
}

// ConsistencyReport is the outcome of verifying a persisted TeamResult
type ConsistencyReport struct {
	RunID              string             `json:"run_id"`
	VerifiedAt         time.Time          `json:"verified_at"`
	Tolerance          float64            `json:"tolerance"`
	Checks             []ConsistencyCheck `json:"checks"`
	OverallConsistency bool               `json:"overall_consistency"`
}

// Mismatches returns the failed checks
func (r *ConsistencyReport) Mismatches() []ConsistencyCheck {
	var out []ConsistencyCheck
	for _, c := range r.Checks {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}

// Check returns the named check, or nil
func (r *ConsistencyReport) Check(name string) *ConsistencyCheck {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}
