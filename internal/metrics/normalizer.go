package metrics

import (
	"math"
	"strings"
	"time"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/models"
)

// Canonical incident status buckets
const (
	StatusOpen         = "open"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
	StatusCancelled    = "cancelled"
	StatusUnknown      = "unknown"
)

// Canonical incident severity buckets
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityUnknown  = "unknown"
)

var statusAliases = map[string]string{
	"triggered":     StatusOpen,
	"open":          StatusOpen,
	"investigating": StatusOpen,
	"started":       StatusOpen,
	"acknowledged":  StatusAcknowledged,
	"in_progress":   StatusAcknowledged,
	"mitigated":     StatusAcknowledged,
	"resolved":      StatusResolved,
	"closed":        StatusResolved,
	"completed":     StatusResolved,
	"cancelled":     StatusCancelled,
	"canceled":      StatusCancelled,
}

var severityAliases = map[string]string{
	"critical": SeverityCritical,
	"sev0":     SeverityCritical,
	"sev1":     SeverityCritical,
	"p1":       SeverityCritical,
	"high":     SeverityHigh,
	"sev2":     SeverityHigh,
	"p2":       SeverityHigh,
	"medium":   SeverityMedium,
	"sev3":     SeverityMedium,
	"p3":       SeverityMedium,
	"low":      SeverityLow,
	"sev4":     SeverityLow,
	"p4":       SeverityLow,
	"info":     SeverityLow,
}

var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// CanonicalStatus maps a collector's status string onto a canonical bucket
func CanonicalStatus(s string) string {
	if c, ok := statusAliases[normalizeKey(s)]; ok {
		return c
	}
	return StatusUnknown
}

// CanonicalSeverity maps a collector's severity string onto a canonical bucket
func CanonicalSeverity(s string) string {
	if c, ok := severityAliases[normalizeKey(s)]; ok {
		return c
	}
	return SeverityUnknown
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// ParseTimestamp accepts RFC3339 (with or without fractional seconds) and
// "YYYY-MM-DD HH:MM:SS" (read as UTC)
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Window is the analysis window. A zero End is derived from the latest
// parseable timestamp in the member's records.
type Window struct {
	Days int
	End  time.Time
}

// Normalizer converts raw member feeds into a MemberWindowMetrics vector.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	cfg config.NormalizerConfig
}

// NewNormalizer creates a normalizer with the given hour boundaries
func NewNormalizer(cfg config.NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Location resolves the member's zone, falling back to the configured default and then UTC
func (n *Normalizer) Location(tz string) (*time.Location, string) {
	for _, name := range []string{tz, n.cfg.DefaultTimezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, name
		}
	}
	return time.UTC, "UTC"
}

// IsAfterHours reports whether a local time falls outside working hours
func (n *Normalizer) IsAfterHours(t time.Time) bool {
	return inHourRange(t.Hour(), n.cfg.AfterHoursStart, n.cfg.AfterHoursEnd)
}

// IsNight reports whether a local time falls inside the sleep window
func (n *Normalizer) IsNight(t time.Time) bool {
	return inHourRange(t.Hour(), n.cfg.NightStart, n.cfg.NightEnd)
}

// IsWeekend reports Saturday or Sunday
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// inHourRange handles ranges that wrap midnight (start > end)
func inHourRange(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// timeCounter accumulates after-hours and weekend counts over parsed local times
type timeCounter struct {
	total, afterHours, weekend int
}

func (c *timeCounter) add(n *Normalizer, t time.Time) {
	c.total++
	if n.IsAfterHours(t) {
		c.afterHours++
	}
	if IsWeekend(t) {
		c.weekend++
	}
}

// Normalize builds the metric vector for one member. Records are not filtered
// by the window; the window sets the per-week denominators and trend halves.
func (n *Normalizer) Normalize(records models.MemberRecords, window Window) *models.MemberWindowMetrics {
	if window.Days <= 0 {
		window.Days = n.cfg.WindowDays
	}
	loc, tzName := n.Location(records.Timezone)

	m := &models.MemberWindowMetrics{
		MemberID:             records.MemberID,
		WindowDays:           window.Days,
		Timezone:             tzName,
		SeverityDistribution: map[string]int{},
		StatusDistribution:   map[string]int{},
	}

	// Every parsed timestamp, local, for the combined activity view
	var activity []time.Time
	var unparsed int
	parse := func(s string) (time.Time, bool) {
		t, ok := ParseTimestamp(s)
		if !ok {
			unparsed++
			return time.Time{}, false
		}
		return t.In(loc), true
	}
	// Optional timestamps: empty means absent, not malformed
	parseOptional := func(s string) (time.Time, bool) {
		if strings.TrimSpace(s) == "" {
			return time.Time{}, false
		}
		return parse(s)
	}

	if records.HasIncidents() {
		m.Sources = append(m.Sources, models.SourceIncidents)
		n.normalizeIncidents(m, records.Incidents, parse, parseOptional, &activity)
	}
	if records.HasVCS() {
		m.Sources = append(m.Sources, models.SourceVCS)
	}
	if records.HasChat() {
		m.Sources = append(m.Sources, models.SourceChat)
	}

	// VCS timestamps are collected before the window end is known
	var vcsTimes []time.Time
	if records.HasVCS() {
		m.VCS = n.normalizeVCS(records, parse, parseOptional, &vcsTimes)
		activity = append(activity, vcsTimes...)
	}
	if records.HasChat() {
		m.Chat = n.normalizeChat(records.Messages, parse, &activity)
	}

	m.UnparsedTimestamps = unparsed

	end := window.End
	if end.IsZero() {
		for _, t := range activity {
			if t.After(end) {
				end = t
			}
		}
	}
	if !end.IsZero() {
		end = end.In(loc)
	}
	m.WindowEnd = end

	n.summarizeActivity(m, activity, window.Days, end)
	if m.VCS != nil && !end.IsZero() && len(vcsTimes) > 0 {
		quarter := time.Duration(float64(window.Days) * 24 * float64(time.Hour) / 4)
		cutoff := end.Add(-quarter)
		late := 0
		for _, t := range vcsTimes {
			if !t.Before(cutoff) {
				late++
			}
		}
		m.VCS.EndOfWindowShare = ratio(late, len(vcsTimes))
	}

	return m
}

func (n *Normalizer) normalizeIncidents(
	m *models.MemberWindowMetrics,
	incidents []models.IncidentRecord,
	parse, parseOptional func(string) (time.Time, bool),
	activity *[]time.Time,
) {
	m.IncidentCount = len(incidents)

	var counter timeCounter
	var responseTotal float64
	for _, inc := range incidents {
		m.SeverityDistribution[CanonicalSeverity(inc.Severity)]++
		status := CanonicalStatus(inc.Status)
		m.StatusDistribution[status]++

		created, ok := parse(inc.CreatedAt)
		if ok {
			counter.add(n, created)
			*activity = append(*activity, created)
		}

		ack, hasAck := parseOptional(inc.AcknowledgedAt)
		resolved, hasResolved := parseOptional(inc.ResolvedAt)
		if !ok || status == StatusOpen {
			continue
		}
		var answered time.Time
		switch {
		case hasAck:
			answered = ack
		case hasResolved:
			answered = resolved
		default:
			continue
		}
		minutes := answered.Sub(created).Minutes()
		if minutes < 0 {
			continue
		}
		responseTotal += minutes
		m.ResponseSamples++
	}

	m.AfterHoursRatio = ratio(counter.afterHours, counter.total)
	m.WeekendRatio = ratio(counter.weekend, counter.total)
	if m.ResponseSamples > 0 {
		avg := responseTotal / float64(m.ResponseSamples)
		m.AvgResponseTimeMinutes = &avg
	}
}

func (n *Normalizer) normalizeVCS(
	records models.MemberRecords,
	parse, parseOptional func(string) (time.Time, bool),
	vcsTimes *[]time.Time,
) *models.VCSMetrics {
	v := &models.VCSMetrics{
		CommitCount: len(records.Commits),
		PRCount:     len(records.PullRequests),
	}

	var commits timeCounter
	large := 0
	for _, c := range records.Commits {
		if c.Additions+c.Deletions > n.cfg.LargeChangeLines {
			large++
		}
		if t, ok := parse(c.Timestamp); ok {
			commits.add(n, t)
			*vcsTimes = append(*vcsTimes, t)
		}
	}

	var reviewTotal float64
	reviewSamples := 0
	for _, pr := range records.PullRequests {
		if pr.Additions+pr.Deletions > n.cfg.LargeChangeLines {
			large++
		}
		// A malformed merged_at is counted as unparsed and does not mark the PR merged
		if _, merged := parseOptional(pr.MergedAt); merged || strings.EqualFold(pr.State, "merged") {
			v.MergedPRCount++
		}
		created, ok := parse(pr.CreatedAt)
		if ok {
			*vcsTimes = append(*vcsTimes, created)
		}
		review, hasReview := parseOptional(pr.FirstReviewAt)
		if ok && hasReview {
			if hours := review.Sub(created).Hours(); hours >= 0 {
				reviewTotal += hours
				reviewSamples++
			}
		}
	}

	v.AfterHoursCommitRatio = ratio(commits.afterHours, commits.total)
	v.WeekendCommitRatio = ratio(commits.weekend, commits.total)
	v.LargeChangeRatio = ratio(large, v.CommitCount+v.PRCount)
	if reviewSamples > 0 {
		avg := reviewTotal / float64(reviewSamples)
		v.AvgReviewHours = &avg
	}
	return v
}

func (n *Normalizer) normalizeChat(
	messages []models.MessageRecord,
	parse func(string) (time.Time, bool),
	activity *[]time.Time,
) *models.ChatMetrics {
	c := &models.ChatMetrics{MessageCount: len(messages)}

	var counter timeCounter
	var sentimentTotal float64
	sentimentSamples := 0
	for _, msg := range messages {
		if t, ok := parse(msg.Timestamp); ok {
			counter.add(n, t)
			*activity = append(*activity, t)
		}
		if msg.Sentiment != nil && !math.IsNaN(*msg.Sentiment) {
			sentimentTotal += math.Max(-1, math.Min(1, *msg.Sentiment))
			sentimentSamples++
		}
	}

	c.MessagesAfterHoursRatio = ratio(counter.afterHours, counter.total)
	c.MessagesWeekendRatio = ratio(counter.weekend, counter.total)
	if sentimentSamples > 0 {
		avg := sentimentTotal / float64(sentimentSamples)
		c.SentimentScore = &avg
	}
	return c
}

// summarizeActivity fills the combined activity fields used by the personal CBI factors
func (n *Normalizer) summarizeActivity(m *models.MemberWindowMetrics, activity []time.Time, days int, end time.Time) {
	m.ActivityCount = len(activity)
	if len(activity) == 0 {
		return
	}

	var counter timeCounter
	night := 0
	dates := make(map[string]struct{})
	for _, t := range activity {
		counter.add(n, t)
		if n.IsNight(t) {
			night++
		}
		dates[t.Format("2006-01-02")] = struct{}{}
	}
	m.ActiveDays = len(dates)
	m.ActivityAfterHours = ratio(counter.afterHours, counter.total)
	m.ActivityWeekend = ratio(counter.weekend, counter.total)
	m.ActivityNightRatio = ratio(night, counter.total)

	half := time.Duration(float64(days) * 24 * float64(time.Hour) / 2)
	mid := end.Add(-half)
	first, second := 0, 0
	for _, t := range activity {
		if t.Before(mid) {
			first++
		} else {
			second++
		}
	}
	m.ActivityTrend = float64(second-first) / math.Max(float64(first), 1)
}
