package team

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/models"
)

// Aggregator rolls member results up into team summaries. It holds only read-only
// configuration and is safe for concurrent use.
type Aggregator struct {
	team           config.TeamConfig
	elevatedFactor float64 // legacy normalized factor threshold, 0-1
	elevatedCBI    float64 // CBI component threshold, 0-100
}

// NewAggregator creates an aggregator. Elevation thresholds come from the scoring policy
// so patterns agree with the per-member recommendations.
func NewAggregator(team config.TeamConfig, scoring config.ScoringConfig) *Aggregator {
	return &Aggregator{
		team:           team,
		elevatedFactor: scoring.Legacy.ElevatedFactor,
		elevatedCBI:    scoring.CBI.ElevatedComponent,
	}
}

// Aggregate computes the team-level fields of a TeamResult. Run identity, timestamps,
// and AI coverage flags are left to the caller.
func (a *Aggregator) Aggregate(teamName string, members []models.MemberResult) *models.TeamResult {
	result := &models.TeamResult{
		TeamName:        teamName,
		Members:         members,
		MemberCount:     len(members),
		CommonPatterns:  []models.CommonPattern{},
		Recommendations: []string{},
	}
	if result.Members == nil {
		result.Members = []models.MemberResult{}
	}

	result.Legacy = LegacySummary(members)
	result.CBI = CBISummary(members)
	result.HighRiskCount, result.MediumRiskCount = ReconciledCounts(members)
	result.AtRiskCount = result.HighRiskCount
	result.HealthStatus = HealthStatus(members)
	result.AIEnhancedCount = EnhancedCount(members)
	result.CommonPatterns = a.commonPatterns(members)
	result.Recommendations = recommendations(result)

	return result
}

// LegacySummary averages legacy scores and counts per-methodology levels over the
// members the heuristic could score
func LegacySummary(members []models.MemberResult) models.MethodologySummary {
	var s models.MethodologySummary
	var sum float64
	n := 0
	for _, m := range members {
		if !m.Legacy.Scored() {
			continue
		}
		n++
		sum += m.Legacy.Score
		switch m.Legacy.RiskLevel {
		case models.RiskHigh:
			s.HighRiskCount++
		case models.RiskMedium:
			s.MediumRiskCount++
		}
	}
	if n > 0 {
		s.AverageScore = round2(sum / float64(n))
	}
	return s
}

// CBISummary averages composite scores and counts per-methodology levels
func CBISummary(members []models.MemberResult) models.MethodologySummary {
	var s models.MethodologySummary
	var sum float64
	n := 0
	for _, m := range members {
		if m.CBI == nil {
			continue
		}
		n++
		sum += m.CBI.CompositeScore
		switch m.CBI.RiskLevel {
		case models.RiskHigh:
			s.HighRiskCount++
		case models.RiskMedium:
			s.MediumRiskCount++
		}
	}
	if n > 0 {
		s.AverageScore = round2(sum / float64(n))
	}
	return s
}

// ReconciledCounts counts members by their reconciled level
func ReconciledCounts(members []models.MemberResult) (high, medium int) {
	for _, m := range members {
		switch m.RiskLevel {
		case models.RiskHigh:
			high++
		case models.RiskMedium:
			medium++
		}
	}
	return high, medium
}

// HealthStatus is the most frequent reconciled level; ties go to the more severe level.
// An empty team, or one where no member carries a valid level, is unknown.
func HealthStatus(members []models.MemberResult) models.RiskLevel {
	if len(members) == 0 {
		return models.RiskUnknown
	}
	counts := map[models.RiskLevel]int{}
	for _, m := range members {
		counts[m.RiskLevel]++
	}
	best := models.RiskUnknown
	bestCount := -1
	for _, level := range []models.RiskLevel{models.RiskHigh, models.RiskMedium, models.RiskLow} {
		if counts[level] > bestCount {
			best, bestCount = level, counts[level]
		}
	}
	if bestCount == 0 {
		return models.RiskUnknown
	}
	return best
}

// EnhancedCount counts members whose enhancement came from the LLM path
func EnhancedCount(members []models.MemberResult) int {
	n := 0
	for _, m := range members {
		if m.AIEnhancement != nil && m.AIEnhancement.Provenance == models.ProvenanceLLM {
			n++
		}
	}
	return n
}

// ElevatedFactors lists a member's elevated legacy factors and CBI components, sorted
func (a *Aggregator) ElevatedFactors(m models.MemberResult) []string {
	seen := map[string]bool{}
	if m.Legacy.Scored() {
		for _, f := range m.Legacy.Factors {
			if f.Normalized > a.elevatedFactor {
				seen[f.Name] = true
			}
		}
	}
	if m.CBI != nil {
		for _, group := range [][]models.CBIComponent{m.CBI.PersonalBreakdown, m.CBI.WorkBreakdown} {
			for _, c := range group {
				if c.Value > a.elevatedCBI {
					seen[c.Name] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (a *Aggregator) commonPatterns(members []models.MemberResult) []models.CommonPattern {
	patterns := []models.CommonPattern{}
	if len(members) == 0 {
		return patterns
	}

	pairs := map[[2]string][]string{}
	for _, m := range members {
		elevated := a.ElevatedFactors(m)
		for i := 0; i < len(elevated); i++ {
			for j := i + 1; j < len(elevated); j++ {
				key := [2]string{elevated[i], elevated[j]}
				pairs[key] = append(pairs[key], m.MemberID)
			}
		}
	}

	minMembers := a.team.PatternMinMembers
	if minMembers < 1 {
		minMembers = 1
	}
	for key, ids := range pairs {
		coverage := float64(len(ids)) / float64(len(members))
		if len(ids) < minMembers || coverage < a.team.PatternMinFraction {
			continue
		}
		sort.Strings(ids)
		patterns = append(patterns, models.CommonPattern{
			Factors:   []string{key[0], key[1]},
			MemberIDs: ids,
			Coverage:  round2(coverage),
			Description: fmt.Sprintf("%d of %d members show elevated %s and %s",
				len(ids), len(members), humanize(key[0]), humanize(key[1])),
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i].MemberIDs) != len(patterns[j].MemberIDs) {
			return len(patterns[i].MemberIDs) > len(patterns[j].MemberIDs)
		}
		return strings.Join(patterns[i].Factors, ",") < strings.Join(patterns[j].Factors, ",")
	})
	if a.team.MaxPatterns > 0 && len(patterns) > a.team.MaxPatterns {
		patterns = patterns[:a.team.MaxPatterns]
	}
	return patterns
}

func recommendations(t *models.TeamResult) []string {
	recs := []string{}
	if t.HighRiskCount > 0 {
		recs = append(recs, fmt.Sprintf("%d %s at high risk: schedule one-to-ones and rebalance load this week",
			t.HighRiskCount, plural(t.HighRiskCount)))
	}
	if t.MediumRiskCount > 0 {
		recs = append(recs, fmt.Sprintf("%d %s at medium risk: review workload in the next planning cycle",
			t.MediumRiskCount, plural(t.MediumRiskCount)))
	}
	for _, p := range t.CommonPatterns {
		recs = append(recs, fmt.Sprintf("Address the shared %s and %s pattern (%.0f%% of the team)",
			humanize(p.Factors[0]), humanize(p.Factors[1]), p.Coverage*100))
	}
	if len(recs) == 0 && t.MemberCount > 0 {
		recs = append(recs, "Team is within healthy ranges; keep monitoring at the usual cadence")
	}
	return recs
}

func plural(n int) string {
	if n == 1 {
		return "member"
	}
	return "members"
}

func humanize(factor string) string {
	return strings.ReplaceAll(factor, "_", " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
