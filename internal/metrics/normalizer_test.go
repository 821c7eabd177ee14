package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(config.DefaultNormalizer())
}

func sumDist(d map[string]int) int {
	total := 0
	for _, v := range d {
		total += v
	}
	return total
}

func TestCanonicalAliases(t *testing.T) {
	tests := []struct {
		in, status, severity string
	}{
		{"Triggered", StatusOpen, SeverityUnknown},
		{"in-progress", StatusAcknowledged, SeverityUnknown},
		{"CLOSED", StatusResolved, SeverityUnknown},
		{"SEV1", StatusUnknown, SeverityCritical},
		{"p2", StatusUnknown, SeverityHigh},
		{"info", StatusUnknown, SeverityLow},
		{"", StatusUnknown, SeverityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.status, CanonicalStatus(tt.in))
			assert.Equal(t, tt.severity, CanonicalSeverity(tt.in))
		})
	}
}

func TestNormalizeDistributionsSumToCount(t *testing.T) {
	rec := models.MemberRecords{
		MemberID: "u1",
		Incidents: []models.IncidentRecord{
			{ID: "1", Severity: "sev1", Status: "resolved", CreatedAt: "2024-03-04T10:00:00Z"},
			{ID: "2", Severity: "weird", Status: "", CreatedAt: "2024-03-04T11:00:00Z"},
			{ID: "3", Severity: "", Status: "snoozed", CreatedAt: "not-a-time"},
		},
	}
	m := newTestNormalizer().Normalize(rec, Window{Days: 30})

	assert.Equal(t, 3, m.IncidentCount)
	assert.Equal(t, 3, sumDist(m.SeverityDistribution))
	assert.Equal(t, 3, sumDist(m.StatusDistribution))
	assert.Equal(t, 2, m.SeverityDistribution[SeverityUnknown])
	assert.Equal(t, 2, m.StatusDistribution[StatusUnknown])
	assert.Equal(t, 1, m.UnparsedTimestamps)
}

func TestNormalizeAbsentSources(t *testing.T) {
	m := newTestNormalizer().Normalize(models.MemberRecords{MemberID: "u1"}, Window{Days: 30})

	assert.Empty(t, m.Sources)
	assert.Nil(t, m.VCS)
	assert.Nil(t, m.Chat)
	assert.Nil(t, m.AvgResponseTimeMinutes)
	assert.Zero(t, m.AfterHoursRatio)
	assert.Zero(t, m.ActivityCount)
	assert.True(t, m.WindowEnd.IsZero())
}

func TestNormalizeEmptySourceIsPresent(t *testing.T) {
	rec := models.MemberRecords{
		MemberID:  "u1",
		Incidents: []models.IncidentRecord{},
		Messages:  []models.MessageRecord{},
	}
	m := newTestNormalizer().Normalize(rec, Window{Days: 30})
	assert.True(t, m.HasSource(models.SourceIncidents))
	assert.True(t, m.HasSource(models.SourceChat))
	assert.False(t, m.HasSource(models.SourceVCS))
	require.NotNil(t, m.Chat)
	assert.Zero(t, m.Chat.MessageCount)
	assert.Nil(t, m.Chat.SentimentScore)
}

func TestNormalizeResponseTime(t *testing.T) {
	rec := models.MemberRecords{
		MemberID: "u1",
		Incidents: []models.IncidentRecord{
			// ack preferred over resolution
			{ID: "1", Status: "resolved", CreatedAt: "2024-03-04T10:00:00Z",
				AcknowledgedAt: "2024-03-04T10:10:00Z", ResolvedAt: "2024-03-04T12:00:00Z"},
			// resolution used when no ack
			{ID: "2", Status: "closed", CreatedAt: "2024-03-04T10:00:00Z", ResolvedAt: "2024-03-04T10:30:00Z"},
			// open incidents never count
			{ID: "3", Status: "triggered", CreatedAt: "2024-03-04T10:00:00Z", AcknowledgedAt: "2024-03-04T10:01:00Z"},
			// negative duration excluded
			{ID: "4", Status: "acknowledged", CreatedAt: "2024-03-04T10:00:00Z", AcknowledgedAt: "2024-03-04T09:00:00Z"},
			// no answer timestamp
			{ID: "5", Status: "resolved", CreatedAt: "2024-03-04T10:00:00Z"},
		},
	}
	m := newTestNormalizer().Normalize(rec, Window{Days: 30})

	require.NotNil(t, m.AvgResponseTimeMinutes)
	assert.Equal(t, 2, m.ResponseSamples)
	assert.InDelta(t, 20.0, *m.AvgResponseTimeMinutes, 1e-9)
}

func TestNormalizeTimezone(t *testing.T) {
	// 2024-03-04 is a Monday. 06:00 UTC is 15:00 in Tokyo, 22:00 Sunday in Los Angeles.
	incident := models.IncidentRecord{ID: "1", Status: "resolved", CreatedAt: "2024-03-04T06:00:00Z"}

	utc := newTestNormalizer().Normalize(models.MemberRecords{
		MemberID: "u1", Incidents: []models.IncidentRecord{incident},
	}, Window{Days: 7})
	assert.Equal(t, 1.0, utc.AfterHoursRatio)
	assert.Equal(t, 0.0, utc.WeekendRatio)

	tokyo := newTestNormalizer().Normalize(models.MemberRecords{
		MemberID: "u1", Timezone: "Asia/Tokyo", Incidents: []models.IncidentRecord{incident},
	}, Window{Days: 7})
	assert.Equal(t, 0.0, tokyo.AfterHoursRatio)
	assert.Equal(t, "Asia/Tokyo", tokyo.Timezone)

	la := newTestNormalizer().Normalize(models.MemberRecords{
		MemberID: "u1", Timezone: "America/Los_Angeles", Incidents: []models.IncidentRecord{incident},
	}, Window{Days: 7})
	assert.Equal(t, 1.0, la.AfterHoursRatio)
	assert.Equal(t, 1.0, la.WeekendRatio)

	bogus := newTestNormalizer().Normalize(models.MemberRecords{
		MemberID: "u1", Timezone: "Mars/Olympus", Incidents: []models.IncidentRecord{incident},
	}, Window{Days: 7})
	assert.Equal(t, "UTC", bogus.Timezone)
}

func TestNormalizeVCSAndChat(t *testing.T) {
	pos, neg := 0.8, -3.0
	rec := models.MemberRecords{
		MemberID: "u1",
		Commits: []models.CommitRecord{
			{SHA: "a", Timestamp: "2024-03-02T23:30:00Z", Additions: 400, Deletions: 200}, // Saturday night, large
			{SHA: "b", Timestamp: "2024-03-28T10:00:00Z", Additions: 10},
		},
		PullRequests: []models.PullRequestRecord{
			{Number: 1, State: "merged", CreatedAt: "2024-03-27T09:00:00Z", FirstReviewAt: "2024-03-27T15:00:00Z",
				MergedAt: "2024-03-28T09:00:00Z"},
			{Number: 2, State: "open", CreatedAt: "2024-03-29T09:00:00Z"},
		},
		Messages: []models.MessageRecord{
			{Timestamp: "2024-03-29 23:00:00", Sentiment: &pos},
			{Timestamp: "2024-03-29T12:00:00Z", Sentiment: &neg},
			{Timestamp: "2024-03-30T12:00:00Z"},
		},
	}
	m := newTestNormalizer().Normalize(rec, Window{Days: 30})

	require.NotNil(t, m.VCS)
	assert.Equal(t, 2, m.VCS.CommitCount)
	assert.Equal(t, 2, m.VCS.PRCount)
	assert.Equal(t, 1, m.VCS.MergedPRCount)
	assert.Equal(t, 0.5, m.VCS.AfterHoursCommitRatio)
	assert.Equal(t, 0.5, m.VCS.WeekendCommitRatio)
	assert.Equal(t, 0.25, m.VCS.LargeChangeRatio)
	require.NotNil(t, m.VCS.AvgReviewHours)
	assert.InDelta(t, 6.0, *m.VCS.AvgReviewHours, 1e-9)
	// window end is the last message (2024-03-30 12:00); the final quarter starts 03-23 00:00
	assert.Equal(t, 0.75, m.VCS.EndOfWindowShare)

	require.NotNil(t, m.Chat)
	assert.Equal(t, 3, m.Chat.MessageCount)
	require.NotNil(t, m.Chat.SentimentScore)
	// -3 is clamped to -1
	assert.InDelta(t, -0.1, *m.Chat.SentimentScore, 1e-9)
	assert.InDelta(t, 1.0/3, m.Chat.MessagesAfterHoursRatio, 1e-9)
	assert.InDelta(t, 1.0/3, m.Chat.MessagesWeekendRatio, 1e-9)

	assert.Equal(t, 7, m.ActivityCount)
	assert.True(t, m.WindowEnd.Equal(time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, []models.Source{models.SourceVCS, models.SourceChat}, m.Sources)
}

func TestNormalizeMergedAt(t *testing.T) {
	rec := models.MemberRecords{
		MemberID: "u1",
		PullRequests: []models.PullRequestRecord{
			{Number: 1, State: "closed", CreatedAt: "2024-03-27T09:00:00Z", MergedAt: "2024-03-28T09:00:00Z"},
			{Number: 2, State: "closed", CreatedAt: "2024-03-27T09:00:00Z", MergedAt: "yesterday-ish"},
			{Number: 3, State: "merged", CreatedAt: "2024-03-27T09:00:00Z", MergedAt: "not a date"},
			{Number: 4, State: "open", CreatedAt: "2024-03-27T09:00:00Z", MergedAt: "  "},
		},
	}
	m := newTestNormalizer().Normalize(rec, Window{Days: 30})

	require.NotNil(t, m.VCS)
	// #1 by timestamp, #3 by state; #2 is malformed and not merged
	assert.Equal(t, 2, m.VCS.MergedPRCount)
	// blank merged_at is absent, not malformed
	assert.Equal(t, 2, m.UnparsedTimestamps)
}

func TestNormalizeActivityTrend(t *testing.T) {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	var msgs []models.MessageRecord
	// one message in the first half, three in the second
	for _, ts := range []string{"2024-03-05T10:00:00Z", "2024-03-20T10:00:00Z", "2024-03-21T10:00:00Z", "2024-03-22T10:00:00Z"} {
		msgs = append(msgs, models.MessageRecord{Timestamp: ts})
	}
	m := newTestNormalizer().Normalize(models.MemberRecords{MemberID: "u1", Messages: msgs}, Window{Days: 30, End: end})

	assert.Equal(t, 2.0, m.ActivityTrend)
	assert.Equal(t, 4, m.ActiveDays)
	assert.True(t, end.Equal(m.WindowEnd))
}

func TestNormalizeConcurrentUse(t *testing.T) {
	n := newTestNormalizer()
	rec := models.MemberRecords{
		MemberID: "u1",
		Incidents: []models.IncidentRecord{
			{ID: "1", Severity: "p1", Status: "resolved", CreatedAt: "2024-03-02T23:00:00Z", AcknowledgedAt: "2024-03-02T23:05:00Z"},
		},
	}
	want := n.Normalize(rec, Window{Days: 30})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, n.Normalize(rec, Window{Days: 30}))
		}()
	}
	wg.Wait()
}
