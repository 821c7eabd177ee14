package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "verify_log.jsonl")

	ok := &models.ConsistencyReport{
		RunID:              "run-1",
		VerifiedAt:         time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		OverallConsistency: true,
		Checks:             []models.ConsistencyCheck{{Name: "member_count", Match: true}},
	}
	bad := &models.ConsistencyReport{
		RunID: "run-2",
		Checks: []models.ConsistencyCheck{
			{Name: "member_count", Match: true},
			{Name: "average_score", Match: false},
		},
	}

	require.NoError(t, LogVerification(path, NewVerificationEvent(ok, "payments", "lead")))
	require.NoError(t, LogVerification(path, NewVerificationEvent(bad, "payments", "")))

	events, err := ReadVerifications(path)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "run-1", events[0].RunID)
	assert.True(t, events[0].Consistent)
	assert.Empty(t, events[0].Mismatches)
	assert.Equal(t, "lead", events[0].Actor)
	assert.True(t, events[0].Timestamp.Equal(ok.VerifiedAt))

	assert.False(t, events[1].Consistent)
	assert.Equal(t, []string{"average_score"}, events[1].Mismatches)
	assert.False(t, events[1].Timestamp.IsZero())
}

func TestLogVerification_DefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, LogVerification("", VerificationEvent{RunID: "r"}))
	_, err := os.Stat(DefaultLogPath)
	assert.NoError(t, err)

	events, err := ReadVerifications("")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReadVerifications_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"run_id\":\"a\"}\nnot json\n"), 0644))

	_, err := ReadVerifications(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
