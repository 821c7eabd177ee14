package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/burnrisk/internal/config"
	apperrors "github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleResult(runID, teamName string, created time.Time, members ...string) *models.TeamResult {
	r := &models.TeamResult{
		RunID:        runID,
		TeamName:     teamName,
		CreatedAt:    created,
		WindowDays:   30,
		Status:       models.RunStatusCompleted,
		MemberCount:  len(members),
		HealthStatus: models.RiskMedium,
		Legacy:       models.MethodologySummary{AverageScore: 4.25, HighRiskCount: 1},
		CBI:          models.MethodologySummary{AverageScore: 51.5},
	}
	for _, id := range members {
		r.Members = append(r.Members, models.MemberResult{
			MemberID:  id,
			Legacy:    &models.LegacyScoreResult{Available: true, Score: 4.25, RiskLevel: models.RiskMedium},
			RiskLevel: models.RiskMedium,
		})
	}
	return r
}

// exerciseStore is the behavior every backend must share
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

	first := sampleResult("run-1", "payments", base, "a", "b")
	require.NoError(t, store.SaveTeamResult(ctx, first))
	require.NoError(t, store.SaveTeamResult(ctx, sampleResult("run-2", "payments", base.Add(time.Hour), "b", "c")))
	require.NoError(t, store.SaveTeamResult(ctx, sampleResult("run-3", "search", base.Add(2*time.Hour), "d")))

	t.Run("insert only", func(t *testing.T) {
		changed := sampleResult("run-1", "payments", base, "a")
		err := store.SaveTeamResult(ctx, changed)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConflict))

		got, err := store.GetTeamResult(ctx, "run-1")
		require.NoError(t, err)
		assert.Len(t, got.Members, 2)
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := store.GetTeamResult(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "payments", got.TeamName)
		assert.Equal(t, 4.25, got.Legacy.AverageScore)
		assert.True(t, got.CreatedAt.Equal(base))
		require.NotNil(t, got.Members[0].Legacy)
		assert.Equal(t, models.RiskMedium, got.Members[0].RiskLevel)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetTeamResult(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetTeamResultJSON(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing run id", func(t *testing.T) {
		assert.Error(t, store.SaveTeamResult(ctx, sampleResult("", "x", base)))
	})

	t.Run("list", func(t *testing.T) {
		runs, err := store.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, "run-3", runs[0].RunID)
		assert.Equal(t, "run-1", runs[2].RunID)
		assert.Equal(t, 2, runs[2].MemberCount)
		assert.Equal(t, models.RiskMedium, runs[2].HealthStatus)

		runs, err = store.ListRuns(ctx, RunFilter{TeamName: "payments"})
		require.NoError(t, err)
		assert.Len(t, runs, 2)

		runs, err = store.ListRuns(ctx, RunFilter{MemberID: "b"})
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-2", runs[0].RunID)

		runs, err = store.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"), quietLogger())
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestBoltStore(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "runs.bolt"), quietLogger())
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

// Postgres tests run only when BURNRISK_TEST_POSTGRES_DSN is set
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BURNRISK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BURNRISK_TEST_POSTGRES_DSN not set, skipping Postgres store test")
	}
	store, err := NewPostgresStore(dsn, quietLogger())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(`DELETE FROM team_runs WHERE run_id LIKE 'run-%'`)
	require.NoError(t, err)

	exerciseStore(t, store)
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(config.StorageConfig{Type: "sqlite", LocalPath: filepath.Join(dir, "a.db")}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	s, err = New(config.StorageConfig{Type: "bolt", LocalPath: filepath.Join(dir, "a.bolt")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, s)
	s.Close()

	_, err = New(config.StorageConfig{Type: "mongo"}, nil)
	assert.Error(t, err)
}

func TestOpenErrorsAreTyped(t *testing.T) {
	logger := quietLogger()

	_, err := NewSQLiteStore("", logger)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err = NewBoltStore(filepath.Join(blocker, "runs.bolt"), logger)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFileSystem))

	// a directory where the database file should be cannot be opened
	dir := t.TempDir()
	_, err = NewBoltStore(dir, logger)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDatabase), err.Error())
}
