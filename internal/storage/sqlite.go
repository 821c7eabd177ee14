package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/sirupsen/logrus"
)

// SQLiteStore implements storage using SQLite (the local default)
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite storage
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.ConfigError("storage: sqlite path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.FileSystemError(err, "create database directory")
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.DatabaseError(err, "connect to sqlite")
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init schema")
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS team_runs (
		run_id TEXT PRIMARY KEY,
		team_name TEXT NOT NULL,
		actor TEXT,
		created_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		member_count INTEGER NOT NULL,
		health_status TEXT NOT NULL,
		high_risk_count INTEGER NOT NULL,
		legacy_average REAL NOT NULL,
		cbi_average REAL NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_members (
		run_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		PRIMARY KEY (run_id, member_id),
		FOREIGN KEY (run_id) REFERENCES team_runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_team ON team_runs(team_name, created_at);
	CREATE INDEX IF NOT EXISTS idx_run_members_member ON run_members(member_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTeamResult inserts a run; an existing run id is never overwritten
func (s *SQLiteStore) SaveTeamResult(ctx context.Context, result *models.TeamResult) error {
	payload, err := encodeResult(result)
	if err != nil {
		return err
	}
	sum := summaryOf(result)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError(err, "begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO team_runs
		(run_id, team_name, actor, created_at, status, member_count,
		 health_status, high_risk_count, legacy_average, cbi_average, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sum.RunID, sum.TeamName, sum.Actor, sum.CreatedAt, sum.Status, sum.MemberCount,
		sum.HealthStatus, sum.HighRiskCount, sum.LegacyAverage, sum.CBIAverage, string(payload))
	if err != nil {
		return errors.DatabaseError(err, "save team run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", sum.RunID, ErrConflict)
	}

	for _, id := range memberIDs(result) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO run_members (run_id, member_id) VALUES (?, ?)`,
			sum.RunID, id); err != nil {
			return errors.DatabaseError(err, "save run member")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError(err, "commit team run")
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  sum.RunID,
		"team":    sum.TeamName,
		"members": sum.MemberCount,
	}).Debug("saved team run")
	return nil
}

// GetTeamResultJSON returns the stored payload
func (s *SQLiteStore) GetTeamResultJSON(ctx context.Context, runID string) ([]byte, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM team_runs WHERE run_id = ?`, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.DatabaseError(err, "get team run")
	}
	return []byte(payload), nil
}

// GetTeamResult decodes a stored run
func (s *SQLiteStore) GetTeamResult(ctx context.Context, runID string) (*models.TeamResult, error) {
	payload, err := s.GetTeamResultJSON(ctx, runID)
	if err != nil {
		return nil, err
	}
	return decodeResult(payload)
}

// ListRuns returns summaries, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	var (
		where []string
		args  []any
	)
	if filter.TeamName != "" {
		where = append(where, "r.team_name = ?")
		args = append(args, filter.TeamName)
	}
	if filter.MemberID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM run_members m WHERE m.run_id = r.run_id AND m.member_id = ?)")
		args = append(args, filter.MemberID)
	}

	query := `SELECT r.run_id, r.team_name, r.actor, r.created_at, r.status, r.member_count,
		r.health_status, r.high_risk_count, r.legacy_average, r.cbi_average
		FROM team_runs r`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.run_id LIMIT ?"
	args = append(args, limitOf(filter))

	runs := []RunSummary{}
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, errors.DatabaseError(err, "list runs")
	}
	return runs, nil
}
