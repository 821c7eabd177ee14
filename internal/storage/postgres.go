package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/sirupsen/logrus"
)

// PostgresStore implements storage using PostgreSQL
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore creates a new PostgreSQL storage
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, errors.DatabaseError(err, "connect to postgres")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{
		db:     db,
		logger: logger,
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init schema")
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS team_runs (
		run_id TEXT PRIMARY KEY,
		team_name TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		member_count INTEGER NOT NULL,
		health_status TEXT NOT NULL,
		high_risk_count INTEGER NOT NULL,
		legacy_average DOUBLE PRECISION NOT NULL,
		cbi_average DOUBLE PRECISION NOT NULL,
		member_ids TEXT[] NOT NULL DEFAULT '{}',
		payload JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_team_runs_team ON team_runs(team_name, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_team_runs_members ON team_runs USING GIN (member_ids);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type postgresRun struct {
	RunSummary
	MemberIDs pq.StringArray `db:"member_ids"`
	Payload   string         `db:"payload"`
}

// SaveTeamResult inserts a run; ON CONFLICT DO NOTHING turns a duplicate into ErrConflict
func (s *PostgresStore) SaveTeamResult(ctx context.Context, result *models.TeamResult) error {
	payload, err := encodeResult(result)
	if err != nil {
		return err
	}
	row := postgresRun{
		RunSummary: summaryOf(result),
		MemberIDs:  pq.StringArray(memberIDs(result)),
		Payload:    string(payload),
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO team_runs (run_id, team_name, actor, created_at, status, member_count,
			health_status, high_risk_count, legacy_average, cbi_average, member_ids, payload)
		VALUES (:run_id, :team_name, :actor, :created_at, :status, :member_count,
			:health_status, :high_risk_count, :legacy_average, :cbi_average, :member_ids, :payload)
		ON CONFLICT (run_id) DO NOTHING
	`, row)
	if err != nil {
		return errors.DatabaseError(err, "save team run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", row.RunID, ErrConflict)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  row.RunID,
		"team":    row.TeamName,
		"members": row.MemberCount,
	}).Debug("saved team run")
	return nil
}

// GetTeamResultJSON returns the stored payload
func (s *PostgresStore) GetTeamResultJSON(ctx context.Context, runID string) ([]byte, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload::text FROM team_runs WHERE run_id = $1`, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, errors.DatabaseError(err, "get team run")
	}
	return []byte(payload), nil
}

// GetTeamResult decodes a stored run
func (s *PostgresStore) GetTeamResult(ctx context.Context, runID string) (*models.TeamResult, error) {
	payload, err := s.GetTeamResultJSON(ctx, runID)
	if err != nil {
		return nil, err
	}
	return decodeResult(payload)
}

// ListRuns returns summaries, newest first
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	var (
		where []string
		args  []any
	)
	if filter.TeamName != "" {
		args = append(args, filter.TeamName)
		where = append(where, fmt.Sprintf("team_name = $%d", len(args)))
	}
	if filter.MemberID != "" {
		args = append(args, pq.StringArray{filter.MemberID})
		where = append(where, fmt.Sprintf("member_ids @> $%d", len(args)))
	}

	query := `SELECT run_id, team_name, actor, created_at, status, member_count,
		health_status, high_risk_count, legacy_average, cbi_average
		FROM team_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limitOf(filter))
	query += fmt.Sprintf(" ORDER BY created_at DESC, run_id LIMIT $%d", len(args))

	runs := []RunSummary{}
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, errors.DatabaseError(err, "list runs")
	}
	return runs, nil
}
