package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// RunSummary is the listing view of a persisted run
type RunSummary struct {
	RunID         string           `db:"run_id" json:"run_id"`
	TeamName      string           `db:"team_name" json:"team_name"`
	Actor         string           `db:"actor" json:"actor,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	Status        models.RunStatus `db:"status" json:"status"`
	MemberCount   int              `db:"member_count" json:"member_count"`
	HealthStatus  models.RiskLevel `db:"health_status" json:"health_status"`
	HighRiskCount int              `db:"high_risk_count" json:"high_risk_count"`
	LegacyAverage float64          `db:"legacy_average" json:"legacy_average"`
	CBIAverage    float64          `db:"cbi_average" json:"cbi_average"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	TeamName string
	MemberID string
	Limit    int
}

// DefaultListLimit caps ListRuns when no limit is given
const DefaultListLimit = 50

// Store persists analysis runs. Runs are immutable: a second save of the same run id
// fails with ErrConflict and nothing is ever updated in place.
type Store interface {
	SaveTeamResult(ctx context.Context, result *models.TeamResult) error
	GetTeamResult(ctx context.Context, runID string) (*models.TeamResult, error)
	// GetTeamResultJSON returns the payload exactly as persisted
	GetTeamResultJSON(ctx context.Context, runID string) ([]byte, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error)
	Close() error
}

// New opens the backend named in cfg
func New(cfg config.StorageConfig, logger *logrus.Logger) (Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(cfg.LocalPath, logger)
	case "postgres":
		return NewPostgresStore(cfg.PostgresDSN, logger)
	case "bolt":
		return NewBoltStore(cfg.LocalPath, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func summaryOf(r *models.TeamResult) RunSummary {
	return RunSummary{
		RunID:         r.RunID,
		TeamName:      r.TeamName,
		Actor:         r.Actor,
		CreatedAt:     r.CreatedAt.UTC(),
		Status:        r.Status,
		MemberCount:   r.MemberCount,
		HealthStatus:  r.HealthStatus,
		HighRiskCount: r.HighRiskCount,
		LegacyAverage: r.Legacy.AverageScore,
		CBIAverage:    r.CBI.AverageScore,
	}
}

func memberIDs(r *models.TeamResult) []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.MemberID)
	}
	return ids
}

func encodeResult(r *models.TeamResult) ([]byte, error) {
	if r == nil || r.RunID == "" {
		return nil, fmt.Errorf("team result has no run id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode team result: %w", err)
	}
	return payload, nil
}

func decodeResult(payload []byte) (*models.TeamResult, error) {
	var r models.TeamResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode team result: %w", err)
	}
	return &r, nil
}

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
