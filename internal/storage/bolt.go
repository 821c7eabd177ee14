package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var (
	runsBucket    = []byte("runs")
	summaryBucket = []byte("run_summaries")
)

// BoltStore keeps runs in a single embedded bbolt file. Suited to single-user CLI use.
type BoltStore struct {
	db     *bolt.DB
	logger *logrus.Logger
}

type boltSummary struct {
	RunSummary
	MemberIDs []string `json:"member_ids"`
}

// NewBoltStore opens (or creates) a bbolt database
func NewBoltStore(path string, logger *logrus.Logger) (*BoltStore, error) {
	if path == "" {
		return nil, errors.ConfigError("storage: bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.FileSystemError(err, "create database directory")
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.DatabaseError(err, "open bolt database")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{runsBucket, summaryBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.DatabaseError(err, "init buckets")
	}
	return &BoltStore{db: db, logger: logger}, nil
}

// Close closes the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveTeamResult inserts a run; an existing key yields ErrConflict
func (s *BoltStore) SaveTeamResult(ctx context.Context, result *models.TeamResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeResult(result)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(boltSummary{RunSummary: summaryOf(result), MemberIDs: memberIDs(result)})
	if err != nil {
		return errors.DatabaseError(err, "encode run summary")
	}

	key := []byte(result.RunID)
	err = s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(runsBucket)
		if runs.Get(key) != nil {
			return fmt.Errorf("run %s: %w", result.RunID, ErrConflict)
		}
		if err := runs.Put(key, payload); err != nil {
			return err
		}
		return tx.Bucket(summaryBucket).Put(key, summary)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"team":   result.TeamName,
	}).Debug("saved team run")
	return nil
}

// GetTeamResultJSON returns the stored payload
func (s *BoltStore) GetTeamResultJSON(ctx context.Context, runID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(runID))
		if data == nil {
			return ErrNotFound
		}
		// bolt memory is only valid inside the transaction
		payload = append([]byte(nil), data...)
		return nil
	})
	return payload, err
}

// GetTeamResult decodes a stored run
func (s *BoltStore) GetTeamResult(ctx context.Context, runID string) (*models.TeamResult, error) {
	payload, err := s.GetTeamResultJSON(ctx, runID)
	if err != nil {
		return nil, err
	}
	return decodeResult(payload)
}

// ListRuns scans the summary bucket; newest first
func (s *BoltStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runs := []RunSummary{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(summaryBucket).ForEach(func(k, v []byte) error {
			var sum boltSummary
			if err := json.Unmarshal(v, &sum); err != nil {
				return errors.DatabaseError(err, "decode run summary").WithContext("run_id", string(k))
			}
			if filter.TeamName != "" && sum.TeamName != filter.TeamName {
				return nil
			}
			if filter.MemberID != "" && !contains(sum.MemberIDs, filter.MemberID) {
				return nil
			}
			runs = append(runs, sum.RunSummary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
	if limit := limitOf(filter); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
