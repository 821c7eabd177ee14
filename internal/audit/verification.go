package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rohankatakam/burnrisk/internal/models"
)

// DefaultLogPath is where verification outcomes are appended
const DefaultLogPath = ".burnrisk/verify_log.jsonl"

// VerificationEvent records one consistency check of a persisted run
type VerificationEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	TeamName   string    `json:"team_name,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Consistent bool      `json:"consistent"`
	Mismatches []string  `json:"mismatches,omitempty"` // failed check names
}

// NewVerificationEvent summarizes a report
func NewVerificationEvent(report *models.ConsistencyReport, teamName, actor string) VerificationEvent {
	event := VerificationEvent{
		Timestamp:  report.VerifiedAt,
		RunID:      report.RunID,
		TeamName:   teamName,
		Actor:      actor,
		Consistent: report.OverallConsistency,
	}
	for _, c := range report.Mismatches() {
		event.Mismatches = append(event.Mismatches, c.Name)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

// LogVerification appends an event to a JSONL file, creating it if needed.
// An empty path uses DefaultLogPath.
func LogVerification(path string, event VerificationEvent) error {
	if path == "" {
		path = DefaultLogPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(event)
}

// ReadVerifications loads every event in a log, oldest first
func ReadVerifications(path string) ([]VerificationEvent, error) {
	if path == "" {
		path = DefaultLogPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []VerificationEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e VerificationEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}
