package ingestion

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/metrics"
	"github.com/rohankatakam/burnrisk/internal/models"
	"gopkg.in/yaml.v3"
)

// TeamInput is the on-disk shape of an analysis request. Each member's feeds follow the
// collector convention: an omitted feed was not collected, an empty list means no activity.
type TeamInput struct {
	Team       string                 `json:"team" yaml:"team"`
	WindowDays int                    `json:"window_days,omitempty" yaml:"window_days,omitempty"`
	WindowEnd  string                 `json:"window_end,omitempty" yaml:"window_end,omitempty"`
	Members    []models.MemberRecords `json:"members" yaml:"members"`
}

// End parses WindowEnd; the zero time means "derive from the data"
func (in *TeamInput) End() (time.Time, error) {
	if strings.TrimSpace(in.WindowEnd) == "" {
		return time.Time{}, nil
	}
	t, ok := metrics.ParseTimestamp(in.WindowEnd)
	if !ok {
		return time.Time{}, errors.ValidationErrorf("window_end %q is not a valid timestamp", in.WindowEnd)
	}
	return t, nil
}

// LoadTeamInput reads a JSON or YAML team file. The format follows the extension;
// unknown extensions are sniffed.
func LoadTeamInput(path string) (*TeamInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemError(err, "failed to read team input").WithContext("path", path)
	}
	in, err := ParseTeamInput(data, formatOf(path, data))
	if err != nil {
		return nil, err
	}
	if in.Team == "" {
		in.Team = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return in, nil
}

// ParseTeamInput decodes and validates a team document. format is "json" or "yaml".
func ParseTeamInput(data []byte, format string) (*TeamInput, error) {
	var in TeamInput
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &in)
	case "yaml":
		err = yaml.Unmarshal(data, &in)
	default:
		return nil, errors.ValidationErrorf("unsupported input format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.SeverityHigh, "failed to decode team input")
	}
	if err := Validate(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Validate checks member ids and the window
func Validate(in *TeamInput) error {
	if in.WindowDays < 0 {
		return errors.ValidationErrorf("window_days must not be negative, got %d", in.WindowDays)
	}
	if _, err := in.End(); err != nil {
		return err
	}
	seen := make(map[string]int, len(in.Members))
	for i, m := range in.Members {
		id := strings.TrimSpace(m.MemberID)
		if id == "" {
			return errors.ValidationErrorf("member at index %d has no member_id", i)
		}
		if prev, dup := seen[id]; dup {
			return errors.ValidationErrorf("member_id %q appears at index %d and %d", id, prev, i)
		}
		seen[id] = i
		in.Members[i].MemberID = id
	}
	return nil
}

func formatOf(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json"
	}
	return "yaml"
}
