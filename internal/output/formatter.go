package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/burnrisk/internal/models"
	"golang.org/x/term"
)

// Formatter renders team runs and verification reports
type Formatter interface {
	FormatTeam(result *models.TeamResult, w io.Writer) error
	FormatReport(report *models.ConsistencyReport, w io.Writer) error
}

// VerbosityLevel determines text output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // One-line summary
	VerbosityStandard                       // Team summary, members, recommendations
	VerbosityExplain                        // Adds factor breakdowns and narratives
)

// Output formats accepted by NewFormatter
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// NewFormatter creates the formatter for a format name. Text output is
// decorated only when w is an interactive terminal.
func NewFormatter(format string, level VerbosityLevel, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return &TextFormatter{Level: level, Decorated: IsTerminal(w)}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatYAML, "yml":
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// IsTerminal reports whether w is a terminal file descriptor
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ParseVerbosity maps a flag value to a level
func ParseVerbosity(s string) (VerbosityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet", "q":
		return VerbosityQuiet, nil
	case "", "standard":
		return VerbosityStandard, nil
	case "explain", "verbose":
		return VerbosityExplain, nil
	}
	return VerbosityStandard, fmt.Errorf("unknown verbosity %q", s)
}

// GetDefaultVerbosity returns appropriate default based on environment
func GetDefaultVerbosity() VerbosityLevel {
	if v := os.Getenv("BURNRISK_VERBOSITY"); v != "" {
		if level, err := ParseVerbosity(v); err == nil {
			return level
		}
	}

	// CI logs only need the summary line
	if os.Getenv("CI") == "true" {
		return VerbosityQuiet
	}

	return VerbosityStandard
}
