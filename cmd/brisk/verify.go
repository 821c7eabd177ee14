package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rohankatakam/burnrisk/internal/audit"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/storage"
	"github.com/rohankatakam/burnrisk/internal/validation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verifyFile      string
	verifyTolerance float64
	auditLogPath    string
)

var verifyCmd = &cobra.Command{
	Use:   "verify [run-id]",
	Short: "Recompute a saved run's aggregates and report mismatches",
	Long: `Re-derive every team-level figure of a persisted run from its member results
and compare it with what was stored. Exits non-zero when any check fails.

Examples:
  brisk verify 6f1c2e1a-...
  brisk verify --file exported-run.json --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "verify a TeamResult JSON file instead of a stored run")
	verifyCmd.Flags().Float64Var(&verifyTolerance, "tolerance", validation.DefaultTolerance, "allowed difference for averages")
	verifyCmd.Flags().StringVar(&auditLogPath, "audit-log", audit.DefaultLogPath, "JSONL file that records verification outcomes (empty to disable)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && verifyFile == "" {
		return errors.ValidationError("either a run id or --file is required")
	}

	data, err := loadRunJSON(cmd, args)
	if err != nil {
		return err
	}

	validator := validation.NewConsistencyValidator(verifyTolerance)
	report, err := validator.VerifyJSON(data)
	if err != nil {
		return err
	}
	validator.LogResults(report)

	if auditLogPath != "" {
		event := audit.NewVerificationEvent(report, teamNameOf(data), actor)
		if err := audit.LogVerification(auditLogPath, event); err != nil {
			logger.WithError(err).Warn("Failed to write verification audit log")
		}
	}

	formatter, err := newFormatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := formatter.FormatReport(report, cmd.OutOrStdout()); err != nil {
		return err
	}

	if !report.OverallConsistency {
		return fmt.Errorf("run %s failed %d of %d consistency checks",
			report.RunID, len(report.Mismatches()), len(report.Checks))
	}
	return nil
}

func loadRunJSON(cmd *cobra.Command, args []string) ([]byte, error) {
	if verifyFile != "" {
		data, err := os.ReadFile(verifyFile)
		if err != nil {
			return nil, errors.FileSystemError(err, "failed to read run file").WithContext("path", verifyFile)
		}
		return data, nil
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	data, err := store.GetTeamResultJSON(cmd.Context(), args[0])
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", args[0], err)
	}
	logger.WithFields(logrus.Fields{"run_id": args[0], "bytes": len(data)}).Debug("Loaded stored run")
	return data, nil
}

// teamNameOf is best effort; VerifyJSON has already rejected malformed payloads
func teamNameOf(data []byte) string {
	var head struct {
		TeamName string `json:"team_name"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ""
	}
	return head.TeamName
}
