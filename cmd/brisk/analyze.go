package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohankatakam/burnrisk/internal/ai"
	"github.com/rohankatakam/burnrisk/internal/analysis"
	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/ingestion"
	"github.com/rohankatakam/burnrisk/internal/llm"
	"github.com/rohankatakam/burnrisk/internal/logging"
	"github.com/rohankatakam/burnrisk/internal/output"
	"github.com/rohankatakam/burnrisk/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newLLMClient is swapped in tests
var newLLMClient = llm.NewClient

var (
	xlsxPath   string
	noSave     bool
	windowDays int
	noAI       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <team-file>",
	Short: "Score a team from a JSON or YAML activity file",
	Long: `Normalize each member's incident, version-control and chat activity, score it
with both methodologies, optionally enhance it with AI narratives, and aggregate the
team. The run is saved so it can be verified later with 'brisk verify'.

Examples:
  brisk analyze team.yaml
  brisk analyze team.json --format json --no-ai
  brisk analyze team.yaml --xlsx report.xlsx --window-days 14`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the run as an Excel workbook")
	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
	analyzeCmd.Flags().IntVar(&windowDays, "window-days", 0, "analysis window in days (overrides the input file)")
	analyzeCmd.Flags().BoolVar(&noAI, "no-ai", false, "skip AI narratives even when a credential is available")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := ingestion.LoadTeamInput(args[0])
	if err != nil {
		return err
	}
	end, err := input.End()
	if err != nil {
		return err
	}
	days := input.WindowDays
	if windowDays > 0 {
		days = windowDays
	}

	formatter, err := newFormatter(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	creds := config.NewCredentialManager(cfg)
	var enhancer analysis.Enhancer
	if !noAI {
		enh, cleanup, err := buildEnhancer(ctx, cfg, creds, actor)
		if err != nil {
			return err
		}
		defer cleanup()
		if enh != nil {
			enhancer = enh
		}
	}

	analyzer, err := analysis.NewAnalyzer(cfg, creds, enhancer, logging.Component("analysis"))
	if err != nil {
		return err
	}

	result, err := analyzer.Run(ctx, analysis.Request{
		TeamName:   input.Team,
		Actor:      actor,
		Members:    input.Members,
		WindowDays: days,
		WindowEnd:  end,
	})
	if err != nil {
		return err
	}

	if !noSave {
		if err := saveRun(result.RunID, func(store storage.Store) error {
			// the signal context may already be done; persisting completed work still matters
			return store.SaveTeamResult(context.WithoutCancel(ctx), result)
		}); err != nil {
			return err
		}
	}

	if xlsxPath != "" {
		if err := output.ExportXLSX(result, xlsxPath); err != nil {
			return err
		}
		logger.WithField("path", xlsxPath).Info("Exported workbook")
	}

	return formatter.FormatTeam(result, cmd.OutOrStdout())
}

// buildEnhancer wires the LLM client, limiter and enhancer for actor. A missing
// credential or a disabled provider yields a nil enhancer, not an error. A provider
// client that cannot be built yields the template-only enhancer.
func buildEnhancer(ctx context.Context, cfg *config.Config, creds *config.CredentialManager, actor string) (*ai.Enhancer, func(), error) {
	noop := func() {}

	key, err := creds.ResolveLLMKey(actor)
	if err != nil {
		logger.WithError(err).Debug("AI narratives disabled")
		return nil, noop, nil
	}

	client, err := newLLMClient(ctx, cfg.AI, key)
	if err != nil {
		logger.WithError(err).WithField("provider", cfg.AI.Provider).
			Warn("LLM provider unavailable, using templated narratives")
		enhancer, ferr := ai.NewFallbackEnhancer(err, logging.Component("ai"))
		if ferr != nil {
			return nil, noop, ferr
		}
		return enhancer, noop, nil
	}
	if !client.IsEnabled() {
		return nil, noop, nil
	}

	var quota *llm.QuotaLimiter
	if cfg.AI.RedisAddr != "" {
		quota, err = llm.NewQuotaLimiter(cfg.AI.RedisAddr, cfg.AI.RequestsPerDay)
		if err != nil {
			logger.WithError(err).Warn("Shared LLM quota unavailable, using local rate limit only")
			quota = nil
		}
	}
	limiter := llm.NewLimiter(cfg.AI.RequestsPerSecond, cfg.AI.Burst, quota)

	enhancer, err := ai.NewEnhancer(client, limiter, cfg.AI, logging.Component("ai"))
	if err != nil {
		limiter.Close()
		return nil, noop, err
	}

	logger.WithFields(logrus.Fields{
		"provider": client.GetProvider(),
		"model":    client.Model(),
		"actor":    actor,
	}).Debug("AI narratives enabled")
	return enhancer, func() { limiter.Close() }, nil
}

func saveRun(runID string, save func(storage.Store) error) error {
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := save(store); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"storage": cfg.Storage.Type,
	}).Debug("Run saved")
	return nil
}

func newFormatter(w io.Writer) (output.Formatter, error) {
	level := output.GetDefaultVerbosity()
	if verbosity != "" {
		var err error
		if level, err = output.ParseVerbosity(verbosity); err != nil {
			return nil, err
		}
	}
	return output.NewFormatter(format, level, w)
}
