package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	format    string
	verbosity string
	actor     string
	logger    *logrus.Logger
	cfg       *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var detailed *errors.Error
		if verbose && stderrors.As(err, &detailed) {
			fmt.Fprint(os.Stderr, detailed.DetailedString())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for bad configuration or input and 1 for everything else
func exitCode(err error) int {
	switch errors.GetType(err) {
	case errors.ErrorTypeConfig, errors.ErrorTypeValidation:
		return 2
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:   "brisk",
	Short: "BurnRisk - burnout risk scoring for engineering teams",
	Long: `BurnRisk scores each team member from incident, version-control and chat
activity with two methodologies (a 0-10 weighted score and a 0-100 burnout index),
optionally adds AI narratives, and aggregates the results into a team health report.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			// a broken scoring policy must never be replaced by defaults
			if errors.IsFatal(err) || errors.IsType(err, errors.ErrorTypeConfig) {
				return err
			}
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		return initLogging(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .burnrisk/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "o", "text", "output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", "", "text detail: quiet, standard, explain (default from environment)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "who is running the analysis; selects the stored LLM credential")

	rootCmd.SetVersionTemplate(`BurnRisk {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(configCmd)
}

// initLogging wires the slog-based component logger from config. Console output goes
// to stderr so reports on stdout stay machine-readable.
func initLogging(cfg *config.Config) error {
	level := logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = logging.DEBUG
	} else if cfg.Logging.Level == "" {
		level = logging.WARN
	}
	return logging.Initialize(logging.Config{
		Level:      level,
		OutputFile: cfg.Logging.File,
		JSONFormat: cfg.Logging.JSON,
		AddSource:  verbose,
		Console:    os.Stderr,
	})
}

func defaultActor() string {
	if v := os.Getenv("BURNRISK_ACTOR"); v != "" {
		return v
	}
	if v := os.Getenv("USER"); v != "" {
		return v
	}
	return config.DefaultActor
}
