package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/llm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage BurnRisk configuration",
	Long:  `Validate, show or initialize BurnRisk configuration.`,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML (API keys masked)",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var forceInit bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration, including the scoring weights and thresholds,
so it can be tuned. Defaults to .burnrisk/config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	result := cfg.Validate()

	if result.HasErrors() {
		fmt.Fprint(out, result.Error())
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
	}

	fmt.Fprintln(out, "✅ Configuration is valid")
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  ! %s\n", w)
	}

	source := config.NewCredentialManager(cfg).Source(actor)
	fmt.Fprintf(out, "LLM credential for %s: %s\n", actor, source.Recommended)

	if cfg.AI.RedisAddr != "" {
		printQuotaUsage(cmd.Context(), out)
	}
	return nil
}

// printQuotaUsage reports the shared limiter's counters; an unreachable Redis is a warning
func printQuotaUsage(ctx context.Context, out io.Writer) {
	quota, err := llm.NewQuotaLimiter(cfg.AI.RedisAddr, cfg.AI.RequestsPerDay)
	if err != nil {
		logger.WithError(err).Debug("Shared quota check failed")
		fmt.Fprintf(out, "  ! shared LLM quota at %s is unreachable; runs will use local pacing only\n", cfg.AI.RedisAddr)
		return
	}
	defer quota.Close()

	usage, err := quota.Usage(ctx)
	if err != nil {
		fmt.Fprintf(out, "  ! %v\n", err)
		return
	}
	fmt.Fprintf(out, "Shared LLM quota (%s): %d requests and %d tokens this minute, %d of %d requests today\n",
		cfg.AI.RedisAddr, usage.RequestsThisMinute, usage.TokensThisMinute, usage.RequestsToday, usage.DailyLimit)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	shown.AI.OpenAIKey = maskIfSet(shown.AI.OpenAIKey)
	shown.AI.GeminiKey = maskIfSet(shown.AI.GeminiKey)

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(shown); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(".burnrisk", "config.yaml")
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func maskIfSet(key string) string {
	if key == "" {
		return ""
	}
	return config.MaskAPIKey(key)
}
