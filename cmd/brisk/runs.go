package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rohankatakam/burnrisk/internal/output"
	"github.com/rohankatakam/burnrisk/internal/storage"
	"github.com/spf13/cobra"
)

var (
	runsTeam   string
	runsMember string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved analysis runs, newest first",
	Long: `List persisted runs with their headline figures.

Examples:
  brisk runs
  brisk runs --team payments --limit 10
  brisk runs --member alice --format json`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsTeam, "team", "", "only runs for this team")
	runsCmd.Flags().StringVar(&runsMember, "member", "", "only runs that include this member id")
	runsCmd.Flags().IntVar(&runsLimit, "limit", storage.DefaultListLimit, "maximum runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), storage.RunFilter{
		TeamName: runsTeam,
		MemberID: runsMember,
		Limit:    runsLimit,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch format {
	case output.FormatJSON:
		return output.WriteJSON(w, runs)
	case output.FormatYAML, "yml":
		return output.WriteYAML(w, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tTEAM\tCREATED\tSTATUS\tMEMBERS\tHEALTH\tHIGH\tLEGACY AVG\tCBI AVG")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%.2f\t%.2f\n",
			r.RunID, r.TeamName, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status,
			r.MemberCount, r.HealthStatus, r.HighRiskCount, r.LegacyAverage, r.CBIAverage)
	}
	return tw.Flush()
}
