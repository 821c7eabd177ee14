package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rohankatakam/burnrisk/internal/ai"
	"github.com/rohankatakam/burnrisk/internal/analysis"
	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/llm"
	"github.com/rohankatakam/burnrisk/internal/metrics"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/rohankatakam/burnrisk/internal/output"
	"github.com/rohankatakam/burnrisk/internal/team"
)

// Smoke test for a live provider: scores one canned on-call-heavy member and
// prints the enhancement the model returns (or the fallback it degraded to).
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/test_llm.go <openai|gemini> [model]")
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.AI.Provider = os.Args[1]
	if len(os.Args) > 2 {
		cfg.AI.Model = os.Args[2]
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if cfg.AI.Provider == "gemini" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		log.Fatalf("no API key in the environment for %s", cfg.AI.Provider)
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, cfg.AI, apiKey)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}
	if !client.IsEnabled() {
		log.Fatalf("provider %q is not supported", cfg.AI.Provider)
	}

	enhancer, err := ai.NewEnhancer(client, nil, cfg.AI, nil)
	if err != nil {
		log.Fatal(err)
	}
	analyzer, err := analysis.NewAnalyzer(cfg, nil, nil, nil)
	if err != nil {
		log.Fatal(err)
	}

	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	member := analyzer.ScoreMember(sampleMember(end), metrics.Window{Days: 14, End: end})
	elevated := team.NewAggregator(cfg.Team, cfg.Scoring).ElevatedFactors(member)

	fmt.Printf("Testing %s (%s)...\n", client.GetProvider(), client.Model())
	fmt.Printf("Legacy %.2f %s, CBI %.2f %s, elevated: %v\n\n",
		member.Legacy.Score, member.Legacy.RiskLevel, member.CBI.CompositeScore, member.CBI.RiskLevel, elevated)

	start := time.Now()
	enh, err := enhancer.Enhance(ctx, ai.MemberRequest{
		MemberID: member.MemberID,
		Name:     member.Name,
		Metrics:  member.Metrics,
		Legacy:   member.Legacy,
		CBI:      member.CBI,
		Elevated: elevated,
	})
	if err != nil {
		log.Fatalf("Enhancement failed: %v", err)
	}

	if err := output.WriteJSON(os.Stdout, enh); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nDuration: %s\n", time.Since(start).Round(time.Millisecond))
}

func sampleMember(end time.Time) models.MemberRecords {
	rec := models.MemberRecords{
		MemberID:     "smoke-1",
		Name:         "Sam",
		Commits:      []models.CommitRecord{},
		PullRequests: []models.PullRequestRecord{},
	}
	for d := 1; d <= 12; d++ {
		night := end.AddDate(0, 0, -d).Add(-2 * time.Hour)
		rec.Incidents = append(rec.Incidents, models.IncidentRecord{
			ID:             fmt.Sprintf("inc-%d", d),
			Severity:       "sev2",
			Status:         "resolved",
			CreatedAt:      night.Format(time.RFC3339),
			AcknowledgedAt: night.Add(25 * time.Minute).Format(time.RFC3339),
		})
		rec.Commits = append(rec.Commits, models.CommitRecord{
			SHA:       fmt.Sprintf("c%d", d),
			Timestamp: night.Add(time.Hour).Format(time.RFC3339),
			Additions: 600,
			Deletions: 40,
		})
	}
	return rec
}
