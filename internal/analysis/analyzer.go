package analysis

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/burnrisk/internal/ai"
	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/logging"
	"github.com/rohankatakam/burnrisk/internal/metrics"
	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/rohankatakam/burnrisk/internal/risk"
	"github.com/rohankatakam/burnrisk/internal/team"
)

// Enhancer is the narrative capability. Implementations return an error only when ctx
// is done; every other failure is expressed as a fallback enhancement.
type Enhancer interface {
	Enhance(ctx context.Context, req ai.MemberRequest) (*models.AIEnhancement, error)
	TeamInsight(ctx context.Context, req ai.TeamRequest) (*models.AIEnhancement, error)
}

// Request describes one analysis run
type Request struct {
	TeamName string
	Actor    string // who initiated the run; selects the LLM credential
	Members  []models.MemberRecords
	// WindowDays <= 0 uses the configured default; a zero WindowEnd is derived per member
	WindowDays int
	WindowEnd  time.Time
}

// Analyzer runs the scoring pipeline: normalize and score every member, optionally
// enhance each one, then aggregate. Configuration is fixed at construction.
type Analyzer struct {
	normalizer  *metrics.Normalizer
	legacy      *risk.LegacyScorer
	cbi         *risk.CBIScorer
	aggregator  *team.Aggregator
	credentials config.CredentialChecker
	enhancer    Enhancer

	windowDays    int
	workers       int
	aiConcurrency int

	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

// NewAnalyzer builds the pipeline. credentials and enhancer may be nil, which disables
// the enhancement stage.
func NewAnalyzer(cfg *config.Config, credentials config.CredentialChecker, enhancer Enhancer, logger *slog.Logger) (*Analyzer, error) {
	legacy, err := risk.NewLegacyScorer(cfg.Scoring.Legacy)
	if err != nil {
		return nil, err
	}
	cbi, err := risk.NewCBIScorer(cfg.Scoring.CBI)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Component("analysis")
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	concurrency := cfg.AI.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	windowDays := cfg.Normalizer.WindowDays
	if windowDays < 1 {
		windowDays = config.DefaultNormalizer().WindowDays
	}

	return &Analyzer{
		normalizer:    metrics.NewNormalizer(cfg.Normalizer),
		legacy:        legacy,
		cbi:           cbi,
		aggregator:    team.NewAggregator(cfg.Team, cfg.Scoring),
		credentials:   credentials,
		enhancer:      enhancer,
		windowDays:    windowDays,
		workers:       workers,
		aiConcurrency: concurrency,
		logger:        logger,
		newID:         func() string { return uuid.New().String() },
		now:           time.Now,
	}, nil
}

// ScoreMember normalizes and scores one member. Pure; no enhancement.
func (a *Analyzer) ScoreMember(records models.MemberRecords, window metrics.Window) models.MemberResult {
	m := a.normalizer.Normalize(records, window)
	legacy := a.legacy.Score(m)
	cbi := a.cbi.Score(m)
	return models.MemberResult{
		MemberID:  records.MemberID,
		Name:      records.Name,
		Metrics:   m,
		Legacy:    legacy,
		CBI:       cbi,
		RiskLevel: risk.Classify(legacy, cbi),
	}
}

// Run executes the pipeline. A cancelled ctx does not discard completed work: the
// returned result is marked partial and names the members that lack an enhancement.
// Errors are returned only for invalid requests.
func (a *Analyzer) Run(ctx context.Context, req Request) (*models.TeamResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	window := a.windowFor(req)

	runID := a.newID()
	log := a.logger.With("run_id", runID, "team", req.TeamName)
	start := a.now()
	log.Info("analysis started", "members", len(req.Members), "window_days", window.Days)

	members := a.scoreAll(req.Members, window)

	attempted := a.enhancer != nil && a.credentials != nil && a.credentials.HasLLMCredential(ctx, req.Actor)
	var missing []string
	if attempted {
		missing = a.enhanceAll(ctx, members, log)
	} else {
		log.Debug("no LLM credential for actor, skipping enhancement", "actor", req.Actor)
	}

	result := a.aggregator.Aggregate(req.TeamName, members)
	result.RunID = runID
	result.Actor = req.Actor
	result.CreatedAt = start.UTC()
	result.WindowDays = window.Days
	result.Status = models.RunStatusCompleted
	result.AIAttempted = attempted

	if attempted {
		result.MissingMembers = missing
		result.PartialAICoverage = len(missing) > 0
		if ctx.Err() == nil {
			insight, err := a.enhancer.TeamInsight(ctx, ai.TeamRequest{Team: result})
			if err != nil {
				log.Warn("team insight cancelled", "error", err)
			}
			result.TeamInsight = insight
		}
		if result.PartialAICoverage || result.TeamInsight == nil {
			result.Status = models.RunStatusPartial
		}
	}

	log.Info("analysis finished",
		"status", result.Status,
		"health", result.HealthStatus,
		"high_risk", result.HighRiskCount,
		"ai_enhanced", result.AIEnhancedCount,
		"duration_ms", a.now().Sub(start).Milliseconds())
	return result, nil
}

func (a *Analyzer) windowFor(req Request) metrics.Window {
	window := metrics.Window{Days: req.WindowDays, End: req.WindowEnd}
	if window.Days <= 0 {
		window.Days = a.windowDays
	}
	return window
}

// scoreAll fans scoring out over a bounded pool. Scoring is pure, so it is not
// interrupted by cancellation.
func (a *Analyzer) scoreAll(records []models.MemberRecords, window metrics.Window) []models.MemberResult {
	results := make([]models.MemberResult, len(records))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i := range records {
		g.Go(func() error {
			results[i] = a.ScoreMember(records[i], window)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// enhanceAll attaches enhancements in place and returns the ids left without one
func (a *Analyzer) enhanceAll(ctx context.Context, members []models.MemberResult, log *slog.Logger) []string {
	var (
		mu       sync.Mutex
		enhanced = make(map[string]*models.AIEnhancement, len(members))
	)

	var g errgroup.Group
	g.SetLimit(a.aiConcurrency)
	for i := range members {
		m := members[i]
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			enh, err := a.enhancer.Enhance(ctx, ai.MemberRequest{
				MemberID: m.MemberID,
				Name:     m.Name,
				Metrics:  m.Metrics,
				Legacy:   m.Legacy,
				CBI:      m.CBI,
				Elevated: append(a.legacy.ElevatedFactors(m.Legacy), a.cbi.ElevatedComponents(m.CBI)...),
			})
			if err != nil || enh == nil {
				return nil
			}
			mu.Lock()
			enhanced[m.MemberID] = enh
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var missing []string
	for i := range members {
		if enh, ok := enhanced[members[i].MemberID]; ok {
			members[i].AIEnhancement = enh
		} else {
			missing = append(missing, members[i].MemberID)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		log.Warn("enhancement incomplete", "missing", len(missing), "error", ctx.Err())
	}
	return missing
}

func validateRequest(req Request) error {
	seen := make(map[string]bool, len(req.Members))
	for i, m := range req.Members {
		if m.MemberID == "" {
			return errors.ValidationErrorf("member at index %d has no id", i)
		}
		if seen[m.MemberID] {
			return errors.ValidationErrorf("duplicate member id %q", m.MemberID)
		}
		seen[m.MemberID] = true
	}
	return nil
}
