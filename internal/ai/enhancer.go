package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rohankatakam/burnrisk/internal/config"
	apperrors "github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/rohankatakam/burnrisk/internal/llm"
	"github.com/rohankatakam/burnrisk/internal/logging"
	"github.com/rohankatakam/burnrisk/internal/models"
)

// Enhancer turns scored members into narratives. Every call is stateless; a failure of
// the LLM path yields a templated enhancement, never an error. The only error returned
// is the caller's own context error.
type Enhancer struct {
	completer   llm.Completer
	limiter     *llm.Limiter
	prompts     *PromptGenerator
	confidence  *ConfidenceCalculator
	timeout     time.Duration
	teamTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	// unavailable, when set, is the fallback reason for every call; no provider is contacted
	unavailable string
}

// NewEnhancer wires a completer and limiter. limiter may be nil.
func NewEnhancer(completer llm.Completer, limiter *llm.Limiter, cfg config.AIConfig, logger *slog.Logger) (*Enhancer, error) {
	if completer == nil {
		return nil, apperrors.InternalErrorf("enhancer requires a completer")
	}
	prompts, err := NewPromptGenerator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Component("ai")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	teamTimeout := cfg.TeamTimeout
	if teamTimeout <= 0 {
		teamTimeout = timeout
	}
	return &Enhancer{
		completer:   completer,
		limiter:     limiter,
		prompts:     prompts,
		confidence:  NewConfidenceCalculator(),
		timeout:     timeout,
		teamTimeout: teamTimeout,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// NewFallbackEnhancer returns an enhancer that never contacts a provider. It serves
// runs where a credential exists but the provider client could not be built: every
// member and the team still get the templated enhancement, flagged with cause.
func NewFallbackEnhancer(cause error, logger *slog.Logger) (*Enhancer, error) {
	prompts, err := NewPromptGenerator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Component("ai")
	}
	logger.Warn("llm provider unavailable, narratives will use templates",
		"reason", ReasonUnavailable, "error", cause)
	return &Enhancer{
		prompts:     prompts,
		confidence:  NewConfidenceCalculator(),
		logger:      logger,
		now:         time.Now,
		unavailable: ReasonUnavailable,
	}, nil
}

// Enhance produces an enhancement for one member. It returns (nil, ctx.Err()) only when
// ctx itself is cancelled; every other failure becomes a fallback.
func (e *Enhancer) Enhance(ctx context.Context, req MemberRequest) (*models.AIEnhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.unavailable != "" {
		return e.prompts.MemberFallback(req, e.unavailable), nil
	}
	log := e.logger.With("member_id", req.MemberID)

	prompt, err := e.prompts.GenerateMemberPrompt(req)
	if err != nil {
		log.Warn("failed to render member prompt, using fallback", "error", err)
		return e.prompts.MemberFallback(req, ReasonPromptError), nil
	}

	enh, reason, err := e.complete(ctx, e.timeout, prompt, log)
	if err != nil {
		return nil, err
	}
	if enh == nil {
		return e.prompts.MemberFallback(req, reason), nil
	}

	sources := 0
	if req.Metrics != nil {
		sources = len(req.Metrics.Sources)
	}
	enh.Confidence = e.confidence.Calibrate(enh.Confidence, sources)
	return enh, nil
}

// TeamInsight applies the same contract to an aggregated team result
func (e *Enhancer) TeamInsight(ctx context.Context, req TeamRequest) (*models.AIEnhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Team == nil {
		return nil, apperrors.ValidationError("team result is required")
	}
	if e.unavailable != "" {
		return e.prompts.TeamFallback(req.Team, e.unavailable), nil
	}
	log := e.logger.With("team", req.Team.TeamName)

	prompt, err := e.prompts.GenerateTeamPrompt(req)
	if err != nil {
		log.Warn("failed to render team prompt, using fallback", "error", err)
		return e.prompts.TeamFallback(req.Team, ReasonPromptError), nil
	}

	enh, reason, err := e.complete(ctx, e.teamTimeout, prompt, log)
	if err != nil {
		return nil, err
	}
	if enh == nil {
		return e.prompts.TeamFallback(req.Team, reason), nil
	}
	return enh, nil
}

// complete runs one bounded LLM call. It returns either an enhancement, a fallback
// reason, or the parent context's error.
func (e *Enhancer) complete(ctx context.Context, timeout time.Duration, prompt string, log *slog.Logger) (*models.AIEnhancement, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := e.now()
	if err := e.limiter.Wait(callCtx, llm.EstimateTokens(SystemPrompt, prompt)); err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		reason := ReasonRateLimited
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			reason = ReasonTimeout
		}
		log.Warn("llm call not admitted, using fallback", "reason", reason, "error", err)
		return nil, reason, nil
	}

	raw, err := e.completer.CompleteJSON(callCtx, SystemPrompt, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		reason := ReasonTransportError
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			reason = ReasonTimeout
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeExternal) {
			err = apperrors.ExternalErrorf(err, "%s completion", e.completer.Model())
		}
		log.Warn("llm call failed, using fallback", "reason", reason, "error", err,
			"duration_ms", e.now().Sub(start).Milliseconds())
		return nil, reason, nil
	}

	enh, err := parseReply(raw)
	if err != nil {
		log.Warn("llm reply rejected, using fallback", "reason", ReasonMalformedResponse, "error", err)
		return nil, ReasonMalformedResponse, nil
	}
	enh.Model = e.completer.Model()
	enh.GeneratedAt = e.now().UTC()
	log.Debug("llm enhancement generated", "model", enh.Model,
		"duration_ms", e.now().Sub(start).Milliseconds())
	return enh, "", nil
}
