package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohankatakam/burnrisk/internal/models"
)

const maxRecommendations = 5

// llmReply is the JSON object the system prompt asks for
type llmReply struct {
	Narrative       string     `json:"narrative"`
	RiskLevel       string     `json:"risk_level"`
	Confidence      *float64   `json:"confidence"`
	Recommendations []replyRec `json:"recommendations"`
}

type replyRec struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// parseReply validates a raw completion. Any violation is reported as an error so the
// caller can fall back.
func parseReply(raw string) (*models.AIEnhancement, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("empty response")
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	narrative := strings.TrimSpace(reply.Narrative)
	if narrative == "" {
		return nil, fmt.Errorf("response has no narrative")
	}
	level, ok := models.ParseRiskLevel(reply.RiskLevel)
	if !ok {
		return nil, fmt.Errorf("invalid risk_level %q", reply.RiskLevel)
	}
	if reply.Confidence == nil {
		return nil, fmt.Errorf("response has no confidence")
	}
	if err := ValidateConfidence(*reply.Confidence); err != nil {
		return nil, err
	}

	recs := make([]models.Recommendation, 0, len(reply.Recommendations))
	for _, r := range reply.Recommendations {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		recs = append(recs, models.Recommendation{
			Title:       title,
			Description: strings.TrimSpace(r.Description),
			Priority:    normalizePriority(r.Priority),
		})
		if len(recs) == maxRecommendations {
			break
		}
	}

	return &models.AIEnhancement{
		Narrative:       narrative,
		RiskLevel:       level,
		Confidence:      *reply.Confidence,
		Recommendations: recs,
		Provenance:      models.ProvenanceLLM,
	}, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite JSON mode
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizePriority(p string) string {
	level, ok := models.ParseRiskLevel(p)
	if !ok {
		return string(models.RiskMedium)
	}
	return string(level)
}
