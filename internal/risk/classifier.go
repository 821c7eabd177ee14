package risk

import (
	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/rohankatakam/burnrisk/internal/models"
)

var defaultScoring = config.DefaultScoring()

// classify converts a score to a level; a score equal to a threshold takes the higher level
func classify(score, medium, high float64) models.RiskLevel {
	switch {
	case score >= high:
		return models.RiskHigh
	case score >= medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// ClassifyLegacy maps a 0-10 legacy score with the default thresholds (4, 7)
func ClassifyLegacy(score float64) models.RiskLevel {
	return classify(score, defaultScoring.Legacy.MediumThreshold, defaultScoring.Legacy.HighThreshold)
}

// ClassifyCBI maps a 0-100 composite with the default thresholds (50, 75)
func ClassifyCBI(composite float64) models.RiskLevel {
	return classify(composite, defaultScoring.CBI.RiskMediumThreshold, defaultScoring.CBI.RiskHighThreshold)
}

// Reconcile returns the more severe of two levels
func Reconcile(a, b models.RiskLevel) models.RiskLevel {
	return models.MoreSevere(a, b)
}

// Classify reconciles the two methodologies' levels. Either side may be nil; an
// unavailable legacy result does not take part.
func Classify(legacy *models.LegacyScoreResult, cbi *models.CBIResult) models.RiskLevel {
	level := models.RiskLow
	if legacy.Scored() {
		level = Reconcile(level, legacy.RiskLevel)
	}
	if cbi != nil {
		level = Reconcile(level, cbi.RiskLevel)
	}
	return level
}
