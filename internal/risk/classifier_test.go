package risk

import (
	"testing"

	"github.com/rohankatakam/burnrisk/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyLegacyThresholds(t *testing.T) {
	assert.Equal(t, models.RiskLow, ClassifyLegacy(0))
	assert.Equal(t, models.RiskLow, ClassifyLegacy(3.99))
	assert.Equal(t, models.RiskMedium, ClassifyLegacy(4))
	assert.Equal(t, models.RiskMedium, ClassifyLegacy(6.99))
	assert.Equal(t, models.RiskHigh, ClassifyLegacy(7))
	assert.Equal(t, models.RiskHigh, ClassifyLegacy(10))
}

func TestClassifyCBIThresholds(t *testing.T) {
	assert.Equal(t, models.RiskLow, ClassifyCBI(49.99))
	assert.Equal(t, models.RiskMedium, ClassifyCBI(50))
	assert.Equal(t, models.RiskHigh, ClassifyCBI(75))
}

func TestReconcileAllPairs(t *testing.T) {
	levels := []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh}
	for _, a := range levels {
		for _, b := range levels {
			got := Reconcile(a, b)
			want := a
			if b.Rank() > a.Rank() {
				want = b
			}
			assert.Equal(t, want, got, "%s vs %s", a, b)
			assert.Equal(t, got, Reconcile(b, a), "reconcile is symmetric")
		}
	}
}

func TestClassifyToleratesNil(t *testing.T) {
	assert.Equal(t, models.RiskLow, Classify(nil, nil))
	assert.Equal(t, models.RiskMedium, Classify(&models.LegacyScoreResult{Available: true, RiskLevel: models.RiskMedium}, nil))
	assert.Equal(t, models.RiskHigh, Classify(nil, &models.CBIResult{RiskLevel: models.RiskHigh}))
	assert.Equal(t, models.RiskHigh, Classify(
		&models.LegacyScoreResult{Available: true, RiskLevel: models.RiskHigh},
		&models.CBIResult{RiskLevel: models.RiskLow},
	))
}

func TestClassifyIgnoresUnscoredLegacy(t *testing.T) {
	unscored := &models.LegacyScoreResult{RiskLevel: models.RiskUnknown}
	assert.Equal(t, models.RiskLow, Classify(unscored, &models.CBIResult{RiskLevel: models.RiskLow}))
	assert.Equal(t, models.RiskMedium, Classify(unscored, &models.CBIResult{RiskLevel: models.RiskMedium}))

	// a stale level on an unavailable result never raises the reconciled level
	stale := &models.LegacyScoreResult{RiskLevel: models.RiskHigh}
	assert.Equal(t, models.RiskLow, Classify(stale, &models.CBIResult{RiskLevel: models.RiskLow}))
}
