package analytics

import (
	"testing"
	"time"

	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestComposeSpendingInsight(t *testing.T) {
	tests := []struct {
		name     string
		risk     SpendingRisk
		contains []string
	}{
		{
			name:     "critical with days left is urgent",
			risk:     SpendingRisk{Level: RiskCritical, Velocity: 2.1, SurvivalDays: 2},
			contains: []string{"Urgent", "2 days"},
		},
		{
			name:     "critical with runway reports velocity",
			risk:     SpendingRisk{Level: RiskCritical, Velocity: 1.8, SurvivalDays: 10},
			contains: []string{"1.8x", "10 more days"},
		},
		{
			name:     "critical at a slower pace reports only the runway",
			risk:     SpendingRisk{Level: RiskCritical, Velocity: 0.8, SurvivalDays: 6},
			contains: []string{"Warning", "6 more days"},
		},
		{
			name:     "critical at the usual pace reports only the runway",
			risk:     SpendingRisk{Level: RiskCritical, Velocity: 1.0, SurvivalDays: 5},
			contains: []string{"5 more days"},
		},
		{
			name:     "moderate with rising velocity reports the increase",
			risk:     SpendingRisk{Level: RiskModerate, Velocity: 1.25, SurvivalDays: 25},
			contains: []string{"up 25%"},
		},
		{
			name:     "moderate without increase is an uptick",
			risk:     SpendingRisk{Level: RiskModerate, Velocity: 1.0, SurvivalDays: 25},
			contains: []string{"slight uptick"},
		},
		{
			name:     "sub-percent increase rounds away",
			risk:     SpendingRisk{Level: RiskModerate, Velocity: 1.004, SurvivalDays: 25},
			contains: []string{"slight uptick"},
		},
		{
			name:     "long runway is healthy",
			risk:     SpendingRisk{Level: RiskLow, Velocity: 0.9, SurvivalDays: 45},
			contains: []string{"Great job"},
		},
		{
			name:     "otherwise stable",
			risk:     SpendingRisk{Level: RiskLow, Velocity: 1.0, SurvivalDays: 30},
			contains: []string{"stable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSpendingInsight(tt.risk)
			assert.NotEmpty(t, got)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestComposeSpendingInsight_NoAccelerationClaimWithoutIt(t *testing.T) {
	for _, velocity := range []float64{0, 0.5, 0.8, 1.0} {
		risk := SpendingRisk{Level: RiskCritical, Velocity: velocity, SurvivalDays: 7}
		assert.NotContains(t, GenerateSpendingInsight(risk), "faster", "velocity=%v", velocity)
		assert.NotContains(t, ComposeSpendingInsight(risk, language.Indonesian), "lebih cepat", "velocity=%v", velocity)
		assert.Contains(t, ComposeSpendingInsight(risk, language.Indonesian), "Waspada")
	}
}

func TestComposeSpendingInsight_Languages(t *testing.T) {
	risk := SpendingRisk{Level: RiskCritical, Velocity: 3, SurvivalDays: 2}

	id := ComposeSpendingInsight(risk, language.Indonesian)
	assert.Contains(t, id, "Darurat")
	assert.Contains(t, id, "2 hari")

	fallback := ComposeSpendingInsight(risk, language.French)
	assert.Equal(t, GenerateSpendingInsight(risk), fallback)
}

func TestMatchInsightLanguage(t *testing.T) {
	assert.Equal(t, language.Indonesian, MatchInsightLanguage("id-ID,id;q=0.9,en;q=0.8"))
	assert.Equal(t, language.English, MatchInsightLanguage("en-US"))
	assert.Equal(t, language.English, MatchInsightLanguage("fr-FR"))
	assert.Equal(t, language.English, MatchInsightLanguage())
}

func TestEstimateSpendingRisk(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

	daily := func(amount float64, fromDaysAgo, toDaysAgo int) []*model.Transaction {
		var txs []*model.Transaction
		for d := fromDaysAgo; d >= toDaysAgo; d-- {
			txs = append(txs, expense("Food", amount, now.AddDate(0, 0, -d).Add(-2*time.Hour)))
		}
		return txs
	}

	t.Run("accelerating spend is critical", func(t *testing.T) {
		txs := append(daily(5_000, 36, 7), daily(10_000, 6, 0)...)
		risk := EstimateSpendingRisk(txs, 1_000_000, now)

		assert.InDelta(t, 10_000, risk.BurnRate, 1e-9)
		assert.Equal(t, 2.0, risk.Velocity)
		assert.Equal(t, 100, risk.SurvivalDays)
		assert.Equal(t, RiskCritical, risk.Level)
	})

	t.Run("short runway without history is critical", func(t *testing.T) {
		risk := EstimateSpendingRisk(daily(10_000, 6, 0), 50_000, now)
		assert.Equal(t, 1.0, risk.Velocity)
		assert.Equal(t, 5, risk.SurvivalDays)
		assert.Equal(t, RiskCritical, risk.Level)
	})

	t.Run("steady spend with a month of runway is moderate", func(t *testing.T) {
		txs := append(daily(10_000, 36, 7), daily(10_000, 6, 0)...)
		risk := EstimateSpendingRisk(txs, 250_000, now)
		assert.Equal(t, 1.0, risk.Velocity)
		assert.Equal(t, 25, risk.SurvivalDays)
		assert.Equal(t, RiskModerate, risk.Level)
	})

	t.Run("no spending is low risk", func(t *testing.T) {
		risk := EstimateSpendingRisk(nil, 100, now)
		assert.Equal(t, UnboundedSurvivalDays, risk.SurvivalDays)
		assert.Equal(t, RiskLow, risk.Level)
	})

	t.Run("empty balance is critical", func(t *testing.T) {
		risk := EstimateSpendingRisk(nil, 0, now)
		assert.Equal(t, 0, risk.SurvivalDays)
		assert.Equal(t, RiskCritical, risk.Level)
	})

	t.Run("income and future entries are ignored", func(t *testing.T) {
		txs := []*model.Transaction{
			{Type: model.TransactionTypeIncome, Amount: 5_000_000, Category: "Salary", Date: now.Add(-time.Hour)},
			expense("Food", 70_000, now.Add(24*time.Hour)),
		}
		risk := EstimateSpendingRisk(txs, 100, now)
		assert.Equal(t, 0.0, risk.BurnRate)
	})
}
