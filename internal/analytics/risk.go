package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/jwrfree/lemon-beta/internal/model"
	"golang.org/x/text/language"
)

// RiskLevel is the three-tier spending risk ordinal.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskCritical RiskLevel = "Critical"
)

// UnboundedSurvivalDays stands in for "never runs out" when nothing is being spent.
const UnboundedSurvivalDays = math.MaxInt32

// SpendingRisk is the composite risk record the insight composer reads.
type SpendingRisk struct {
	Level        RiskLevel
	Velocity     float64 // current burn rate over baseline; 1.0 means unchanged
	SurvivalDays int
	BurnRate     float64
	Balance      float64
}

const (
	burnWindowDays     = 7
	baselineWindowDays = 30
)

// EstimateSpendingRisk derives a SpendingRisk from recent expenses and the
// available balance. The burn rate averages the last 7 days; the baseline
// averages the 30 days before that.
func EstimateSpendingRisk(transactions []*model.Transaction, balance float64, now time.Time) SpendingRisk {
	burnStart := now.AddDate(0, 0, -burnWindowDays)
	baselineStart := burnStart.AddDate(0, 0, -baselineWindowDays)

	var recent, baseline float64
	for _, tx := range transactions {
		if tx == nil || !tx.IsExpense() || tx.Date.IsZero() || tx.Date.After(now) {
			continue
		}
		switch {
		case tx.Date.After(burnStart):
			recent += tx.Amount
		case tx.Date.After(baselineStart):
			baseline += tx.Amount
		}
	}

	burnRate := recent / burnWindowDays
	baselineRate := baseline / baselineWindowDays

	velocity := 1.0
	if baselineRate > 0 {
		velocity = burnRate / baselineRate
	}

	survival := UnboundedSurvivalDays
	switch {
	case balance <= 0:
		survival = 0
	case burnRate > 0:
		survival = int(math.Min(math.Floor(balance/burnRate), UnboundedSurvivalDays))
	}

	level := RiskLow
	switch {
	case survival <= 7 || velocity >= 1.5:
		level = RiskCritical
	case survival <= 30 || velocity > 1.1:
		level = RiskModerate
	}

	return SpendingRisk{
		Level:        level,
		Velocity:     math.Round(velocity*100) / 100,
		SurvivalDays: survival,
		BurnRate:     burnRate,
		Balance:      balance,
	}
}

var (
	supportedInsightLanguages = []language.Tag{language.English, language.Indonesian}
	insightLanguages          = language.NewMatcher(supportedInsightLanguages)
)

// MatchInsightLanguage picks the supported insight language closest to an
// Accept-Language style preference list. English is the fallback.
func MatchInsightLanguage(preferences ...string) language.Tag {
	_, idx := language.MatchStrings(insightLanguages, preferences...)
	return supportedInsightLanguages[idx]
}

type insightTemplates struct {
	urgent, critical, runway, momentum, uptick, healthy, stable string
}

var insightText = map[language.Tag]insightTemplates{
	language.English: {
		urgent:   "Urgent: at your current pace your balance runs out in %d days. Pause every non-essential purchase now.",
		critical: "Warning: you are spending %.1fx faster than usual. Your balance lasts only about %d more days.",
		runway:   "Warning: at your current pace your balance lasts only about %d more days. Hold off on non-essential spending.",
		momentum: "Spending is up %d%% compared with your usual pace. Watch for impulse purchases before the momentum builds.",
		uptick:   "There is a slight uptick in your spending. Keep watching it over the next few days.",
		healthy:  "Great job! Your spending is under control and your balance covers more than a month.",
		stable:   "Your spending is stable. Keep it up.",
	},
	language.Indonesian: {
		urgent:   "Darurat: dengan pola belanja sekarang, saldomu habis dalam %d hari. Tahan semua pengeluaran yang tidak penting.",
		critical: "Waspada: kamu belanja %.1fx lebih cepat dari biasanya. Saldomu hanya cukup untuk sekitar %d hari lagi.",
		runway:   "Waspada: dengan pola belanja sekarang, saldomu hanya cukup untuk sekitar %d hari lagi. Tunda pengeluaran yang tidak penting.",
		momentum: "Pengeluaranmu naik %d%% dari pola biasanya. Hati-hati dengan belanja impulsif sebelum kebiasaan ini berlanjut.",
		uptick:   "Ada sedikit kenaikan pengeluaran. Terus pantau beberapa hari ke depan.",
		healthy:  "Mantap! Pengeluaranmu terkendali dan saldomu cukup untuk lebih dari sebulan.",
		stable:   "Pengeluaranmu stabil. Pertahankan.",
	},
}

// GenerateSpendingInsight renders the English insight for risk.
func GenerateSpendingInsight(risk SpendingRisk) string {
	return ComposeSpendingInsight(risk, language.English)
}

// ComposeSpendingInsight evaluates the insight rules top to bottom and
// renders the first match in lang. Unsupported languages fall back to
// English.
func ComposeSpendingInsight(risk SpendingRisk, lang language.Tag) string {
	t, ok := insightText[lang]
	if !ok {
		t = insightText[language.English]
	}

	increase := int(math.Round((risk.Velocity - 1) * 100))
	// the critical text prints velocity to one decimal
	accelerating := math.Round(risk.Velocity*10)/10 > 1

	switch {
	case risk.Level == RiskCritical && risk.SurvivalDays <= 3:
		return fmt.Sprintf(t.urgent, risk.SurvivalDays)
	case risk.Level == RiskCritical && accelerating:
		return fmt.Sprintf(t.critical, risk.Velocity, risk.SurvivalDays)
	case risk.Level == RiskCritical:
		// short runway at a normal or slower pace
		return fmt.Sprintf(t.runway, risk.SurvivalDays)
	case risk.Level == RiskModerate && increase > 0:
		return fmt.Sprintf(t.momentum, increase)
	case risk.Level == RiskModerate:
		return t.uptick
	case risk.SurvivalDays > 30:
		return t.healthy
	default:
		return t.stable
	}
}
