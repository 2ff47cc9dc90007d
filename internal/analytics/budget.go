package analytics

import (
	"math"
	"time"

	"github.com/jwrfree/lemon-beta/internal/model"
)

// HealthStatus summarises where a budget is heading this month.
type HealthStatus string

const (
	HealthOver     HealthStatus = "over"
	HealthCritical HealthStatus = "critical"
	HealthWarning  HealthStatus = "warning"
	HealthStable   HealthStatus = "stable"
)

const (
	criticalDaysToZero = 3
	warningDaysToZero  = 7
)

// BudgetStats is the derived state of a single budget.
type BudgetStats struct {
	Spent            float64
	Remaining        float64
	Progress         float64
	DaysElapsed      int
	DaysLeft         int
	DailyRate        float64
	DaysToZero       float64 // +Inf when nothing has been spent
	SafeDailyLimit   float64
	ProjectionStatus HealthStatus
	HealthStatus     HealthStatus
}

// BudgetOverview aggregates every budget of a user.
type BudgetOverview struct {
	TotalBudget    float64
	TotalSpent     float64
	TotalRemaining float64
	PercentUsed    float64
}

// ComputeBudgetStats models spend, burn rate and projected exhaustion for
// budget as of today. transactions should cover the current month; the
// analyzer does not filter by date.
//
// A zero TargetAmount is not rejected and yields non-finite Progress. Callers
// must treat non-finite Progress, DailyRate and DaysToZero as undefined.
func ComputeBudgetStats(budget *model.Budget, transactions []*model.Transaction, today time.Time) BudgetStats {
	var spent float64
	for _, tx := range transactions {
		if budget.Matches(tx) {
			spent += tx.Amount
		}
	}

	remaining := budget.TargetAmount - spent
	daysElapsed := today.Day()
	if daysElapsed < 1 {
		daysElapsed = 1
	}
	daysLeft := daysInMonth(today) - today.Day()

	dailyRate := spent / float64(daysElapsed)
	daysToZero := math.Inf(1)
	if dailyRate > 0 {
		daysToZero = math.Floor(remaining / dailyRate)
	}

	projection := HealthStable
	if remaining > 0 {
		switch {
		case daysToZero <= criticalDaysToZero:
			projection = HealthCritical
		case daysToZero <= warningDaysToZero:
			projection = HealthWarning
		}
	}

	health := projection
	if remaining < 0 {
		health = HealthOver
	}

	var safeDailyLimit float64
	if remaining > 0 && daysLeft > 0 {
		safeDailyLimit = remaining / float64(daysLeft)
	}

	return BudgetStats{
		Spent:            spent,
		Remaining:        remaining,
		Progress:         spent / budget.TargetAmount * 100,
		DaysElapsed:      daysElapsed,
		DaysLeft:         daysLeft,
		DailyRate:        dailyRate,
		DaysToZero:       daysToZero,
		SafeDailyLimit:   safeDailyLimit,
		ProjectionStatus: projection,
		HealthStatus:     health,
	}
}

// ComputeGlobalBudgetOverview sums every budget target and every expense that
// matches at least one budget. A transaction matching two budgets is counted
// once.
func ComputeGlobalBudgetOverview(budgets []*model.Budget, transactions []*model.Transaction) BudgetOverview {
	var total float64
	for _, b := range budgets {
		total += b.TargetAmount
	}

	var spent float64
	for _, tx := range transactions {
		for _, b := range budgets {
			if b.Matches(tx) {
				spent += tx.Amount
				break
			}
		}
	}

	var percent float64
	if total > 0 {
		percent = spent / total * 100
	}

	return BudgetOverview{
		TotalBudget:    total,
		TotalSpent:     spent,
		TotalRemaining: total - spent,
		PercentUsed:    percent,
	}
}
