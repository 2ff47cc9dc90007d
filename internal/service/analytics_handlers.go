package service

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/jwrfree/lemon-beta/internal/analytics"
	"github.com/jwrfree/lemon-beta/internal/auth"
	"github.com/jwrfree/lemon-beta/internal/metrics"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/rpc"
)

// GetBudgetHealth evaluates one budget against the current month's expenses
// and raises an alert when it is over or critical.
func (s *InsightService) GetBudgetHealth(ctx context.Context, req *connect.Request[rpc.GetBudgetHealthRequest]) (*connect.Response[rpc.GetBudgetHealthResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if req.Msg.BudgetID == "" {
		return nil, invalidArgument("budgetId is required")
	}
	today, err := s.referenceTime(req.Msg.Today, "today")
	if err != nil {
		return nil, err
	}

	budget, err := s.store.GetBudget(ctx, req.Msg.BudgetID)
	if err != nil {
		return nil, storeError("get budget", err)
	}
	if err := auth.RequireOwner(claims, budget.UserID); err != nil {
		return nil, err
	}

	start, end := monthRange(today)
	txs, err := s.collectTransactions(ctx, claims.UID, &start, &end, today.Location())
	if err != nil {
		return nil, storeError("list transactions", err)
	}

	stats := analytics.ComputeBudgetStats(budget, txs, today)
	metrics.BudgetHealth.WithLabelValues(string(stats.HealthStatus)).Inc()
	s.triggers.BudgetHealthAlert(ctx, claims.UID, budget, stats)

	s.log.Debug().
		Str("budget_id", budget.ID).
		Str("health", string(stats.HealthStatus)).
		Int("expenses", countExpenses(txs)).
		Msg("budget health computed")

	return connect.NewResponse(&rpc.GetBudgetHealthResponse{
		BudgetHealth: rpc.BudgetHealth{Budget: budget, Stats: rpc.FromBudgetStats(stats)},
	}), nil
}

// GetBudgetOverview aggregates every budget of the caller for the current month.
func (s *InsightService) GetBudgetOverview(ctx context.Context, req *connect.Request[rpc.GetBudgetOverviewRequest]) (*connect.Response[rpc.GetBudgetOverviewResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	today, err := s.referenceTime(req.Msg.Today, "today")
	if err != nil {
		return nil, err
	}

	budgets, err := s.collectBudgets(ctx, claims.UID)
	if err != nil {
		return nil, storeError("list budgets", err)
	}
	start, end := monthRange(today)
	txs, err := s.collectTransactions(ctx, claims.UID, &start, &end, today.Location())
	if err != nil {
		return nil, storeError("list transactions", err)
	}

	resp := &rpc.GetBudgetOverviewResponse{
		Overview: rpc.FromBudgetOverview(analytics.ComputeGlobalBudgetOverview(budgets, txs)),
		Budgets:  make([]rpc.BudgetHealth, 0, len(budgets)),
	}
	for _, b := range budgets {
		stats := analytics.ComputeBudgetStats(b, txs, today)
		metrics.BudgetHealth.WithLabelValues(string(stats.HealthStatus)).Inc()
		resp.Budgets = append(resp.Budgets, rpc.BudgetHealth{Budget: b, Stats: rpc.FromBudgetStats(stats)})
	}
	return connect.NewResponse(resp), nil
}

// AuditSubscriptions runs the subscription audit over the caller's full
// history and notifies about new price increases.
func (s *InsightService) AuditSubscriptions(ctx context.Context, req *connect.Request[rpc.AuditSubscriptionsRequest]) (*connect.Response[rpc.AuditSubscriptionsResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	now, err := s.referenceTime(req.Msg.Now, "now")
	if err != nil {
		return nil, err
	}

	txs, err := s.collectTransactions(ctx, claims.UID, nil, nil, now.Location())
	if err != nil {
		return nil, storeError("list transactions", err)
	}

	audit := analytics.AnalyzeSubscriptions(txs, now)
	metrics.SubscriptionAnomalies.Add(float64(len(audit.Anomalies)))
	for _, anomaly := range audit.Anomalies {
		s.triggers.SubscriptionInflation(ctx, claims.UID, anomaly)
	}

	return connect.NewResponse(rpc.FromSubscriptionAudit(audit)), nil
}

// RankSuggestions ranks the caller's recent transactions as re-entry
// suggestions.
func (s *InsightService) RankSuggestions(ctx context.Context, req *connect.Request[rpc.RankSuggestionsRequest]) (*connect.Response[rpc.RankSuggestionsResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	now, err := s.referenceTime(req.Msg.Now, "now")
	if err != nil {
		return nil, err
	}

	limit := int(req.Msg.Limit)
	if limit <= 0 {
		limit = s.settings.SuggestionLimit
	}
	if s.settings.MaxSuggestionLimit > 0 && limit > s.settings.MaxSuggestionLimit {
		limit = s.settings.MaxSuggestionLimit
	}

	start := now.AddDate(0, 0, -s.settings.SuggestionHistoryDays)
	txs, err := s.collectTransactions(ctx, claims.UID, &start, nil, now.Location())
	if err != nil {
		return nil, storeError("list transactions", err)
	}

	ranked := analytics.RankPersonalizedSuggestions(txs, now, limit)
	metrics.SuggestionsReturned.Observe(float64(len(ranked)))

	return connect.NewResponse(&rpc.RankSuggestionsResponse{
		Suggestions: rpc.FromSuggestions(ranked),
	}), nil
}

// GetSpendingInsight renders the spending insight for a supplied risk record,
// or for one estimated from the caller's wallets and recent expenses.
func (s *InsightService) GetSpendingInsight(ctx context.Context, req *connect.Request[rpc.GetSpendingInsightRequest]) (*connect.Response[rpc.GetSpendingInsightResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	var risk analytics.SpendingRisk
	if req.Msg.Risk != nil {
		risk = req.Msg.Risk.ToSpendingRisk()
		switch risk.Level {
		case analytics.RiskLow, analytics.RiskModerate, analytics.RiskCritical:
		default:
			return nil, invalidArgument("risk.level must be Low, Moderate or Critical, got %q", risk.Level)
		}
	} else {
		now, err := s.referenceTime(req.Msg.Now, "now")
		if err != nil {
			return nil, err
		}
		if risk, err = s.estimateRisk(ctx, claims.UID, now); err != nil {
			return nil, err
		}
	}

	lang := analytics.MatchInsightLanguage(
		req.Msg.Language,
		req.Header().Get("Accept-Language"),
		s.settings.DefaultLanguage,
	)
	metrics.RiskLevels.WithLabelValues(string(risk.Level)).Inc()

	return connect.NewResponse(&rpc.GetSpendingInsightResponse{
		Risk:     rpc.FromSpendingRisk(risk),
		Insight:  analytics.ComposeSpendingInsight(risk, lang),
		Language: lang.String(),
	}), nil
}

func (s *InsightService) estimateRisk(ctx context.Context, userID string, now time.Time) (analytics.SpendingRisk, error) {
	wallets, err := s.store.ListWallets(ctx, userID)
	if err != nil {
		return analytics.SpendingRisk{}, storeError("list wallets", err)
	}
	var balance float64
	for _, w := range wallets {
		balance += w.Balance
	}

	start := now.AddDate(0, 0, -s.settings.RiskHistoryDays)
	txs, err := s.collectTransactions(ctx, userID, &start, &now, now.Location())
	if err != nil {
		return analytics.SpendingRisk{}, storeError("list transactions", err)
	}
	return analytics.EstimateSpendingRisk(txs, balance, now), nil
}

func countExpenses(txs []*model.Transaction) int {
	n := 0
	for _, tx := range txs {
		if tx.IsExpense() {
			n++
		}
	}
	return n
}
