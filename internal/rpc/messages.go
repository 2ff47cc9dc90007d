package rpc

import (
	"math"
	"time"

	"github.com/jwrfree/lemon-beta/internal/analytics"
	"github.com/jwrfree/lemon-beta/internal/model"
)

// Dates on requests are strings accepted by model.ParseDate. An empty
// reference time ("today", "now") means the server clock.

type CreateTransactionRequest struct {
	UserID      string                `json:"userId"`
	WalletID    string                `json:"walletId"`
	Type        model.TransactionType `json:"type"`
	Amount      float64               `json:"amount"`
	Category    string                `json:"category"`
	SubCategory string                `json:"subCategory,omitempty"`
	Description string                `json:"description"`
	Date        string                `json:"date"`
	Tags        []string              `json:"tags,omitempty"`
}

type CreateTransactionResponse struct {
	Transaction *model.Transaction `json:"transaction"`
}

type ListTransactionsRequest struct {
	UserID    string `json:"userId"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	PageSize  int32  `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions  []*model.Transaction `json:"transactions"`
	NextPageToken string               `json:"nextPageToken,omitempty"`
}

type DeleteTransactionRequest struct {
	TransactionID string `json:"transactionId"`
}

type DeleteTransactionResponse struct{}

type CreateBudgetRequest struct {
	UserID       string   `json:"userId"`
	Name         string   `json:"name"`
	TargetAmount float64  `json:"targetAmount"`
	Categories   []string `json:"categories"`
	SubCategory  string   `json:"subCategory,omitempty"`
}

type CreateBudgetResponse struct {
	Budget *model.Budget `json:"budget"`
}

type ListBudgetsRequest struct {
	UserID    string `json:"userId"`
	PageSize  int32  `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type ListBudgetsResponse struct {
	Budgets       []*model.Budget `json:"budgets"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

type DeleteBudgetRequest struct {
	BudgetID string `json:"budgetId"`
}

type DeleteBudgetResponse struct{}

type CreateWalletRequest struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

type CreateWalletResponse struct {
	Wallet *model.Wallet `json:"wallet"`
}

type ListWalletsRequest struct {
	UserID string `json:"userId"`
}

type ListWalletsResponse struct {
	Wallets []*model.Wallet `json:"wallets"`
}

type GetBudgetHealthRequest struct {
	UserID   string `json:"userId"`
	BudgetID string `json:"budgetId"`
	Today    string `json:"today,omitempty"`
}

// BudgetStats is analytics.BudgetStats on the wire. Non-finite values
// (zero target, no spending) are null.
type BudgetStats struct {
	Spent            float64  `json:"spent"`
	Remaining        float64  `json:"remaining"`
	Progress         *float64 `json:"progress"`
	DaysElapsed      int      `json:"daysElapsed"`
	DaysLeft         int      `json:"daysLeft"`
	DailyRate        float64  `json:"dailyRate"`
	DaysToZero       *float64 `json:"daysToZero"`
	SafeDailyLimit   float64  `json:"safeDailyLimit"`
	ProjectionStatus string   `json:"projectionStatus"`
	HealthStatus     string   `json:"healthStatus"`
}

type BudgetHealth struct {
	Budget *model.Budget `json:"budget"`
	Stats  BudgetStats   `json:"stats"`
}

type GetBudgetHealthResponse struct {
	BudgetHealth
}

type GetBudgetOverviewRequest struct {
	UserID string `json:"userId"`
	Today  string `json:"today,omitempty"`
}

type BudgetOverview struct {
	TotalBudget    float64 `json:"totalBudget"`
	TotalSpent     float64 `json:"totalSpent"`
	TotalRemaining float64 `json:"totalRemaining"`
	PercentUsed    float64 `json:"percentUsed"`
}

type GetBudgetOverviewResponse struct {
	Overview BudgetOverview `json:"overview"`
	Budgets  []BudgetHealth `json:"budgets"`
}

type AuditSubscriptionsRequest struct {
	UserID string `json:"userId"`
	Now    string `json:"now,omitempty"`
}

type SubscriptionAnomaly struct {
	MerchantName   string    `json:"merchantName"`
	PreviousAmount float64   `json:"previousAmount"`
	CurrentAmount  float64   `json:"currentAmount"`
	Difference     float64   `json:"difference"`
	Type           string    `json:"type"`
	LastDate       time.Time `json:"lastDate"`
}

type SubscriptionSummary struct {
	MerchantName string     `json:"merchantName"`
	LatestAmount float64    `json:"latestAmount"`
	LastDate     time.Time  `json:"lastDate"`
	Occurrences  int        `json:"occurrences"`
	Active       bool       `json:"active"`
	Frequency    string     `json:"frequency,omitempty"`
	ExpectedNext *time.Time `json:"expectedNext,omitempty"`
}

type AuditSubscriptionsResponse struct {
	TotalMonthlyBurn    float64               `json:"totalMonthlyBurn"`
	ActiveSubscriptions int                   `json:"activeSubscriptions"`
	Anomalies           []SubscriptionAnomaly `json:"anomalies"`
	Subscriptions       []SubscriptionSummary `json:"subscriptions"`
}

type RankSuggestionsRequest struct {
	UserID string `json:"userId"`
	Now    string `json:"now,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
}

type Suggestion struct {
	Text          string    `json:"text"`
	Reason        string    `json:"reason"`
	Confidence    string    `json:"confidence"`
	Score         float64   `json:"score"`
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
}

type RankSuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// SpendingRisk is analytics.SpendingRisk on the wire.
type SpendingRisk struct {
	Level        string  `json:"level"`
	Velocity     float64 `json:"velocity"`
	SurvivalDays int     `json:"survivalDays"`
	BurnRate     float64 `json:"burnRate,omitempty"`
	Balance      float64 `json:"balance,omitempty"`
}

type GetSpendingInsightRequest struct {
	UserID string `json:"userId"`
	// Risk, when set, is used as is instead of estimating from stored data.
	Risk     *SpendingRisk `json:"risk,omitempty"`
	Language string        `json:"language,omitempty"`
	Now      string        `json:"now,omitempty"`
}

type GetSpendingInsightResponse struct {
	Risk     SpendingRisk `json:"risk"`
	Insight  string       `json:"insight"`
	Language string       `json:"language"`
}

type ListNotificationsRequest struct {
	UserID     string `json:"userId"`
	UnreadOnly bool   `json:"unreadOnly,omitempty"`
	PageSize   int32  `json:"pageSize,omitempty"`
	PageToken  string `json:"pageToken,omitempty"`
}

type ListNotificationsResponse struct {
	Notifications []*model.Notification `json:"notifications"`
	NextPageToken string                 `json:"nextPageToken,omitempty"`
}

// finite returns nil for NaN and ±Inf so the value encodes as null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FromBudgetStats converts analyzer output to its wire form.
func FromBudgetStats(s analytics.BudgetStats) BudgetStats {
	return BudgetStats{
		Spent:            s.Spent,
		Remaining:        s.Remaining,
		Progress:         finite(s.Progress),
		DaysElapsed:      s.DaysElapsed,
		DaysLeft:         s.DaysLeft,
		DailyRate:        s.DailyRate,
		DaysToZero:       finite(s.DaysToZero),
		SafeDailyLimit:   s.SafeDailyLimit,
		ProjectionStatus: string(s.ProjectionStatus),
		HealthStatus:     string(s.HealthStatus),
	}
}

func FromBudgetOverview(o analytics.BudgetOverview) BudgetOverview {
	return BudgetOverview{
		TotalBudget:    o.TotalBudget,
		TotalSpent:     o.TotalSpent,
		TotalRemaining: o.TotalRemaining,
		PercentUsed:    finiteOrZero(o.PercentUsed),
	}
}

func FromSubscriptionAudit(a analytics.SubscriptionAudit) *AuditSubscriptionsResponse {
	resp := &AuditSubscriptionsResponse{
		TotalMonthlyBurn:    a.TotalMonthlyBurn,
		ActiveSubscriptions: a.ActiveSubscriptions,
		Anomalies:           make([]SubscriptionAnomaly, 0, len(a.Anomalies)),
		Subscriptions:       make([]SubscriptionSummary, 0, len(a.Subscriptions)),
	}
	for _, an := range a.Anomalies {
		resp.Anomalies = append(resp.Anomalies, SubscriptionAnomaly{
			MerchantName:   an.MerchantName,
			PreviousAmount: an.PreviousAmount,
			CurrentAmount:  an.CurrentAmount,
			Difference:     an.Difference,
			Type:           string(an.Type),
			LastDate:       an.LastDate,
		})
	}
	for _, s := range a.Subscriptions {
		summary := SubscriptionSummary{
			MerchantName: s.MerchantName,
			LatestAmount: s.LatestAmount,
			LastDate:     s.LastDate,
			Occurrences:  s.Occurrences,
			Active:       s.Active,
			Frequency:    string(s.Frequency),
		}
		if !s.ExpectedNext.IsZero() {
			next := s.ExpectedNext
			summary.ExpectedNext = &next
		}
		resp.Subscriptions = append(resp.Subscriptions, summary)
	}
	return resp
}

func FromSuggestions(ranked []analytics.RankedSuggestion) []Suggestion {
	out := make([]Suggestion, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, Suggestion{
			Text:          s.Text,
			Reason:        s.Reason,
			Confidence:    string(s.Confidence),
			Score:         s.Score,
			TransactionID: s.TransactionID,
			Type:          string(s.Type),
			Description:   s.Description,
			Category:      s.Category,
			Amount:        s.Amount,
			Date:          s.Date,
		})
	}
	return out
}

func FromSpendingRisk(r analytics.SpendingRisk) SpendingRisk {
	return SpendingRisk{
		Level:        string(r.Level),
		Velocity:     finiteOrZero(r.Velocity),
		SurvivalDays: r.SurvivalDays,
		BurnRate:     r.BurnRate,
		Balance:      r.Balance,
	}
}

// ToSpendingRisk converts a client-supplied risk record.
func (r *SpendingRisk) ToSpendingRisk() analytics.SpendingRisk {
	return analytics.SpendingRisk{
		Level:        analytics.RiskLevel(r.Level),
		Velocity:     r.Velocity,
		SurvivalDays: r.SurvivalDays,
		BurnRate:     r.BurnRate,
		Balance:      r.Balance,
	}
}
