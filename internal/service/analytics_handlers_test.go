package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/rpc"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func expense(id, category, description string, amount float64, date time.Time) *model.Transaction {
	return &model.Transaction{
		ID:          id,
		UserID:      "user-123",
		Type:        model.TransactionTypeExpense,
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        date,
	}
}

var foodBudget = &model.Budget{
	ID:           "budget-food",
	UserID:       "user-123",
	Name:         "Food",
	TargetAmount: 1_000_000,
	Categories:   []string{"Food"},
}

func TestGetBudgetHealth(t *testing.T) {
	monthStart := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)

	t.Run("over budget raises one alert", func(t *testing.T) {
		svc, mockStore := newTestService(t, fixedNow)
		mockStore.EXPECT().GetBudget(gomock.Any(), "budget-food").Return(foodBudget, nil)
		mockStore.EXPECT().
			ListTransactions(gomock.Any(), "user-123", &monthStart, &monthEnd, int32(collectPageSize), "").
			Return([]*model.Transaction{
				expense("t1", "Food", "Groceries", 700_000, time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC)),
			}, "page2", nil)
		mockStore.EXPECT().
			ListTransactions(gomock.Any(), "user-123", &monthStart, &monthEnd, int32(collectPageSize), "page2").
			Return([]*model.Transaction{
				expense("t2", "Food", "Restaurant", 500_000, time.Date(2025, 9, 8, 19, 0, 0, 0, time.UTC)),
			}, "", nil)
		mockStore.EXPECT().
			HasNotification(gomock.Any(), "user-123", model.NotificationTypeBudgetAlert, "budget-food", "status", "over", 720).
			Return(false, nil)

		var created *model.Notification
		mockStore.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, n *model.Notification) error {
				created = n
				return nil
			})

		resp, err := svc.GetBudgetHealth(testContext("user-123"),
			connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: "budget-food"}))
		require.NoError(t, err)

		stats := resp.Msg.Stats
		assert.Equal(t, 1_200_000.0, stats.Spent)
		assert.Equal(t, -200_000.0, stats.Remaining)
		assert.Equal(t, "over", stats.HealthStatus)
		require.NotNil(t, stats.Progress)
		assert.InDelta(t, 120, *stats.Progress, 1e-9)

		require.NotNil(t, created)
		assert.Equal(t, "Budget Alert: Food", created.Title)
		assert.Equal(t, "You've exceeded your Food budget by Rp200.000.", created.Message)
		assert.Equal(t, fixedNow, created.CreatedAt)
		assert.Equal(t, "over", created.Metadata["status"])
	})

	t.Run("recent alert is not repeated", func(t *testing.T) {
		svc, mockStore := newTestService(t, fixedNow)
		mockStore.EXPECT().GetBudget(gomock.Any(), "budget-food").Return(foodBudget, nil)
		mockStore.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]*model.Transaction{expense("t1", "Food", "Groceries", 1_500_000, fixedNow)}, "", nil)
		mockStore.EXPECT().HasNotification(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(true, nil)

		_, err := svc.GetBudgetHealth(testContext("user-123"),
			connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: "budget-food"}))
		require.NoError(t, err)
	})

	t.Run("stable budget with no spending reports null runway", func(t *testing.T) {
		svc, mockStore := newTestService(t, fixedNow)
		mockStore.EXPECT().GetBudget(gomock.Any(), "budget-food").Return(foodBudget, nil)
		mockStore.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, "", nil)

		resp, err := svc.GetBudgetHealth(testContext("user-123"),
			connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: "budget-food", Today: "2025-09-10"}))
		require.NoError(t, err)
		assert.Nil(t, resp.Msg.Stats.DaysToZero)
		assert.Equal(t, "stable", resp.Msg.Stats.HealthStatus)
	})

	t.Run("someone else's budget", func(t *testing.T) {
		svc, mockStore := newTestService(t, fixedNow)
		mockStore.EXPECT().GetBudget(gomock.Any(), "budget-food").Return(foodBudget, nil)

		_, err := svc.GetBudgetHealth(testContext("intruder"),
			connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: "budget-food"}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("bad reference date", func(t *testing.T) {
		svc, _ := newTestService(t, fixedNow)
		_, err := svc.GetBudgetHealth(testContext("user-123"),
			connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: "budget-food", Today: "yesterday"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("missing budget", func(t *testing.T) {
		svc, mockStore := newTestService(t, fixedNow)
		mockStore.EXPECT().GetBudget(gomock.Any(), "nope").Return(nil, fmt.Errorf("budget nope: %w", store.ErrNotFound))

		_, err := svc.GetBudgetHealth(testContext("user-123"),
			connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: "nope"}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestGetBudgetOverview(t *testing.T) {
	svc, mockStore := newTestService(t, fixedNow)
	transport := &model.Budget{ID: "b-2", UserID: "user-123", TargetAmount: 0, Categories: []string{"Transport"}}

	mockStore.EXPECT().ListBudgets(gomock.Any(), "user-123", int32(collectPageSize), "").
		Return([]*model.Budget{foodBudget, transport}, "", nil)
	mockStore.EXPECT().ListTransactions(gomock.Any(), "user-123", gomock.Any(), gomock.Any(), gomock.Any(), "").
		Return([]*model.Transaction{
			expense("t1", "Food", "Lunch", 100_000, fixedNow),
			expense("t2", "Transport", "Ojek", 20_000, fixedNow),
		}, "", nil)

	resp, err := svc.GetBudgetOverview(testContext("user-123"), connect.NewRequest(&rpc.GetBudgetOverviewRequest{}))
	require.NoError(t, err)

	assert.Equal(t, 1_000_000.0, resp.Msg.Overview.TotalBudget)
	assert.Equal(t, 120_000.0, resp.Msg.Overview.TotalSpent)
	require.Len(t, resp.Msg.Budgets, 2)
	assert.Nil(t, resp.Msg.Budgets[1].Stats.Progress, "zero target has undefined progress")
}

func TestAuditSubscriptions(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	history := []*model.Transaction{
		expense("n1", "Entertainment", "Netflix Premium", 45_000, now.AddDate(0, 0, -35)),
		expense("n2", "Entertainment", "Netflix Premium", 54_000, now.AddDate(0, 0, -5)),
		expense("g1", "Food", "Groceries", 300_000, now.AddDate(0, 0, -2)),
	}
	for _, tx := range history[:2] {
		tx.Tags = []string{model.SubscriptionTag}
	}

	t.Run("new anomaly is notified", func(t *testing.T) {
		svc, mockStore := newTestService(t, now)
		mockStore.EXPECT().ListTransactions(gomock.Any(), "user-123", nil, nil, int32(collectPageSize), "").
			Return(history, "", nil)
		mockStore.EXPECT().
			HasNotification(gomock.Any(), "user-123", model.NotificationTypeSubscriptionChange,
				"netflix premium", "lastDate", "2025-02-24", 720).
			Return(false, nil)

		var created *model.Notification
		mockStore.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, n *model.Notification) error {
				created = n
				return nil
			})

		resp, err := svc.AuditSubscriptions(testContext("user-123"), connect.NewRequest(&rpc.AuditSubscriptionsRequest{}))
		require.NoError(t, err)

		assert.Equal(t, 1, resp.Msg.ActiveSubscriptions)
		assert.Equal(t, 54_000.0, resp.Msg.TotalMonthlyBurn)
		require.Len(t, resp.Msg.Anomalies, 1)
		assert.Equal(t, 9_000.0, resp.Msg.Anomalies[0].Difference)

		require.NotNil(t, created)
		assert.Equal(t, "Price increase: Netflix Premium", created.Title)
		assert.Equal(t, "Netflix Premium went from Rp45.000 to Rp54.000 (+Rp9.000).", created.Message)
	})

	t.Run("notification failures do not fail the audit", func(t *testing.T) {
		svc, mockStore := newTestService(t, now)
		mockStore.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(history, "", nil)
		mockStore.EXPECT().HasNotification(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(false, errors.New("firestore unavailable"))

		resp, err := svc.AuditSubscriptions(testContext("user-123"), connect.NewRequest(&rpc.AuditSubscriptionsRequest{}))
		require.NoError(t, err)
		assert.Len(t, resp.Msg.Anomalies, 1)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, mockStore := newTestService(t, now)
		mockStore.EXPECT().ListTransactions(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, "", errors.New("boom"))

		_, err := svc.AuditSubscriptions(testContext("user-123"), connect.NewRequest(&rpc.AuditSubscriptionsRequest{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list transactions")
	})
}

func TestRankSuggestions(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	var history []*model.Transaction
	for i := 0; i < 25; i++ {
		history = append(history, expense(fmt.Sprintf("t%02d", i), "Misc", fmt.Sprintf("Item %02d", i),
			float64(1_000*(i+1)), now.Add(-time.Duration(i+1)*time.Hour)))
	}

	tests := []struct {
		name  string
		limit int32
		want  int
	}{
		{"default limit", 0, 5},
		{"explicit limit", 3, 3},
		{"clamped to max", 100, 20},
		{"negative falls back to default", -4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockStore := newTestService(t, now)
			mockStore.EXPECT().ListTransactions(gomock.Any(), "user-123", gomock.Any(), nil, int32(collectPageSize), "").
				DoAndReturn(func(_ any, _ string, start, _ *time.Time, _ int32, _ string) ([]*model.Transaction, string, error) {
					assert.Equal(t, now.AddDate(0, 0, -90), *start)
					return history, "", nil
				})

			resp, err := svc.RankSuggestions(testContext("user-123"),
				connect.NewRequest(&rpc.RankSuggestionsRequest{Limit: tt.limit}))
			require.NoError(t, err)
			assert.Len(t, resp.Msg.Suggestions, tt.want)
		})
	}
}

func TestGetSpendingInsight(t *testing.T) {
	t.Run("supplied risk in Indonesian", func(t *testing.T) {
		svc, _ := newTestService(t, fixedNow)
		resp, err := svc.GetSpendingInsight(testContext("user-123"), connect.NewRequest(&rpc.GetSpendingInsightRequest{
			Risk:     &rpc.SpendingRisk{Level: "Critical", Velocity: 2, SurvivalDays: 2},
			Language: "id-ID",
		}))
		require.NoError(t, err)
		assert.Equal(t, "id", resp.Msg.Language)
		assert.True(t, strings.HasPrefix(resp.Msg.Insight, "Darurat"), resp.Msg.Insight)
	})

	t.Run("accept-language header is honored", func(t *testing.T) {
		svc, _ := newTestService(t, fixedNow)
		req := connect.NewRequest(&rpc.GetSpendingInsightRequest{
			Risk: &rpc.SpendingRisk{Level: "Low", Velocity: 1, SurvivalDays: 60},
		})
		req.Header().Set("Accept-Language", "id;q=0.9, fr;q=0.5")

		resp, err := svc.GetSpendingInsight(testContext("user-123"), req)
		require.NoError(t, err)
		assert.Equal(t, "id", resp.Msg.Language)
	})

	t.Run("unknown level", func(t *testing.T) {
		svc, _ := newTestService(t, fixedNow)
		_, err := svc.GetSpendingInsight(testContext("user-123"), connect.NewRequest(&rpc.GetSpendingInsightRequest{
			Risk: &rpc.SpendingRisk{Level: "Severe"},
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("estimated from wallets and recent spending", func(t *testing.T) {
		svc, mockStore := newTestService(t, fixedNow)
		mockStore.EXPECT().ListWallets(gomock.Any(), "user-123").Return([]*model.Wallet{
			{ID: "w1", Balance: 100_000},
			{ID: "w2", Balance: 50_000},
		}, nil)
		mockStore.EXPECT().ListTransactions(gomock.Any(), "user-123", gomock.Any(), gomock.Any(), gomock.Any(), "").
			Return([]*model.Transaction{
				expense("t1", "Food", "Lunch", 350_000, fixedNow.AddDate(0, 0, -1)),
			}, "", nil)

		resp, err := svc.GetSpendingInsight(testContext("user-123"), connect.NewRequest(&rpc.GetSpendingInsightRequest{}))
		require.NoError(t, err)

		// 50k a day against 150k leaves three days
		assert.Equal(t, "Critical", resp.Msg.Risk.Level)
		assert.Equal(t, 3, resp.Msg.Risk.SurvivalDays)
		assert.Equal(t, 150_000.0, resp.Msg.Risk.Balance)
		assert.Equal(t, "en", resp.Msg.Language)
		assert.True(t, strings.HasPrefix(resp.Msg.Insight, "Urgent"), resp.Msg.Insight)
	})
}
