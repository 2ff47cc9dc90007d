package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/jwrfree/lemon-beta/internal/auth"
	"github.com/jwrfree/lemon-beta/internal/config"
	"github.com/jwrfree/lemon-beta/internal/logger"
	"github.com/jwrfree/lemon-beta/internal/metrics"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/rpc"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localUser = "local-dev-user"

func newTestServer(t *testing.T) rpc.InsightServiceClient {
	t.Helper()
	svc := NewInsightService(store.NewMemoryStore(), config.DefaultConfig().Analytics, logger.NewWithWriter(&bytes.Buffer{}))

	path, handler := rpc.NewInsightServiceHandler(svc, connect.WithInterceptors(
		metrics.Interceptor(),
		auth.DebugAuthInterceptor(true),
		auth.LocalDevInterceptor(localUser),
	))
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return rpc.NewInsightServiceClient(srv.Client(), srv.URL)
}

func impersonate[T any](msg *T, userID string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("X-Debug-Impersonate-User", userID)
	return req
}

func TestInsightService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	client := newTestServer(t)
	today := time.Now().UTC().Format(time.RFC3339)

	_, err := client.CreateWallet(ctx, connect.NewRequest(&rpc.CreateWalletRequest{Name: "Cash", Balance: 100_000}))
	require.NoError(t, err)

	budget, err := client.CreateBudget(ctx, connect.NewRequest(&rpc.CreateBudgetRequest{
		Name: "Food", TargetAmount: 100_000, Categories: []string{"Food"},
	}))
	require.NoError(t, err)
	budgetID := budget.Msg.Budget.ID

	var txIDs []string
	for _, amount := range []float64{60_000, 70_000} {
		resp, err := client.CreateTransaction(ctx, connect.NewRequest(&rpc.CreateTransactionRequest{
			Type: model.TransactionTypeExpense, Amount: amount, Category: "Food", Description: "Warteg", Date: today,
		}))
		require.NoError(t, err)
		txIDs = append(txIDs, resp.Msg.Transaction.ID)
	}

	t.Run("budget health over the wire", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			resp, err := client.GetBudgetHealth(ctx, connect.NewRequest(&rpc.GetBudgetHealthRequest{BudgetID: budgetID}))
			require.NoError(t, err)
			assert.Equal(t, "over", resp.Msg.Stats.HealthStatus)
			assert.Equal(t, 130_000.0, resp.Msg.Stats.Spent)
		}

		notifications, err := client.ListNotifications(ctx, connect.NewRequest(&rpc.ListNotificationsRequest{}))
		require.NoError(t, err)
		require.Len(t, notifications.Msg.Notifications, 1, "second evaluation is deduplicated")
		assert.Equal(t, model.NotificationTypeBudgetAlert, notifications.Msg.Notifications[0].Type)
	})

	t.Run("listing pages through transactions", func(t *testing.T) {
		first, err := client.ListTransactions(ctx, connect.NewRequest(&rpc.ListTransactionsRequest{PageSize: 1}))
		require.NoError(t, err)
		require.Len(t, first.Msg.Transactions, 1)
		require.NotEmpty(t, first.Msg.NextPageToken)

		second, err := client.ListTransactions(ctx, connect.NewRequest(&rpc.ListTransactionsRequest{
			PageSize: 1, PageToken: first.Msg.NextPageToken,
		}))
		require.NoError(t, err)
		require.Len(t, second.Msg.Transactions, 1)
		assert.NotEqual(t, first.Msg.Transactions[0].ID, second.Msg.Transactions[0].ID)
	})

	t.Run("suggestions and insight", func(t *testing.T) {
		suggestions, err := client.RankSuggestions(ctx, connect.NewRequest(&rpc.RankSuggestionsRequest{}))
		require.NoError(t, err)
		require.Len(t, suggestions.Msg.Suggestions, 2)
		assert.Contains(t, suggestions.Msg.Suggestions[0].Text, "Warteg Rp")

		insight, err := client.GetSpendingInsight(ctx, connect.NewRequest(&rpc.GetSpendingInsightRequest{Language: "id"}))
		require.NoError(t, err)
		assert.Equal(t, "Critical", insight.Msg.Risk.Level)
		assert.Equal(t, "id", insight.Msg.Language)
		assert.NotEmpty(t, insight.Msg.Insight)
	})

	t.Run("other users are isolated", func(t *testing.T) {
		list, err := client.ListTransactions(ctx, impersonate(&rpc.ListTransactionsRequest{}, "someone-else"))
		require.NoError(t, err)
		assert.Empty(t, list.Msg.Transactions)

		_, err = client.DeleteTransaction(ctx, impersonate(&rpc.DeleteTransactionRequest{TransactionID: txIDs[0]}, "someone-else"))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		_, err = client.ListBudgets(ctx, connect.NewRequest(&rpc.ListBudgetsRequest{UserID: "someone-else"}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("validation errors carry their code", func(t *testing.T) {
		_, err := client.CreateTransaction(ctx, connect.NewRequest(&rpc.CreateTransactionRequest{
			Type: model.TransactionTypeExpense, Amount: -1, Date: today,
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("owner deletes", func(t *testing.T) {
		_, err := client.DeleteTransaction(ctx, connect.NewRequest(&rpc.DeleteTransactionRequest{TransactionID: txIDs[0]}))
		require.NoError(t, err)

		_, err = client.DeleteTransaction(ctx, connect.NewRequest(&rpc.DeleteTransactionRequest{TransactionID: txIDs[0]}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestInsightServiceHandler_UnknownProcedure(t *testing.T) {
	svc := NewInsightService(store.NewMemoryStore(), config.DefaultConfig().Analytics, logger.NewWithWriter(&bytes.Buffer{}))
	_, handler := rpc.NewInsightServiceHandler(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/lemon.v1.InsightService/Nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(_ context.Context, token string) (*auth.UserClaims, error) {
	uid, ok := v[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &auth.UserClaims{UID: uid, Verified: true}, nil
}

func TestInsightService_EveryProcedureNeedsAToken(t *testing.T) {
	ctx := context.Background()
	svc := NewInsightService(store.NewMemoryStore(), config.DefaultConfig().Analytics, logger.NewWithWriter(&bytes.Buffer{}))
	path, handler := rpc.NewInsightServiceHandler(svc, connect.WithInterceptors(
		auth.DebugAuthInterceptor(false),
		auth.AuthInterceptor(staticVerifier{"good": "user-123"}),
	))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := rpc.NewInsightServiceClient(srv.Client(), srv.URL)

	calls := map[string]func(token string) error{
		"ListWallets": func(token string) error {
			req := connect.NewRequest(&rpc.ListWalletsRequest{})
			setToken(req.Header(), token)
			_, err := client.ListWallets(ctx, req)
			return err
		},
		"ListNotifications": func(token string) error {
			req := connect.NewRequest(&rpc.ListNotificationsRequest{})
			setToken(req.Header(), token)
			_, err := client.ListNotifications(ctx, req)
			return err
		},
		"RankSuggestions": func(token string) error {
			req := connect.NewRequest(&rpc.RankSuggestionsRequest{})
			setToken(req.Header(), token)
			_, err := client.RankSuggestions(ctx, req)
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(call("")))
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(call("forged")))
			assert.NoError(t, call("good"))
		})
	}

	t.Run("impersonation header is ignored with auth on", func(t *testing.T) {
		req := impersonate(&rpc.ListWalletsRequest{}, "someone-else")
		_, err := client.ListWallets(ctx, req)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func setToken(h http.Header, token string) {
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}
