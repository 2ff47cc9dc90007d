// Package service implements lemon.v1.InsightService on top of a store and
// the analytics engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jwrfree/lemon-beta/internal/auth"
	"github.com/jwrfree/lemon-beta/internal/config"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/rpc"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/rs/zerolog"
)

var _ rpc.InsightServiceHandler = (*InsightService)(nil)

type InsightService struct {
	store    store.Store
	triggers *NotificationTrigger
	settings config.AnalyticsConfig
	// loc reads calendar facts for requests that carry no offset of their own.
	loc *time.Location
	log zerolog.Logger
	now func() time.Time
}

func NewInsightService(store store.Store, settings config.AnalyticsConfig, log zerolog.Logger) *InsightService {
	return &InsightService{
		store:    store,
		triggers: NewNotificationTrigger(store, log),
		settings: settings,
		loc:      settings.Location(),
		log:      log.With().Str("component", "InsightService").Logger(),
		now:      time.Now,
	}
}

// collectPageSize is the page size used when a handler needs every record.
const collectPageSize = 1000

// collectTransactions loads every matching transaction with its date
// expressed in loc. Stores may hand dates back in UTC, and the analyzers
// read hour, weekday and day of month from the date's own location.
func (s *InsightService) collectTransactions(ctx context.Context, userID string, start, end *time.Time, loc *time.Location) ([]*model.Transaction, error) {
	var all []*model.Transaction
	token := ""
	for {
		page, next, err := s.store.ListTransactions(ctx, userID, start, end, collectPageSize, token)
		if err != nil {
			return nil, err
		}
		for _, tx := range page {
			if tx == nil {
				continue
			}
			local := *tx
			if !local.Date.IsZero() {
				local.Date = local.Date.In(loc)
			}
			all = append(all, &local)
		}
		if next == "" {
			return all, nil
		}
		token = next
	}
}

func (s *InsightService) collectBudgets(ctx context.Context, userID string) ([]*model.Budget, error) {
	var all []*model.Budget
	token := ""
	for {
		page, next, err := s.store.ListBudgets(ctx, userID, collectPageSize, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}

// referenceTime resolves an optional client-supplied reference time. The
// result's location is the one the request is analyzed in: the offset the
// client sent, or the configured zone for bare dates and the server clock.
func (s *InsightService) referenceTime(raw, field string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.now().In(s.loc), nil
	}
	t, ok := model.ParseDate(raw, s.loc)
	if !ok {
		return time.Time{}, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%s must be an ISO 8601 date, got %q", field, raw))
	}
	return t, nil
}

// optionalDate parses raw when set and returns nil otherwise.
func (s *InsightService) optionalDate(raw, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, ok := model.ParseDate(raw, s.loc)
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("%s must be an ISO 8601 date, got %q", field, raw))
	}
	return &t, nil
}

// monthRange returns the first and last instant of the calendar month of t.
func monthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// storeError wraps a store failure, mapping missing documents to NotFound.
func storeError(operation string, err error) error {
	wrapped := auth.WrapStoreError(operation, err)
	if errors.Is(err, store.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, wrapped)
	}
	return wrapped
}

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// CreateTransaction records a ledger entry for the caller.
func (s *InsightService) CreateTransaction(ctx context.Context, req *connect.Request[rpc.CreateTransactionRequest]) (*connect.Response[rpc.CreateTransactionResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	if !req.Msg.Type.Valid() {
		return nil, invalidArgument("type must be %q or %q", model.TransactionTypeIncome, model.TransactionTypeExpense)
	}
	if req.Msg.Amount < 0 || math.IsNaN(req.Msg.Amount) || math.IsInf(req.Msg.Amount, 0) {
		return nil, invalidArgument("amount must be a non-negative number")
	}
	date, ok := model.ParseDate(req.Msg.Date, s.loc)
	if !ok {
		return nil, invalidArgument("date must be an ISO 8601 date, got %q", req.Msg.Date)
	}

	now := s.now()
	tx := &model.Transaction{
		ID:          uuid.New().String(),
		UserID:      claims.UID,
		WalletID:    req.Msg.WalletID,
		Type:        req.Msg.Type,
		Amount:      req.Msg.Amount,
		Category:    req.Msg.Category,
		SubCategory: req.Msg.SubCategory,
		Description: req.Msg.Description,
		Date:        date,
		Tags:        req.Msg.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, storeError("create transaction", err)
	}

	return connect.NewResponse(&rpc.CreateTransactionResponse{Transaction: tx}), nil
}

// ListTransactions lists the caller's transactions, optionally bounded by date.
func (s *InsightService) ListTransactions(ctx context.Context, req *connect.Request[rpc.ListTransactionsRequest]) (*connect.Response[rpc.ListTransactionsResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	start, err := s.optionalDate(req.Msg.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := s.optionalDate(req.Msg.EndDate, "endDate")
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, invalidArgument("endDate is before startDate")
	}

	txs, next, err := s.store.ListTransactions(ctx, claims.UID, start, end,
		auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, storeError("list transactions", err)
	}

	return connect.NewResponse(&rpc.ListTransactionsResponse{
		Transactions:  txs,
		NextPageToken: next,
	}), nil
}

// DeleteTransaction deletes a transaction owned by the caller.
func (s *InsightService) DeleteTransaction(ctx context.Context, req *connect.Request[rpc.DeleteTransactionRequest]) (*connect.Response[rpc.DeleteTransactionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.TransactionID == "" {
		return nil, invalidArgument("transactionId is required")
	}

	tx, err := s.store.GetTransaction(ctx, req.Msg.TransactionID)
	if err != nil {
		return nil, storeError("get transaction", err)
	}
	if err := auth.RequireOwner(claims, tx.UserID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
		return nil, storeError("delete transaction", err)
	}
	return connect.NewResponse(&rpc.DeleteTransactionResponse{}), nil
}

// CreateBudget creates a monthly budget for the caller.
func (s *InsightService) CreateBudget(ctx context.Context, req *connect.Request[rpc.CreateBudgetRequest]) (*connect.Response[rpc.CreateBudgetResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	if !(req.Msg.TargetAmount > 0) || math.IsInf(req.Msg.TargetAmount, 0) {
		return nil, invalidArgument("targetAmount must be greater than zero")
	}
	var categories []string
	for _, c := range req.Msg.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		return nil, invalidArgument("at least one category is required")
	}

	now := s.now()
	budget := &model.Budget{
		ID:           uuid.New().String(),
		UserID:       claims.UID,
		Name:         req.Msg.Name,
		TargetAmount: req.Msg.TargetAmount,
		Categories:   categories,
		SubCategory:  strings.TrimSpace(req.Msg.SubCategory),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateBudget(ctx, budget); err != nil {
		return nil, storeError("create budget", err)
	}
	return connect.NewResponse(&rpc.CreateBudgetResponse{Budget: budget}), nil
}

// ListBudgets lists the caller's budgets.
func (s *InsightService) ListBudgets(ctx context.Context, req *connect.Request[rpc.ListBudgetsRequest]) (*connect.Response[rpc.ListBudgetsResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	budgets, next, err := s.store.ListBudgets(ctx, claims.UID, auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, storeError("list budgets", err)
	}
	return connect.NewResponse(&rpc.ListBudgetsResponse{
		Budgets:       budgets,
		NextPageToken: next,
	}), nil
}

// DeleteBudget deletes a budget owned by the caller.
func (s *InsightService) DeleteBudget(ctx context.Context, req *connect.Request[rpc.DeleteBudgetRequest]) (*connect.Response[rpc.DeleteBudgetResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.BudgetID == "" {
		return nil, invalidArgument("budgetId is required")
	}

	budget, err := s.store.GetBudget(ctx, req.Msg.BudgetID)
	if err != nil {
		return nil, storeError("get budget", err)
	}
	if err := auth.RequireOwner(claims, budget.UserID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteBudget(ctx, budget.ID); err != nil {
		return nil, storeError("delete budget", err)
	}
	return connect.NewResponse(&rpc.DeleteBudgetResponse{}), nil
}

// CreateWallet creates a wallet for the caller.
func (s *InsightService) CreateWallet(ctx context.Context, req *connect.Request[rpc.CreateWalletRequest]) (*connect.Response[rpc.CreateWalletResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Msg.Name) == "" {
		return nil, invalidArgument("name is required")
	}
	if math.IsNaN(req.Msg.Balance) || math.IsInf(req.Msg.Balance, 0) {
		return nil, invalidArgument("balance must be a finite number")
	}

	now := s.now()
	wallet := &model.Wallet{
		ID:        uuid.New().String(),
		UserID:    claims.UID,
		Name:      strings.TrimSpace(req.Msg.Name),
		Balance:   req.Msg.Balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateWallet(ctx, wallet); err != nil {
		return nil, storeError("create wallet", err)
	}
	return connect.NewResponse(&rpc.CreateWalletResponse{Wallet: wallet}), nil
}

// ListWallets lists the caller's wallets.
func (s *InsightService) ListWallets(ctx context.Context, req *connect.Request[rpc.ListWalletsRequest]) (*connect.Response[rpc.ListWalletsResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	wallets, err := s.store.ListWallets(ctx, claims.UID)
	if err != nil {
		return nil, storeError("list wallets", err)
	}
	if wallets == nil {
		wallets = []*model.Wallet{}
	}
	return connect.NewResponse(&rpc.ListWalletsResponse{Wallets: wallets}), nil
}

// ListNotifications lists the caller's notifications, newest first.
func (s *InsightService) ListNotifications(ctx context.Context, req *connect.Request[rpc.ListNotificationsRequest]) (*connect.Response[rpc.ListNotificationsResponse], error) {
	claims, err := auth.RequireUserAccess(ctx, req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	notifications, next, err := s.store.ListNotifications(ctx, claims.UID, req.Msg.UnreadOnly,
		auth.NormalizePageSize(req.Msg.PageSize), req.Msg.PageToken)
	if err != nil {
		return nil, storeError("list notifications", err)
	}
	return connect.NewResponse(&rpc.ListNotificationsResponse{
		Notifications: notifications,
		NextPageToken: next,
	}), nil
}
