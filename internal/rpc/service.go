package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// InsightServiceName is the fully-qualified name of the InsightService service.
const InsightServiceName = "lemon.v1.InsightService"

// Fully-qualified procedure names, as they appear in the URL path and in
// connect.Spec.Procedure.
const (
	CreateTransactionProcedure  = "/lemon.v1.InsightService/CreateTransaction"
	ListTransactionsProcedure   = "/lemon.v1.InsightService/ListTransactions"
	DeleteTransactionProcedure  = "/lemon.v1.InsightService/DeleteTransaction"
	CreateBudgetProcedure       = "/lemon.v1.InsightService/CreateBudget"
	ListBudgetsProcedure        = "/lemon.v1.InsightService/ListBudgets"
	DeleteBudgetProcedure       = "/lemon.v1.InsightService/DeleteBudget"
	CreateWalletProcedure       = "/lemon.v1.InsightService/CreateWallet"
	ListWalletsProcedure        = "/lemon.v1.InsightService/ListWallets"
	GetBudgetHealthProcedure    = "/lemon.v1.InsightService/GetBudgetHealth"
	GetBudgetOverviewProcedure  = "/lemon.v1.InsightService/GetBudgetOverview"
	AuditSubscriptionsProcedure = "/lemon.v1.InsightService/AuditSubscriptions"
	RankSuggestionsProcedure    = "/lemon.v1.InsightService/RankSuggestions"
	GetSpendingInsightProcedure = "/lemon.v1.InsightService/GetSpendingInsight"
	ListNotificationsProcedure  = "/lemon.v1.InsightService/ListNotifications"
)

// InsightServiceHandler is implemented by the server.
type InsightServiceHandler interface {
	CreateTransaction(context.Context, *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
	DeleteTransaction(context.Context, *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error)
	CreateBudget(context.Context, *connect.Request[CreateBudgetRequest]) (*connect.Response[CreateBudgetResponse], error)
	ListBudgets(context.Context, *connect.Request[ListBudgetsRequest]) (*connect.Response[ListBudgetsResponse], error)
	DeleteBudget(context.Context, *connect.Request[DeleteBudgetRequest]) (*connect.Response[DeleteBudgetResponse], error)
	CreateWallet(context.Context, *connect.Request[CreateWalletRequest]) (*connect.Response[CreateWalletResponse], error)
	ListWallets(context.Context, *connect.Request[ListWalletsRequest]) (*connect.Response[ListWalletsResponse], error)
	GetBudgetHealth(context.Context, *connect.Request[GetBudgetHealthRequest]) (*connect.Response[GetBudgetHealthResponse], error)
	GetBudgetOverview(context.Context, *connect.Request[GetBudgetOverviewRequest]) (*connect.Response[GetBudgetOverviewResponse], error)
	AuditSubscriptions(context.Context, *connect.Request[AuditSubscriptionsRequest]) (*connect.Response[AuditSubscriptionsResponse], error)
	RankSuggestions(context.Context, *connect.Request[RankSuggestionsRequest]) (*connect.Response[RankSuggestionsResponse], error)
	GetSpendingInsight(context.Context, *connect.Request[GetSpendingInsightRequest]) (*connect.Response[GetSpendingInsightResponse], error)
	ListNotifications(context.Context, *connect.Request[ListNotificationsRequest]) (*connect.Response[ListNotificationsResponse], error)
}

// NewInsightServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. The JSON codec is always installed.
func NewInsightServiceHandler(svc InsightServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	handlers := map[string]http.Handler{
		CreateTransactionProcedure:  connect.NewUnaryHandler(CreateTransactionProcedure, svc.CreateTransaction, opts...),
		ListTransactionsProcedure:   connect.NewUnaryHandler(ListTransactionsProcedure, svc.ListTransactions, opts...),
		DeleteTransactionProcedure:  connect.NewUnaryHandler(DeleteTransactionProcedure, svc.DeleteTransaction, opts...),
		CreateBudgetProcedure:       connect.NewUnaryHandler(CreateBudgetProcedure, svc.CreateBudget, opts...),
		ListBudgetsProcedure:        connect.NewUnaryHandler(ListBudgetsProcedure, svc.ListBudgets, opts...),
		DeleteBudgetProcedure:       connect.NewUnaryHandler(DeleteBudgetProcedure, svc.DeleteBudget, opts...),
		CreateWalletProcedure:       connect.NewUnaryHandler(CreateWalletProcedure, svc.CreateWallet, opts...),
		ListWalletsProcedure:        connect.NewUnaryHandler(ListWalletsProcedure, svc.ListWallets, opts...),
		GetBudgetHealthProcedure:    connect.NewUnaryHandler(GetBudgetHealthProcedure, svc.GetBudgetHealth, opts...),
		GetBudgetOverviewProcedure:  connect.NewUnaryHandler(GetBudgetOverviewProcedure, svc.GetBudgetOverview, opts...),
		AuditSubscriptionsProcedure: connect.NewUnaryHandler(AuditSubscriptionsProcedure, svc.AuditSubscriptions, opts...),
		RankSuggestionsProcedure:    connect.NewUnaryHandler(RankSuggestionsProcedure, svc.RankSuggestions, opts...),
		GetSpendingInsightProcedure: connect.NewUnaryHandler(GetSpendingInsightProcedure, svc.GetSpendingInsight, opts...),
		ListNotificationsProcedure:  connect.NewUnaryHandler(ListNotificationsProcedure, svc.ListNotifications, opts...),
	}

	return "/" + InsightServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// InsightServiceClient is a client for the lemon.v1.InsightService service.
type InsightServiceClient interface {
	CreateTransaction(context.Context, *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error)
	ListTransactions(context.Context, *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error)
	DeleteTransaction(context.Context, *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error)
	CreateBudget(context.Context, *connect.Request[CreateBudgetRequest]) (*connect.Response[CreateBudgetResponse], error)
	ListBudgets(context.Context, *connect.Request[ListBudgetsRequest]) (*connect.Response[ListBudgetsResponse], error)
	DeleteBudget(context.Context, *connect.Request[DeleteBudgetRequest]) (*connect.Response[DeleteBudgetResponse], error)
	CreateWallet(context.Context, *connect.Request[CreateWalletRequest]) (*connect.Response[CreateWalletResponse], error)
	ListWallets(context.Context, *connect.Request[ListWalletsRequest]) (*connect.Response[ListWalletsResponse], error)
	GetBudgetHealth(context.Context, *connect.Request[GetBudgetHealthRequest]) (*connect.Response[GetBudgetHealthResponse], error)
	GetBudgetOverview(context.Context, *connect.Request[GetBudgetOverviewRequest]) (*connect.Response[GetBudgetOverviewResponse], error)
	AuditSubscriptions(context.Context, *connect.Request[AuditSubscriptionsRequest]) (*connect.Response[AuditSubscriptionsResponse], error)
	RankSuggestions(context.Context, *connect.Request[RankSuggestionsRequest]) (*connect.Response[RankSuggestionsResponse], error)
	GetSpendingInsight(context.Context, *connect.Request[GetSpendingInsightRequest]) (*connect.Response[GetSpendingInsightResponse], error)
	ListNotifications(context.Context, *connect.Request[ListNotificationsRequest]) (*connect.Response[ListNotificationsResponse], error)
}

// NewInsightServiceClient constructs a client for the lemon.v1.InsightService
// service. baseURL is the server root, e.g. http://localhost:8111.
func NewInsightServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) InsightServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &insightServiceClient{
		createTransaction:  connect.NewClient[CreateTransactionRequest, CreateTransactionResponse](httpClient, baseURL+CreateTransactionProcedure, opts...),
		listTransactions:   connect.NewClient[ListTransactionsRequest, ListTransactionsResponse](httpClient, baseURL+ListTransactionsProcedure, opts...),
		deleteTransaction:  connect.NewClient[DeleteTransactionRequest, DeleteTransactionResponse](httpClient, baseURL+DeleteTransactionProcedure, opts...),
		createBudget:       connect.NewClient[CreateBudgetRequest, CreateBudgetResponse](httpClient, baseURL+CreateBudgetProcedure, opts...),
		listBudgets:        connect.NewClient[ListBudgetsRequest, ListBudgetsResponse](httpClient, baseURL+ListBudgetsProcedure, opts...),
		deleteBudget:       connect.NewClient[DeleteBudgetRequest, DeleteBudgetResponse](httpClient, baseURL+DeleteBudgetProcedure, opts...),
		createWallet:       connect.NewClient[CreateWalletRequest, CreateWalletResponse](httpClient, baseURL+CreateWalletProcedure, opts...),
		listWallets:        connect.NewClient[ListWalletsRequest, ListWalletsResponse](httpClient, baseURL+ListWalletsProcedure, opts...),
		getBudgetHealth:    connect.NewClient[GetBudgetHealthRequest, GetBudgetHealthResponse](httpClient, baseURL+GetBudgetHealthProcedure, opts...),
		getBudgetOverview:  connect.NewClient[GetBudgetOverviewRequest, GetBudgetOverviewResponse](httpClient, baseURL+GetBudgetOverviewProcedure, opts...),
		auditSubscriptions: connect.NewClient[AuditSubscriptionsRequest, AuditSubscriptionsResponse](httpClient, baseURL+AuditSubscriptionsProcedure, opts...),
		rankSuggestions:    connect.NewClient[RankSuggestionsRequest, RankSuggestionsResponse](httpClient, baseURL+RankSuggestionsProcedure, opts...),
		getSpendingInsight: connect.NewClient[GetSpendingInsightRequest, GetSpendingInsightResponse](httpClient, baseURL+GetSpendingInsightProcedure, opts...),
		listNotifications:  connect.NewClient[ListNotificationsRequest, ListNotificationsResponse](httpClient, baseURL+ListNotificationsProcedure, opts...),
	}
}

type insightServiceClient struct {
	createTransaction  *connect.Client[CreateTransactionRequest, CreateTransactionResponse]
	listTransactions   *connect.Client[ListTransactionsRequest, ListTransactionsResponse]
	deleteTransaction  *connect.Client[DeleteTransactionRequest, DeleteTransactionResponse]
	createBudget       *connect.Client[CreateBudgetRequest, CreateBudgetResponse]
	listBudgets        *connect.Client[ListBudgetsRequest, ListBudgetsResponse]
	deleteBudget       *connect.Client[DeleteBudgetRequest, DeleteBudgetResponse]
	createWallet       *connect.Client[CreateWalletRequest, CreateWalletResponse]
	listWallets        *connect.Client[ListWalletsRequest, ListWalletsResponse]
	getBudgetHealth    *connect.Client[GetBudgetHealthRequest, GetBudgetHealthResponse]
	getBudgetOverview  *connect.Client[GetBudgetOverviewRequest, GetBudgetOverviewResponse]
	auditSubscriptions *connect.Client[AuditSubscriptionsRequest, AuditSubscriptionsResponse]
	rankSuggestions    *connect.Client[RankSuggestionsRequest, RankSuggestionsResponse]
	getSpendingInsight *connect.Client[GetSpendingInsightRequest, GetSpendingInsightResponse]
	listNotifications  *connect.Client[ListNotificationsRequest, ListNotificationsResponse]
}

func (c *insightServiceClient) CreateTransaction(ctx context.Context, req *connect.Request[CreateTransactionRequest]) (*connect.Response[CreateTransactionResponse], error) {
	return c.createTransaction.CallUnary(ctx, req)
}

func (c *insightServiceClient) ListTransactions(ctx context.Context, req *connect.Request[ListTransactionsRequest]) (*connect.Response[ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

func (c *insightServiceClient) DeleteTransaction(ctx context.Context, req *connect.Request[DeleteTransactionRequest]) (*connect.Response[DeleteTransactionResponse], error) {
	return c.deleteTransaction.CallUnary(ctx, req)
}

func (c *insightServiceClient) CreateBudget(ctx context.Context, req *connect.Request[CreateBudgetRequest]) (*connect.Response[CreateBudgetResponse], error) {
	return c.createBudget.CallUnary(ctx, req)
}

func (c *insightServiceClient) ListBudgets(ctx context.Context, req *connect.Request[ListBudgetsRequest]) (*connect.Response[ListBudgetsResponse], error) {
	return c.listBudgets.CallUnary(ctx, req)
}

func (c *insightServiceClient) DeleteBudget(ctx context.Context, req *connect.Request[DeleteBudgetRequest]) (*connect.Response[DeleteBudgetResponse], error) {
	return c.deleteBudget.CallUnary(ctx, req)
}

func (c *insightServiceClient) CreateWallet(ctx context.Context, req *connect.Request[CreateWalletRequest]) (*connect.Response[CreateWalletResponse], error) {
	return c.createWallet.CallUnary(ctx, req)
}

func (c *insightServiceClient) ListWallets(ctx context.Context, req *connect.Request[ListWalletsRequest]) (*connect.Response[ListWalletsResponse], error) {
	return c.listWallets.CallUnary(ctx, req)
}

func (c *insightServiceClient) GetBudgetHealth(ctx context.Context, req *connect.Request[GetBudgetHealthRequest]) (*connect.Response[GetBudgetHealthResponse], error) {
	return c.getBudgetHealth.CallUnary(ctx, req)
}

func (c *insightServiceClient) GetBudgetOverview(ctx context.Context, req *connect.Request[GetBudgetOverviewRequest]) (*connect.Response[GetBudgetOverviewResponse], error) {
	return c.getBudgetOverview.CallUnary(ctx, req)
}

func (c *insightServiceClient) AuditSubscriptions(ctx context.Context, req *connect.Request[AuditSubscriptionsRequest]) (*connect.Response[AuditSubscriptionsResponse], error) {
	return c.auditSubscriptions.CallUnary(ctx, req)
}

func (c *insightServiceClient) RankSuggestions(ctx context.Context, req *connect.Request[RankSuggestionsRequest]) (*connect.Response[RankSuggestionsResponse], error) {
	return c.rankSuggestions.CallUnary(ctx, req)
}

func (c *insightServiceClient) GetSpendingInsight(ctx context.Context, req *connect.Request[GetSpendingInsightRequest]) (*connect.Response[GetSpendingInsightResponse], error) {
	return c.getSpendingInsight.CallUnary(ctx, req)
}

func (c *insightServiceClient) ListNotifications(ctx context.Context, req *connect.Request[ListNotificationsRequest]) (*connect.Response[ListNotificationsResponse], error) {
	return c.listNotifications.CallUnary(ctx, req)
}
