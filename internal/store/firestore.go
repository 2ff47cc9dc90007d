package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/jwrfree/lemon-beta/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	transactionsCollection  = "transactions"
	budgetsCollection       = "budgets"
	walletsCollection       = "wallets"
	notificationsCollection = "notifications"
)

// FirestoreStore implements the Store interface using Firestore.
// Field paths below are the firestore tags on the model types.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client: client,
	}
}

// notFound converts Firestore's NotFound status into ErrNotFound.
func notFound(kind, id string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

// applyDateAwarePagination handles pagination for queries with date range filters.
// Firestore requires OrderBy on inequality fields first, so we order by date and
// then document ID. The cursor must include both the date value and the ID.
func (s *FirestoreStore) applyDateAwarePagination(ctx context.Context, query firestore.Query, collection string, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy("date", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		cursorDoc, err := s.client.Collection(collection).Doc(docID).Get(ctx)
		if err != nil {
			return query, fmt.Errorf("failed to fetch cursor document: %w", err)
		}
		query = query.StartAfter(cursorDoc.Data()["date"], docID)
	}

	query = query.Limit(int(pageSize) + 1)
	return query, nil
}

// applyCursorPagination adds OrderBy + StartAfter + Limit to a query for cursor-based pagination.
// It fetches pageSize+1 docs so the caller can detect whether a next page exists.
func (s *FirestoreStore) applyCursorPagination(query firestore.Query, pageSize int32, pageToken string) (firestore.Query, error) {
	query = query.OrderBy(firestore.DocumentID, firestore.Asc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return query, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.StartAfter(docID)
	}

	query = query.Limit(int(pageSize) + 1) // +1 to detect next page
	return query, nil
}

// trimPage cuts docs to pageSize and returns the token for the next page.
func trimPage(docs []*firestore.DocumentSnapshot, pageSize int32) ([]*firestore.DocumentSnapshot, string) {
	if len(docs) > int(pageSize) {
		docs = docs[:pageSize]
		return docs, EncodePageToken(docs[pageSize-1].Ref.ID)
	}
	return docs, ""
}

// Transaction operations

func (s *FirestoreStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	now := time.Now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	_, err := s.client.Collection(transactionsCollection).Doc(tx.ID).Set(ctx, tx)
	return err
}

func (s *FirestoreStore) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	doc, err := s.client.Collection(transactionsCollection).Doc(transactionID).Get(ctx)
	if err != nil {
		return nil, notFound("transaction", transactionID, err)
	}

	var tx model.Transaction
	if err := doc.DataTo(&tx); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return &tx, nil
}

func (s *FirestoreStore) DeleteTransaction(ctx context.Context, transactionID string) error {
	_, err := s.client.Collection(transactionsCollection).Doc(transactionID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	query := s.client.Collection(transactionsCollection).Query
	if userID != "" {
		query = query.Where("userId", "==", userID)
	}
	if startDate != nil {
		query = query.Where("date", ">=", *startDate)
	}
	if endDate != nil {
		query = query.Where("date", "<=", *endDate)
	}

	var err error
	if startDate != nil || endDate != nil {
		query, err = s.applyDateAwarePagination(ctx, query, transactionsCollection, pageSize, pageToken)
	} else {
		query, err = s.applyCursorPagination(query, pageSize, pageToken)
	}
	if err != nil {
		return nil, "", err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list transactions: %w", err)
	}

	docs, nextPageToken := trimPage(docs, pageSize)
	transactions := make([]*model.Transaction, 0, len(docs))
	for _, doc := range docs {
		var tx model.Transaction
		if err := doc.DataTo(&tx); err != nil {
			return nil, "", fmt.Errorf("failed to parse transaction: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nextPageToken, nil
}

// Budget operations

func (s *FirestoreStore) CreateBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := time.Now()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now

	_, err := s.client.Collection(budgetsCollection).Doc(budget.ID).Set(ctx, budget)
	return err
}

func (s *FirestoreStore) GetBudget(ctx context.Context, budgetID string) (*model.Budget, error) {
	doc, err := s.client.Collection(budgetsCollection).Doc(budgetID).Get(ctx)
	if err != nil {
		return nil, notFound("budget", budgetID, err)
	}

	var budget model.Budget
	if err := doc.DataTo(&budget); err != nil {
		return nil, fmt.Errorf("failed to parse budget: %w", err)
	}
	return &budget, nil
}

func (s *FirestoreStore) DeleteBudget(ctx context.Context, budgetID string) error {
	_, err := s.client.Collection(budgetsCollection).Doc(budgetID).Delete(ctx)
	return err
}

func (s *FirestoreStore) ListBudgets(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*model.Budget, string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	query := s.client.Collection(budgetsCollection).Query
	if userID != "" {
		query = query.Where("userId", "==", userID)
	}

	query, err := s.applyCursorPagination(query, pageSize, pageToken)
	if err != nil {
		return nil, "", err
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list budgets: %w", err)
	}

	docs, nextPageToken := trimPage(docs, pageSize)
	budgets := make([]*model.Budget, 0, len(docs))
	for _, doc := range docs {
		var budget model.Budget
		if err := doc.DataTo(&budget); err != nil {
			return nil, "", fmt.Errorf("failed to parse budget: %w", err)
		}
		budgets = append(budgets, &budget)
	}
	return budgets, nextPageToken, nil
}

// Wallet operations

func (s *FirestoreStore) CreateWallet(ctx context.Context, wallet *model.Wallet) error {
	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	now := time.Now()
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = now
	}
	wallet.UpdatedAt = now

	_, err := s.client.Collection(walletsCollection).Doc(wallet.ID).Set(ctx, wallet)
	return err
}

func (s *FirestoreStore) ListWallets(ctx context.Context, userID string) ([]*model.Wallet, error) {
	docs, err := s.client.Collection(walletsCollection).
		Where("userId", "==", userID).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	wallets := make([]*model.Wallet, 0, len(docs))
	for _, doc := range docs {
		var wallet model.Wallet
		if err := doc.DataTo(&wallet); err != nil {
			return nil, fmt.Errorf("failed to parse wallet: %w", err)
		}
		wallets = append(wallets, &wallet)
	}
	return wallets, nil
}

// Notification operations

func (s *FirestoreStore) CreateNotification(ctx context.Context, notification *model.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	_, err := s.client.Collection(notificationsCollection).Doc(notification.ID).Set(ctx, notification)
	return err
}

func (s *FirestoreStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, pageSize int32, pageToken string) ([]*model.Notification, string, error) {
	query := s.client.Collection(notificationsCollection).Where("userId", "==", userID)

	if unreadOnly {
		query = query.Where("isRead", "==", false)
	}

	query = query.OrderBy("createdAt", firestore.Desc)

	if pageToken != "" {
		docID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		cursorDoc, err := s.client.Collection(notificationsCollection).Doc(docID).Get(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token document: %w", err)
		}
		query = query.StartAfter(cursorDoc.Data()["createdAt"])
	}

	if pageSize <= 0 {
		pageSize = 50
	}
	query = query.Limit(int(pageSize) + 1)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list notifications: %w", err)
	}

	docs, nextPageToken := trimPage(docs, pageSize)
	notifications := make([]*model.Notification, 0, len(docs))
	for _, doc := range docs {
		var notification model.Notification
		if err := doc.DataTo(&notification); err != nil {
			return nil, "", fmt.Errorf("failed to parse notification: %w", err)
		}
		notifications = append(notifications, &notification)
	}
	return notifications, nextPageToken, nil
}

func (s *FirestoreStore) HasNotification(ctx context.Context, userID string, notifType model.NotificationType, referenceID string, metadataKey string, metadataValue string, withinHours int) (bool, error) {
	query := s.client.Collection(notificationsCollection).
		Where("userId", "==", userID).
		Where("type", "==", string(notifType)).
		Where("referenceId", "==", referenceID)

	if withinHours > 0 {
		cutoff := time.Now().Add(-time.Duration(withinHours) * time.Hour)
		query = query.Where("createdAt", ">=", cutoff)
	}

	query = query.OrderBy("createdAt", firestore.Asc).Limit(50)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return false, fmt.Errorf("failed to check for existing notification: %w", err)
	}

	if metadataKey == "" {
		return len(docs) > 0, nil
	}

	for _, doc := range docs {
		var n model.Notification
		if err := doc.DataTo(&n); err != nil {
			continue
		}
		if n.Metadata[metadataKey] == metadataValue {
			return true, nil
		}
	}
	return false, nil
}
