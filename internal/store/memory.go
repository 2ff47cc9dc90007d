package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwrfree/lemon-beta/internal/model"
)

// MemoryStore implements Store with in-memory maps. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	transactions  map[string]model.Transaction
	budgets       map[string]model.Budget
	wallets       map[string]model.Wallet
	notifications map[string]model.Notification

	now func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions:  make(map[string]model.Transaction),
		budgets:       make(map[string]model.Budget),
		wallets:       make(map[string]model.Wallet),
		notifications: make(map[string]model.Notification),
		now:           time.Now,
	}
}

// paginateIDs applies cursor-based pagination to a slice of IDs, sorted in
// place. Returns the page and the next page token (empty on the last page).
func paginateIDs(ids []string, pageSize int32, pageToken string) ([]string, string) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	sort.Strings(ids)

	if pageToken != "" {
		if cursorID, err := DecodePageToken(pageToken); err == nil {
			ids = ids[sort.Search(len(ids), func(i int) bool { return ids[i] > cursorID }):]
		}
	}

	var nextToken string
	if int32(len(ids)) > pageSize {
		nextToken = EncodePageToken(ids[pageSize-1])
		ids = ids[:pageSize]
	}
	return ids, nextToken
}

// Transaction operations

func (m *MemoryStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = m.now()
	}
	tx.UpdatedAt = m.now()

	stored := *tx
	stored.Tags = append([]string(nil), tx.Tags...)
	m.transactions[tx.ID] = stored
	return nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[transactionID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	return &tx, nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.transactions, transactionID)
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingIDs []string
	for id, tx := range m.transactions {
		if userID != "" && tx.UserID != userID {
			continue
		}
		if startDate != nil && tx.Date.Before(*startDate) {
			continue
		}
		if endDate != nil && tx.Date.After(*endDate) {
			continue
		}
		matchingIDs = append(matchingIDs, id)
	}

	paginatedIDs, nextToken := paginateIDs(matchingIDs, pageSize, pageToken)
	result := make([]*model.Transaction, 0, len(paginatedIDs))
	for _, id := range paginatedIDs {
		tx := m.transactions[id]
		result = append(result, &tx)
	}
	return result, nextToken, nil
}

// Budget operations

func (m *MemoryStore) CreateBudget(ctx context.Context, budget *model.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = m.now()
	}
	budget.UpdatedAt = m.now()

	stored := *budget
	stored.Categories = append([]string(nil), budget.Categories...)
	m.budgets[budget.ID] = stored
	return nil
}

func (m *MemoryStore) GetBudget(ctx context.Context, budgetID string) (*model.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	budget, ok := m.budgets[budgetID]
	if !ok {
		return nil, fmt.Errorf("budget %s: %w", budgetID, ErrNotFound)
	}
	return &budget, nil
}

func (m *MemoryStore) DeleteBudget(ctx context.Context, budgetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.budgets, budgetID)
	return nil
}

func (m *MemoryStore) ListBudgets(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*model.Budget, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matchingIDs []string
	for id, budget := range m.budgets {
		if userID != "" && budget.UserID != userID {
			continue
		}
		matchingIDs = append(matchingIDs, id)
	}

	paginatedIDs, nextToken := paginateIDs(matchingIDs, pageSize, pageToken)
	result := make([]*model.Budget, 0, len(paginatedIDs))
	for _, id := range paginatedIDs {
		budget := m.budgets[id]
		result = append(result, &budget)
	}
	return result, nextToken, nil
}

// Wallet operations

func (m *MemoryStore) CreateWallet(ctx context.Context, wallet *model.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = m.now()
	}
	wallet.UpdatedAt = m.now()

	m.wallets[wallet.ID] = *wallet
	return nil
}

func (m *MemoryStore) ListWallets(ctx context.Context, userID string) ([]*model.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Wallet
	for _, wallet := range m.wallets {
		if wallet.UserID != userID {
			continue
		}
		w := wallet
		result = append(result, &w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Notification operations

func (m *MemoryStore) CreateNotification(ctx context.Context, notification *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = m.now()
	}

	stored := *notification
	if notification.Metadata != nil {
		stored.Metadata = make(map[string]string, len(notification.Metadata))
		for k, v := range notification.Metadata {
			stored.Metadata[k] = v
		}
	}
	m.notifications[notification.ID] = stored
	return nil
}

func (m *MemoryStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, pageSize int32, pageToken string) ([]*model.Notification, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matching []*model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		copied := n
		matching = append(matching, &copied)
	}

	// Newest first; ID breaks ties so pages are stable
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.After(matching[j].CreatedAt)
		}
		return matching[i].ID > matching[j].ID
	})

	if pageSize <= 0 {
		pageSize = 50
	}

	startIdx := 0
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err == nil {
			for i, n := range matching {
				if n.ID == cursorID {
					startIdx = i + 1
					break
				}
			}
		}
	}

	if startIdx >= len(matching) {
		return nil, "", nil
	}

	matching = matching[startIdx:]
	var nextToken string
	if int32(len(matching)) > pageSize {
		nextToken = EncodePageToken(matching[pageSize-1].ID)
		matching = matching[:pageSize]
	}

	return matching, nextToken, nil
}

func (m *MemoryStore) HasNotification(ctx context.Context, userID string, notifType model.NotificationType, referenceID string, metadataKey string, metadataValue string, withinHours int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Time{}
	if withinHours > 0 {
		cutoff = m.now().Add(-time.Duration(withinHours) * time.Hour)
	}

	for _, n := range m.notifications {
		if n.UserID != userID || n.Type != notifType || n.ReferenceID != referenceID {
			continue
		}
		if withinHours > 0 && n.CreatedAt.Before(cutoff) {
			continue
		}
		if metadataKey != "" && n.Metadata[metadataKey] != metadataValue {
			continue
		}
		return true, nil
	}
	return false, nil
}
