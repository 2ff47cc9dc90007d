// Package model holds the records shared by the analytics engine, the store
// and the RPC layer.
package model

import (
	"strings"
	"time"
)

// TransactionType encodes the direction of a transaction. Amounts are never
// negative; the sign lives here.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// SubscriptionTag marks a transaction as a recurring charge regardless of its category.
const SubscriptionTag = "subscription"

// Transaction is a single ledger entry.
type Transaction struct {
	ID          string          `json:"id" firestore:"id"`
	UserID      string          `json:"userId" firestore:"userId"`
	WalletID    string          `json:"walletId" firestore:"walletId"`
	Type        TransactionType `json:"type" firestore:"type"`
	Amount      float64         `json:"amount" firestore:"amount"`
	Category    string          `json:"category" firestore:"category"`
	SubCategory string          `json:"subCategory,omitempty" firestore:"subCategory,omitempty"`
	Description string          `json:"description" firestore:"description"`
	Date        time.Time       `json:"date" firestore:"date"`
	Tags        []string        `json:"tags,omitempty" firestore:"tags,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

// IsExpense reports whether the transaction moves money out of a wallet.
func (t *Transaction) IsExpense() bool {
	return t.Type == TransactionTypeExpense
}

// HasTag reports whether the transaction carries tag, ignoring case.
func (t *Transaction) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if strings.EqualFold(strings.TrimSpace(candidate), tag) {
			return true
		}
	}
	return false
}

// Budget is a monthly spending ceiling over one or more categories.
type Budget struct {
	ID           string    `json:"id" firestore:"id"`
	UserID       string    `json:"userId" firestore:"userId"`
	Name         string    `json:"name" firestore:"name"`
	TargetAmount float64   `json:"targetAmount" firestore:"targetAmount"`
	Categories   []string  `json:"categories" firestore:"categories"`
	SubCategory  string    `json:"subCategory,omitempty" firestore:"subCategory,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Matches reports whether tx counts against the budget: an expense in one of
// the budget categories and, when the budget names a sub-category, in that
// sub-category too.
func (b *Budget) Matches(tx *Transaction) bool {
	if tx == nil || !tx.IsExpense() {
		return false
	}
	inCategory := false
	for _, c := range b.Categories {
		if c == tx.Category {
			inCategory = true
			break
		}
	}
	if !inCategory {
		return false
	}
	return b.SubCategory == "" || b.SubCategory == tx.SubCategory
}

// Wallet is an account that transactions are booked against.
type Wallet struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"userId" firestore:"userId"`
	Name      string    `json:"name" firestore:"name"`
	Balance   float64   `json:"balance" firestore:"balance"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// NotificationType classifies notifications raised from analyzer output.
type NotificationType string

const (
	NotificationTypeBudgetAlert        NotificationType = "budget_alert"
	NotificationTypeSubscriptionChange NotificationType = "subscription_change"
)

// Notification is a message stored for the user.
type Notification struct {
	ID          string            `json:"id" firestore:"id"`
	UserID      string            `json:"userId" firestore:"userId"`
	Type        NotificationType  `json:"type" firestore:"type"`
	Title       string            `json:"title" firestore:"title"`
	Message     string            `json:"message" firestore:"message"`
	ReferenceID string            `json:"referenceId,omitempty" firestore:"referenceId,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	IsRead      bool              `json:"isRead" firestore:"isRead"`
	CreatedAt   time.Time         `json:"createdAt" firestore:"createdAt"`
}
