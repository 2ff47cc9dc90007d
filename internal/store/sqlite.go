package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwrfree/lemon-beta/internal/model"
	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed width so that stored timestamps order correctly
// as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Migrations returns the schema statements. Each string is a single SQL
// statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			wallet_id    TEXT NOT NULL DEFAULT '',
			type         TEXT NOT NULL,
			amount       REAL NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			sub_category TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			date         TEXT NOT NULL,
			tags         TEXT NOT NULL DEFAULT '[]',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			name          TEXT NOT NULL DEFAULT '',
			target_amount REAL NOT NULL,
			categories    TEXT NOT NULL DEFAULT '[]',
			sub_category  TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id)`,

		`CREATE TABLE IF NOT EXISTS wallets (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			balance    REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallets_user ON wallets(user_id)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			type         TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			message      TEXT NOT NULL DEFAULT '',
			reference_id TEXT NOT NULL DEFAULT '',
			metadata     TEXT NOT NULL DEFAULT '{}',
			is_read      INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_ref ON notifications(user_id, type, reference_id)`,
	}
}

// SQLiteStore implements Store on an embedded SQLite database for local
// persistent runs.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies Migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	for _, stmt := range append([]string{`PRAGMA journal_mode=WAL`, `PRAGMA busy_timeout=5000`}, Migrations()...) {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

func encodeJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Transaction operations

const transactionColumns = `id, user_id, wallet_id, type, amount, category, sub_category, description, date, tags, created_at, updated_at`

func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	now := s.now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	tags, err := encodeJSON(nonNilStrings(tx.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.WalletID, string(tx.Type), tx.Amount, tx.Category, tx.SubCategory,
		tx.Description, formatTime(tx.Date), tags, formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		tx                   model.Transaction
		txType, date, tags   string
		createdAt, updatedAt string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.WalletID, &txType, &tx.Amount, &tx.Category,
		&tx.SubCategory, &tx.Description, &date, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	tx.Type = model.TransactionType(txType)

	var err error
	if tx.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &tx.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if len(tx.Tags) == 0 {
		tx.Tags = nil
	}
	return &tx, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, transactionID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, transactionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, transactionID)
	return err
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*model.Transaction, string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var (
		where []string
		args  []interface{}
	)
	if userID != "" {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if startDate != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*startDate))
	}
	if endDate != nil {
		where = append(where, "date <= ?")
		args = append(args, formatTime(*endDate))
	}
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		where = append(where, "id > ?")
		args = append(args, cursorID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextPageToken string
	if len(result) > int(pageSize) {
		result = result[:pageSize]
		nextPageToken = EncodePageToken(result[pageSize-1].ID)
	}
	return result, nextPageToken, nil
}

// Budget operations

const budgetColumns = `id, user_id, name, target_amount, categories, sub_category, created_at, updated_at`

func (s *SQLiteStore) CreateBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := s.now()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now

	categories, err := encodeJSON(nonNilStrings(budget.Categories))
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		budget.ID, budget.UserID, budget.Name, budget.TargetAmount, categories, budget.SubCategory,
		formatTime(budget.CreatedAt), formatTime(budget.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func scanBudget(row rowScanner) (*model.Budget, error) {
	var (
		b                                model.Budget
		categories, createdAt, updatedAt string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.TargetAmount, &categories, &b.SubCategory, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &b.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return &b, nil
}

func (s *SQLiteStore) GetBudget(ctx context.Context, budgetID string) (*model.Budget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, budgetID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %s: %w", budgetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) DeleteBudget(ctx context.Context, budgetID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, budgetID)
	return err
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, userID string, pageSize int32, pageToken string) ([]*model.Budget, string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	cursorID, err := DecodePageToken(pageToken)
	if err != nil {
		return nil, "", fmt.Errorf("invalid page token: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE (? = '' OR user_id = ?) AND id > ?
		ORDER BY id ASC LIMIT ?`, userID, userID, cursorID, pageSize+1)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var result []*model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan budget: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextPageToken string
	if len(result) > int(pageSize) {
		result = result[:pageSize]
		nextPageToken = EncodePageToken(result[pageSize-1].ID)
	}
	return result, nextPageToken, nil
}

// Wallet operations

func (s *SQLiteStore) CreateWallet(ctx context.Context, wallet *model.Wallet) error {
	if wallet.ID == "" {
		wallet.ID = uuid.New().String()
	}
	now := s.now()
	if wallet.CreatedAt.IsZero() {
		wallet.CreatedAt = now
	}
	wallet.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO wallets (id, user_id, name, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		wallet.ID, wallet.UserID, wallet.Name, wallet.Balance, formatTime(wallet.CreatedAt), formatTime(wallet.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListWallets(ctx context.Context, userID string) ([]*model.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, name, balance, created_at, updated_at
		FROM wallets WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var result []*model.Wallet
	for rows.Next() {
		var (
			w                    model.Wallet
			createdAt, updatedAt string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Balance, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		result = append(result, &w)
	}
	return result, rows.Err()
}

// Notification operations

const notificationColumns = `id, user_id, type, title, message, reference_id, metadata, is_read, created_at`

func (s *SQLiteStore) CreateNotification(ctx context.Context, notification *model.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}

	metadata := notification.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := encodeJSON(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		notification.ID, notification.UserID, string(notification.Type), notification.Title, notification.Message,
		notification.ReferenceID, encoded, notification.IsRead, formatTime(notification.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func scanNotification(row rowScanner) (*model.Notification, error) {
	var (
		n                          model.Notification
		notifType, meta, createdAt string
	)
	if err := row.Scan(&n.ID, &n.UserID, &notifType, &n.Title, &n.Message, &n.ReferenceID, &meta, &n.IsRead, &createdAt); err != nil {
		return nil, err
	}
	n.Type = model.NotificationType(notifType)

	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &n.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(n.Metadata) == 0 {
		n.Metadata = nil
	}
	return &n, nil
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool, pageSize int32, pageToken string) ([]*model.Notification, string, error) {
	if pageSize <= 0 {
		pageSize = 50
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	if pageToken != "" {
		cursorID, err := DecodePageToken(pageToken)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token: %w", err)
		}
		var cursorCreated string
		err = s.db.QueryRowContext(ctx, `SELECT created_at FROM notifications WHERE id = ?`, cursorID).Scan(&cursorCreated)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token document: %w", err)
		}
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, cursorCreated, cursorCreated, cursorID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var result []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan notification: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextPageToken string
	if len(result) > int(pageSize) {
		result = result[:pageSize]
		nextPageToken = EncodePageToken(result[pageSize-1].ID)
	}
	return result, nextPageToken, nil
}

func (s *SQLiteStore) HasNotification(ctx context.Context, userID string, notifType model.NotificationType, referenceID string, metadataKey string, metadataValue string, withinHours int) (bool, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = ? AND type = ? AND reference_id = ?`
	args := []interface{}{userID, string(notifType), referenceID}
	if withinHours > 0 {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(s.now().Add(-time.Duration(withinHours)*time.Hour)))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing notification: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			continue
		}
		if metadataKey == "" || n.Metadata[metadataKey] == metadataValue {
			return true, nil
		}
	}
	return false, rows.Err()
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
