package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmulatorStore connects to the Firestore emulator. Each call uses its own
// project so collections start empty.
func newEmulatorStore(t *testing.T) Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	project := "lemon-test-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	client, err := firestore.NewClient(context.Background(), project)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewFirestoreStore(client)
}

func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	testStore(t, newEmulatorStore)
}

func TestFirestoreStore_MissingDocuments(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	_, err := s.GetTransaction(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetBudget(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirestoreStore_DatesKeepTheirInstant(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	wib := time.FixedZone("WIB", 7*60*60)
	date := time.Date(2026, 10, 24, 8, 0, 0, 0, wib)
	tx := &model.Transaction{
		UserID:      "user-1",
		Type:        model.TransactionTypeExpense,
		Amount:      25_000,
		Category:    "Food",
		Description: "Kopi Susu",
		Date:        date,
	}
	require.NoError(t, s.CreateTransaction(ctx, tx))

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, date.Equal(got.Date), "got %s", got.Date)
}
