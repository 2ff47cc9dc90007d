package service

import (
	"context"
	"testing"
	"time"

	"github.com/jwrfree/lemon-beta/internal/auth"
	"github.com/jwrfree/lemon-beta/internal/config"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

// testContext creates a context with authenticated user claims for testing
func testContext(userID string) context.Context {
	return auth.WithUserClaims(context.Background(), &auth.UserClaims{
		UID:         userID,
		Email:       userID + "@test.com",
		DisplayName: "Test User",
		Verified:    true,
	})
}

// newTestService returns a service over a mock store with the clock fixed at now.
func newTestService(t *testing.T, now time.Time) (*InsightService, *store.MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockStore := store.NewMockStore(ctrl)

	svc := NewInsightService(mockStore, config.DefaultConfig().Analytics, zerolog.Nop())
	svc.now = func() time.Time { return now }
	svc.triggers.now = svc.now
	return svc, mockStore
}
