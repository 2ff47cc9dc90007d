package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jwrfree/lemon-beta/internal/analytics"
	"github.com/jwrfree/lemon-beta/internal/logger"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBudgetHealthAlert(t *testing.T) {
	ctx := context.Background()
	budget := &model.Budget{ID: "b-1", Name: "Makan", TargetAmount: 1_000_000}

	t.Run("healthy statuses are ignored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trigger := NewNotificationTrigger(store.NewMockStore(ctrl), logger.NewWithWriter(&bytes.Buffer{}))

		for _, status := range []analytics.HealthStatus{analytics.HealthStable, analytics.HealthWarning} {
			trigger.BudgetHealthAlert(ctx, "user-123", budget, analytics.BudgetStats{HealthStatus: status})
		}
	})

	t.Run("critical message names the runway", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		trigger := NewNotificationTrigger(mockStore, logger.NewWithWriter(&bytes.Buffer{}))

		mockStore.EXPECT().
			HasNotification(ctx, "user-123", model.NotificationTypeBudgetAlert, "b-1", "status", "critical", 720).
			Return(false, nil)
		mockStore.EXPECT().CreateNotification(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, n *model.Notification) error {
				assert.Equal(t, "At this pace your Makan budget runs out in 2 days. Try to stay under Rp5.000 a day.", n.Message)
				assert.NotEmpty(t, n.ID)
				return nil
			})

		trigger.BudgetHealthAlert(ctx, "user-123", budget, analytics.BudgetStats{
			HealthStatus:   analytics.HealthCritical,
			DaysToZero:     2,
			SafeDailyLimit: 5_000,
		})
	})

	t.Run("store failures are logged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockStore := store.NewMockStore(ctrl)
		var buf bytes.Buffer
		trigger := NewNotificationTrigger(mockStore, logger.NewWithWriter(&buf))

		mockStore.EXPECT().HasNotification(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(false, nil)
		mockStore.EXPECT().CreateNotification(gomock.Any(), gomock.Any()).Return(errors.New("write failed"))

		trigger.BudgetHealthAlert(ctx, "user-123", budget, analytics.BudgetStats{HealthStatus: analytics.HealthOver, Remaining: -1})

		assert.Contains(t, buf.String(), "failed to create notification")
		assert.Contains(t, buf.String(), `"component":"NotificationTrigger"`)
		assert.Contains(t, buf.String(), "write failed")
	})
}

func TestSubscriptionInflation_EndToEndDedup(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	trigger := NewNotificationTrigger(mem, logger.NewWithWriter(&bytes.Buffer{}))

	anomaly := analytics.SubscriptionAnomaly{
		MerchantName:   "spotify family",
		PreviousAmount: 86_000,
		CurrentAmount:  99_000,
		Difference:     13_000,
		Type:           analytics.AnomalyInflation,
		LastDate:       time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
	}

	trigger.SubscriptionInflation(ctx, "user-123", anomaly)
	trigger.SubscriptionInflation(ctx, "user-123", anomaly)

	got, _, err := mem.ListNotifications(ctx, "user-123", false, 10, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Price increase: Spotify Family", got[0].Title)
	assert.Equal(t, "spotify family", got[0].ReferenceID)

	// a later charge at the new price is a different event
	anomaly.LastDate = anomaly.LastDate.AddDate(0, 1, 0)
	trigger.SubscriptionInflation(ctx, "user-123", anomaly)

	got, _, err = mem.ListNotifications(ctx, "user-123", false, 10, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
