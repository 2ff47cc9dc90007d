package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwrfree/lemon-beta/internal/analytics"
	"github.com/jwrfree/lemon-beta/internal/metrics"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// dedupWindowHours is how long an identical alert is suppressed (30 days).
const dedupWindowHours = 720

// NotificationTrigger turns analyzer output into stored notifications.
// Failures are logged and never surface to the caller.
type NotificationTrigger struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewNotificationTrigger(store store.Store, log zerolog.Logger) *NotificationTrigger {
	return &NotificationTrigger{
		store: store,
		log:   log.With().Str("component", "NotificationTrigger").Logger(),
		now:   time.Now,
	}
}

// BudgetHealthAlert notifies when a budget is over or about to run out.
// Deduplication: one notification per budget and status per 30 days.
func (t *NotificationTrigger) BudgetHealthAlert(ctx context.Context, userID string, budget *model.Budget, stats analytics.BudgetStats) {
	status := stats.HealthStatus
	if status != analytics.HealthOver && status != analytics.HealthCritical {
		return
	}

	exists, err := t.store.HasNotification(ctx, userID, model.NotificationTypeBudgetAlert,
		budget.ID, "status", string(status), dedupWindowHours)
	if err != nil {
		t.log.Warn().Err(err).Str("budget_id", budget.ID).Msg("failed to check for existing budget notification")
		return
	}
	if exists {
		return
	}

	message := fmt.Sprintf("You've exceeded your %s budget by %s.", budget.Name, analytics.FormatAmount(-stats.Remaining))
	if status == analytics.HealthCritical {
		message = fmt.Sprintf("At this pace your %s budget runs out in %s. Try to stay under %s a day.",
			budget.Name, dayCount(stats.DaysToZero), analytics.FormatAmount(stats.SafeDailyLimit))
	}

	t.create(ctx, &model.Notification{
		UserID:      userID,
		Type:        model.NotificationTypeBudgetAlert,
		Title:       fmt.Sprintf("Budget Alert: %s", budget.Name),
		Message:     message,
		ReferenceID: budget.ID,
		Metadata:    map[string]string{"status": string(status)},
	})
}

// SubscriptionInflation notifies about a subscription price increase.
// Deduplication: one notification per merchant and charge date per 30 days.
func (t *NotificationTrigger) SubscriptionInflation(ctx context.Context, userID string, anomaly analytics.SubscriptionAnomaly) {
	if anomaly.Type != analytics.AnomalyInflation {
		return
	}

	merchant := analytics.NormalizeMerchant(anomaly.MerchantName)
	lastDate := anomaly.LastDate.Format("2006-01-02")

	exists, err := t.store.HasNotification(ctx, userID, model.NotificationTypeSubscriptionChange,
		merchant, "lastDate", lastDate, dedupWindowHours)
	if err != nil {
		t.log.Warn().Err(err).Str("merchant", merchant).Msg("failed to check for existing subscription notification")
		return
	}
	if exists {
		return
	}

	name := cases.Title(language.Und).String(merchant)
	t.create(ctx, &model.Notification{
		UserID: userID,
		Type:   model.NotificationTypeSubscriptionChange,
		Title:  fmt.Sprintf("Price increase: %s", name),
		Message: fmt.Sprintf("%s went from %s to %s (+%s).", name,
			analytics.FormatAmount(anomaly.PreviousAmount),
			analytics.FormatAmount(anomaly.CurrentAmount),
			analytics.FormatAmount(anomaly.Difference)),
		ReferenceID: merchant,
		Metadata: map[string]string{
			"lastDate":       lastDate,
			"previousAmount": fmt.Sprintf("%.2f", anomaly.PreviousAmount),
			"currentAmount":  fmt.Sprintf("%.2f", anomaly.CurrentAmount),
		},
	})
}

func (t *NotificationTrigger) create(ctx context.Context, n *model.Notification) {
	n.ID = uuid.New().String()
	n.CreatedAt = t.now()
	if err := t.store.CreateNotification(ctx, n); err != nil {
		t.log.Error().Err(err).Str("type", string(n.Type)).Str("reference_id", n.ReferenceID).
			Msg("failed to create notification")
		return
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	t.log.Debug().Str("type", string(n.Type)).Str("reference_id", n.ReferenceID).Msg("notification created")
}

func dayCount(days float64) string {
	switch {
	case days < 1:
		return "less than a day"
	case days < 2:
		return "1 day"
	}
	return fmt.Sprintf("%.0f days", days)
}
