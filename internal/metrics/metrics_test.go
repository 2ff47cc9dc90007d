package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "ok", CodeOf(nil))
	assert.Equal(t, "not_found", CodeOf(connect.NewError(connect.CodeNotFound, errors.New("missing"))))
	assert.Equal(t, "unknown", CodeOf(errors.New("plain")))
}

func TestInterceptor(t *testing.T) {
	fail := connect.UnaryFunc(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("bad"))
	})

	_, err := Interceptor()(fail)(context.Background(), connect.NewRequest(&struct{}{}))
	require.Error(t, err)

	body := scrape(t)
	assert.Contains(t, body, `lemon_rpc_requests_total{code="invalid_argument"`)
	assert.Contains(t, body, "lemon_rpc_duration_seconds_bucket")
}

func TestHandler(t *testing.T) {
	BudgetHealth.WithLabelValues("stable").Inc()
	NotificationsCreated.WithLabelValues("budget_alert").Inc()

	body := scrape(t)
	assert.Contains(t, body, `lemon_analytics_budget_health_total{status="stable"}`)
	assert.Contains(t, body, "lemon_analytics_subscription_anomalies_total")
	assert.Contains(t, body, `lemon_notifications_created_total{type="budget_alert"}`)
}
