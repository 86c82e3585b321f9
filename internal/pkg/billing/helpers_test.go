package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/database/dbtest"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
)

const testWebhookSecret = "whsec_test"

type fixture struct {
	repos      *repository.Repositories
	prices     entitlements.PriceMap
	reconciler *Reconciler
	processor  *WebhookProcessor
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := repository.NewRepositories(dbtest.New(t))
	prices := entitlements.NewPriceMap([]string{"price_pro_123"}, []string{"price_ent_456"})
	rec := NewReconciler(repos.User, repos.Subscription, prices, zap.NewNop())
	now := time.Unix(1_760_000_000, 0)
	proc := NewWebhookProcessor(rec, repos.WebhookEvent, testWebhookSecret, zap.NewNop()).
		WithClock(func() time.Time { return now })
	return &fixture{repos: repos, prices: prices, reconciler: rec, processor: proc, now: now}
}

// customer creates a user linked to customerID.
func (f *fixture) customer(t *testing.T, email, customerID string) *models.User {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Email: email, Name: "Customer"}
	require.NoError(t, f.repos.User.Create(ctx, u))
	linked, err := f.repos.User.LinkCustomer(ctx, u.ID, customerID)
	require.NoError(t, err)
	require.True(t, linked)
	return u
}

type subPayload struct {
	eventID, eventType string
	subID, customerID  string
	priceID, status    string
	cancelAtPeriodEnd  bool
	periodStart        int64
	periodEnd          int64
}

func (p subPayload) json() []byte {
	obj := map[string]interface{}{
		"id":                   p.subID,
		"object":               "subscription",
		"customer":             p.customerID,
		"status":               p.status,
		"cancel_at_period_end": p.cancelAtPeriodEnd,
		"items": map[string]interface{}{
			"data": []interface{}{map[string]interface{}{
				"price":                map[string]string{"id": p.priceID},
				"current_period_start": p.periodStart,
				"current_period_end":   p.periodEnd,
			}},
		},
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"id":   p.eventID,
		"type": p.eventType,
		"data": map[string]interface{}{"object": obj},
	})
	return raw
}

func (f *fixture) deliver(t *testing.T, payload []byte) (WebhookOutcome, error) {
	t.Helper()
	return f.processor.Handle(context.Background(), payload, SignPayload(payload, testWebhookSecret, f.now))
}

func eventID(n int) string { return fmt.Sprintf("evt_%d", n) }
