package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
)

// Reconciler applies provider subscription events to the local subscription
// table and answers tier questions from it.
//
// Deliveries may repeat and arrive out of order. Upsert overwrites every mutable
// field, so a stale "updated" that arrives after "deleted" reopens the row with
// the stale status. Provider ordering is relied upon; no per-subscription event
// version is tracked.
type Reconciler struct {
	users  repository.UserRepository
	subs   repository.SubscriptionRepository
	prices entitlements.PriceMap
	log    *zap.Logger
}

func NewReconciler(users repository.UserRepository, subs repository.SubscriptionRepository, prices entitlements.PriceMap, log *zap.Logger) *Reconciler {
	return &Reconciler{users: users, subs: subs, prices: prices, log: log}
}

// Upsert stores the subscription under its provider id. Events for customers
// without a local user are logged and dropped.
func (r *Reconciler) Upsert(ctx context.Context, in SubscriptionEvent) error {
	subID := strings.TrimSpace(in.SubscriptionID)
	if subID == "" {
		return fmt.Errorf("%w: subscription id is required", ErrMalformedEvent)
	}

	user, err := r.users.GetByCustomerID(ctx, strings.TrimSpace(in.CustomerID))
	if errors.Is(err, repository.ErrNotFound) {
		r.log.Warn("subscription event for unknown customer dropped",
			zap.String("subscription_id", subID),
			zap.String("customer_id", in.CustomerID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve customer: %w", err)
	}

	sub := &models.Subscription{
		UserID:                 user.ID,
		ProviderSubscriptionID: subID,
		ProviderPriceID:        strings.TrimSpace(in.PriceID),
		Status:                 strings.TrimSpace(in.Status),
		CurrentPeriodStart:     optionalTime(in.CurrentPeriodStart),
		CurrentPeriodEnd:       optionalTime(in.CurrentPeriodEnd),
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
	}
	if err := r.subs.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	r.log.Info("subscription reconciled",
		zap.String("user_id", user.ID),
		zap.String("subscription_id", subID),
		zap.String("status", sub.Status),
		zap.String("tier", string(r.prices.TierFor(sub.Status, sub.ProviderPriceID))),
	)
	return nil
}

// MarkCanceled sets the row to canceled. A missing row is not an error.
func (r *Reconciler) MarkCanceled(ctx context.Context, subscriptionID string) error {
	found, err := r.subs.MarkCanceled(ctx, strings.TrimSpace(subscriptionID))
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	if !found {
		r.log.Info("cancel for unknown subscription ignored", zap.String("subscription_id", subscriptionID))
	}
	return nil
}

// CurrentSubscription returns the subscription that grants the user's tier, or nil.
func (r *Reconciler) CurrentSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	subs, err := r.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.prices.Current(subs), nil
}

// CurrentTier derives the tier from stored status and price on every call.
func (r *Reconciler) CurrentTier(ctx context.Context, userID string) (entitlements.Tier, error) {
	sub, err := r.CurrentSubscription(ctx, userID)
	if err != nil {
		return entitlements.TierFree, err
	}
	if sub == nil {
		return entitlements.TierFree, nil
	}
	return r.prices.TierFor(sub.Status, sub.ProviderPriceID), nil
}

// Summary describes the user's plan. Without a tier-granting subscription the
// plan is free; a live row whose price is no longer mapped still reports its
// own status and period.
func (r *Reconciler) Summary(ctx context.Context, userID string) (SubscriptionSummary, error) {
	free := SubscriptionSummary{
		Plan:   string(entitlements.TierFree),
		Status: models.SubscriptionStatusActive,
	}

	subs, err := r.subs.ListByUser(ctx, userID)
	if err != nil {
		return free, err
	}
	sub := r.prices.Current(subs)
	if sub == nil {
		sub = latestLive(subs)
	}
	if sub == nil {
		return free, nil
	}

	out := SubscriptionSummary{
		Plan:              string(r.prices.TierFor(sub.Status, sub.ProviderPriceID)),
		Status:            sub.Status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd != nil {
		end := sub.CurrentPeriodEnd.UTC()
		out.CurrentPeriodEnd = &end
	}
	return out, nil
}

// latestLive returns the live row with the latest period end, or nil.
func latestLive(subs []models.Subscription) *models.Subscription {
	var best *models.Subscription
	for i := range subs {
		s := &subs[i]
		if !s.IsLive() {
			continue
		}
		if best == nil || s.PeriodEnd().After(best.PeriodEnd()) {
			best = s
		}
	}
	return best
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
