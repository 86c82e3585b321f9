package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
)

// Bridge opens provider-hosted checkout and self-service portal sessions.
// It only ever writes the user's customer linkage.
type Bridge struct {
	users     repository.UserRepository
	provider  Provider
	prices    entitlements.PriceMap
	siteURL   string
	trialDays int
	log       *zap.Logger
}

func NewBridge(users repository.UserRepository, provider Provider, prices entitlements.PriceMap, siteURL string, trialDays int, log *zap.Logger) *Bridge {
	return &Bridge{
		users:     users,
		provider:  provider,
		prices:    prices,
		siteURL:   siteURL,
		trialDays: trialDays,
		log:       log,
	}
}

// StartCheckout returns a checkout URL for priceID, creating the provider
// customer on first use.
func (b *Bridge) StartCheckout(ctx context.Context, userID, priceID string) (string, error) {
	if !b.prices.Allowed(priceID) {
		return "", ErrPriceNotAllowed
	}

	customerID, err := b.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := b.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     userID,
		TrialDays:  b.trialDays,
		SuccessURL: b.siteURL + "/billing?success=true",
		CancelURL:  b.siteURL + "/billing?canceled=true",
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}

// OpenPortal returns a management URL for users that already have a customer.
func (b *Bridge) OpenPortal(ctx context.Context, userID string) (string, error) {
	user, err := b.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if user.CustomerID() == "" {
		return "", ErrNoCustomer
	}

	url, err := b.provider.CreatePortalSession(ctx, user.CustomerID(), b.siteURL+"/billing")
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}

func (b *Bridge) ensureCustomer(ctx context.Context, userID string) (string, error) {
	user, err := b.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if id := user.CustomerID(); id != "" {
		return id, nil
	}

	customerID, err := b.provider.CreateCustomer(ctx, CustomerParams{
		Email:  user.Email,
		Name:   user.Name,
		UserID: user.ID,
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	linked, err := b.users.LinkCustomer(ctx, user.ID, customerID)
	if err != nil {
		return "", fmt.Errorf("link customer: %w", err)
	}
	if linked {
		return customerID, nil
	}

	// A concurrent checkout linked a customer first; use that one.
	user, err = b.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("reload user: %w", err)
	}
	if user.CustomerID() == "" {
		return "", errors.New("customer linkage lost")
	}
	b.log.Warn("orphaned billing customer after concurrent checkout",
		zap.String("user_id", user.ID),
		zap.String("orphan_customer_id", customerID),
	)
	return user.CustomerID(), nil
}
