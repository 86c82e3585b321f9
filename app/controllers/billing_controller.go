package controllers

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/billing"
	"github.com/yolotrainer/portal/internal/pkg/usercontext"
)

const (
	msgInvalidPrice      = "Invalid price"
	msgCheckoutFailed    = "Failed to create checkout session"
	msgPortalFailed      = "Failed to create portal session"
	msgNoBillingAccount  = "No billing account found"
	msgInvalidSignature  = "Invalid signature"
	msgWebhookNotReady   = "Webhook secret not configured"
	msgInvalidPayload    = "Invalid payload"
	msgWebhookFailed     = "Webhook handler failed"
	msgSubscriptionFetch = "Failed to load subscription"
)

type BillingController struct {
	bridge     *billing.Bridge
	webhooks   *billing.WebhookProcessor
	reconciler *billing.Reconciler
	log        *zap.Logger
}

func NewBillingController(bridge *billing.Bridge, webhooks *billing.WebhookProcessor, reconciler *billing.Reconciler, log *zap.Logger) *BillingController {
	return &BillingController{bridge: bridge, webhooks: webhooks, reconciler: reconciler, log: log}
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

// HandleCheckout is POST /billing/checkout.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || req.PriceID == "" {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidPrice)
	}

	url, err := bc.bridge.StartCheckout(c.UserContext(), usercontext.GetUserID(c), req.PriceID)
	if errors.Is(err, billing.ErrPriceNotAllowed) {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidPrice)
	}
	if err != nil {
		bc.log.Error("checkout session failed", zap.String("user_id", usercontext.GetUserID(c)), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, msgCheckoutFailed)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandlePortal is POST /billing/portal.
func (bc *BillingController) HandlePortal(c *fiber.Ctx) error {
	url, err := bc.bridge.OpenPortal(c.UserContext(), usercontext.GetUserID(c))
	if errors.Is(err, billing.ErrNoCustomer) {
		return errorJSON(c, fiber.StatusNotFound, msgNoBillingAccount)
	}
	if err != nil {
		bc.log.Error("portal session failed", zap.String("user_id", usercontext.GetUserID(c)), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, msgPortalFailed)
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleSubscription is GET /billing/subscription.
func (bc *BillingController) HandleSubscription(c *fiber.Ctx) error {
	summary, err := bc.reconciler.Summary(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		bc.log.Error("subscription lookup failed", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, msgSubscriptionFetch)
	}
	return c.JSON(summary)
}

// HandleWebhook is POST /billing/webhook. Only signature and payload problems
// are 4xx; anything else is a 500 so the provider retries.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	payload := bytes.Clone(c.Body())
	signature := c.Get("Stripe-Signature")

	out, err := bc.webhooks.Handle(c.UserContext(), payload, signature)
	switch {
	case errors.Is(err, billing.ErrWebhookSecretMissing):
		bc.log.Error("webhook received but no secret is configured")
		return errorJSON(c, fiber.StatusInternalServerError, msgWebhookNotReady)
	case errors.Is(err, billing.ErrInvalidSignature):
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidSignature)
	case errors.Is(err, billing.ErrMalformedEvent):
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidPayload)
	case err != nil:
		bc.log.Error("webhook handling failed", zap.String("event_id", out.EventID), zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, msgWebhookFailed)
	}
	return c.JSON(fiber.Map{"received": true})
}
