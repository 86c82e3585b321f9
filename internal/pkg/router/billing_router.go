package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yolotrainer/portal/internal/pkg/middleware"
	"github.com/yolotrainer/portal/internal/pkg/ratelimit"
)

type BillingRouter struct {
	d *Dependencies
}

func NewBillingRouter(d *Dependencies) *BillingRouter {
	return &BillingRouter{d: d}
}

func (b BillingRouter) InstallRouter(app *fiber.App) {
	d := b.d

	billing := app.Group("/billing")
	billing.Post("/checkout", d.limit(ratelimit.ActionCheckout), middleware.RequireAuth, d.Billing.HandleCheckout)
	billing.Post("/portal", d.limit(ratelimit.ActionPortal), middleware.RequireAuth, d.Billing.HandlePortal)
	billing.Get("/subscription", d.limit(ratelimit.ActionSubscription), middleware.RequireAuth, d.Billing.HandleSubscription)
	// Provider-originated; authenticated by signature only.
	billing.Post("/webhook", d.limit(ratelimit.ActionWebhook), d.Billing.HandleWebhook)
}
