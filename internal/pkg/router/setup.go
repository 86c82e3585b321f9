package router

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/controllers"
	"github.com/yolotrainer/portal/internal/pkg/ratelimit"
	"github.com/yolotrainer/portal/internal/pkg/security"
	"github.com/yolotrainer/portal/internal/pkg/session"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the wired controllers and middleware inputs.
type Dependencies struct {
	Auth    *controllers.AuthController
	OAuth   *controllers.OAuthController
	Billing *controllers.BillingController
	Site    *controllers.SiteController
	Health  *controllers.HealthController

	Sessions *session.Manager
	Tokens   *security.AccessTokens
	Limiter  *ratelimit.Limiter

	// MetricsUser and MetricsPassword guard /metrics and /monitor; empty
	// credentials leave /monitor unmounted.
	MetricsUser     string
	MetricsPassword string
	// DocsPath is the OpenAPI file; empty disables /docs/api.
	DocsPath string

	Log *zap.Logger
}

func (d *Dependencies) limit(action string) fiber.Handler {
	return ratelimit.Middleware(d.Limiter, action, d.Log)
}

func InstallRouter(app *fiber.App, d *Dependencies) {
	// Ops routes first so the user context middleware does not run for them.
	setup(app, NewOpsRouter(d), NewHttpRouter(d), NewBillingRouter(d))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
