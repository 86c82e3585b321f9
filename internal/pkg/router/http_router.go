package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yolotrainer/portal/internal/pkg/middleware"
	"github.com/yolotrainer/portal/internal/pkg/ratelimit"
)

type HttpRouter struct {
	d *Dependencies
}

func NewHttpRouter(d *Dependencies) *HttpRouter {
	return &HttpRouter{d: d}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	d := h.d

	// Apply UserContext middleware globally before any account route
	app.Use(middleware.UserContext(d.Sessions, d.Tokens, d.Log))

	auth := app.Group("/auth")
	auth.Post("/register", d.limit(ratelimit.ActionRegister), d.Auth.HandleRegister)
	auth.Post("/login", d.limit(ratelimit.ActionLogin), d.Auth.HandleLogin)
	auth.Post("/logout", d.limit(ratelimit.ActionSession), d.Auth.HandleLogout)
	auth.Post("/forgot-password", d.limit(ratelimit.ActionForgotPassword), d.Auth.HandleForgotPassword)
	auth.Post("/reset-password", d.limit(ratelimit.ActionResetPassword), d.Auth.HandleResetPassword)
	auth.Post("/verify-email", d.limit(ratelimit.ActionVerifyEmail), d.Auth.HandleVerifyEmail)
	auth.Post("/resend-verification", d.limit(ratelimit.ActionResendVerification), d.Auth.HandleResendVerification)

	auth.Get("/session", d.limit(ratelimit.ActionSession), d.Auth.HandleSession)
	auth.Post("/session/refresh", d.limit(ratelimit.ActionSession), middleware.RequireSession, d.Auth.HandleSessionRefresh)
	auth.Post("/token", d.limit(ratelimit.ActionSession), middleware.RequireSession, d.Auth.HandleAccessToken)

	auth.Get("/oauth/:provider", d.limit(ratelimit.ActionLogin), d.OAuth.HandleBegin)
	auth.Get("/oauth/:provider/callback", d.limit(ratelimit.ActionLogin), d.OAuth.HandleCallback)

	app.Post("/contact", d.limit(ratelimit.ActionContact), d.Site.HandleContact)
	app.Post("/newsletter", d.limit(ratelimit.ActionNewsletter), d.Site.HandleNewsletter)
}
