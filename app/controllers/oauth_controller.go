package controllers

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/account"
	"github.com/yolotrainer/portal/internal/pkg/flash"
	"github.com/yolotrainer/portal/internal/pkg/session"
)

const msgOAuthFailed = "Sign-in with your provider failed. Please try again."

type OAuthController struct {
	accounts  *account.Service
	sessions  *session.Manager
	providers map[string]bool
	siteURL   string
	log       *zap.Logger
}

func NewOAuthController(accounts *account.Service, sessions *session.Manager, providers []string, siteURL string, log *zap.Logger) *OAuthController {
	enabled := make(map[string]bool, len(providers))
	for _, p := range providers {
		enabled[p] = true
	}
	return &OAuthController{accounts: accounts, sessions: sessions, providers: enabled, siteURL: siteURL, log: log}
}

func (oc *OAuthController) fail(c *fiber.Ctx) error {
	return flash.RedirectError(c, oc.siteURL+"/login", msgOAuthFailed)
}

// HandleBegin is GET /auth/oauth/:provider.
func (oc *OAuthController) HandleBegin(c *fiber.Ctx) error {
	if !oc.providers[c.Params("provider")] {
		return oc.fail(c)
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleCallback completes the provider flow and signs the user in
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	if !oc.providers[provider] {
		return oc.fail(c)
	}

	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		oc.log.Warn("oauth completion failed", zap.String("provider", provider), zap.Error(err))
		return oc.fail(c)
	}

	id, err := oc.accounts.AuthenticateWithFederatedIdentity(c.UserContext(), account.FederatedIdentity{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          u.Email,
		Name:           firstNonEmpty(u.Name, u.NickName),
		AvatarURL:      u.AvatarURL,
	})
	if err != nil {
		oc.log.Warn("federated sign-in rejected", zap.String("provider", provider), zap.Error(err))
		return oc.fail(c)
	}

	if err := oc.sessions.SignIn(c, id); err != nil {
		oc.log.Error("session save failed", zap.Error(err))
		return oc.fail(c)
	}
	return flash.RedirectSuccess(c, oc.siteURL+"/billing", "Signed in as "+id.Email)
}
