package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/entitlements"
	"github.com/yolotrainer/portal/internal/pkg/security"
	"github.com/yolotrainer/portal/internal/pkg/session"
	"github.com/yolotrainer/portal/internal/pkg/usercontext"
)

// UserContext resolves the caller from a bearer token or the session cookie.
// It never rejects; RequireAuth does that for protected routes.
func UserContext(sessions *session.Manager, tokens *security.AccessTokens, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session during the OAuth dance.
		if strings.HasPrefix(c.Path(), "/auth/oauth/") {
			return c.Next()
		}

		if raw := bearerToken(c); raw != "" {
			claims, err := tokens.Verify(raw)
			if err == nil {
				usercontext.Set(c, usercontext.UserContext{
					UserID: claims.Subject,
					Email:  claims.Email,
					Tier:   entitlements.ParseTier(claims.Tier),
					Via:    usercontext.ViaBearer,
				})
			}
			return c.Next()
		}

		snap, err := sessions.Current(c)
		if err != nil {
			log.Warn("session lookup failed", zap.Error(err))
			return c.Next()
		}
		if snap != nil {
			usercontext.Set(c, usercontext.UserContext{
				UserID: snap.UserID,
				Email:  snap.Email,
				Name:   snap.Name,
				Tier:   snap.Tier,
				Via:    usercontext.ViaSession,
			})
		}
		return c.Next()
	}
}

// RequireAuth rejects anonymous requests with a JSON 401.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	return c.Next()
}

// RequireSession is RequireAuth restricted to cookie sessions; bearer tokens
// cannot mint or refresh other credentials.
func RequireSession(c *fiber.Ctx) error {
	u, ok := usercontext.GetUserContext(c)
	if !ok || u.Via != usercontext.ViaSession {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	return c.Next()
}

func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
