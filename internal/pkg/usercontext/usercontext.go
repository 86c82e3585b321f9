package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yolotrainer/portal/internal/pkg/entitlements"
)

const localsKey = "USER_CONTEXT"

// How the request was authenticated.
const (
	ViaSession = "session"
	ViaBearer  = "bearer"
)

// UserContext represents the authenticated caller of a request
type UserContext struct {
	UserID string            `json:"id"`
	Email  string            `json:"email"`
	Name   string            `json:"name"`
	Tier   entitlements.Tier `json:"tier"`
	Via    string            `json:"via"`
}

func Set(c *fiber.Ctx, u UserContext) {
	c.Locals(localsKey, u)
}

// GetUserContext returns the caller and whether the request is authenticated.
func GetUserContext(c *fiber.Ctx) (UserContext, bool) {
	u, ok := c.Locals(localsKey).(UserContext)
	if !ok || u.UserID == "" {
		return UserContext{}, false
	}
	return u, true
}

// IsLoggedIn checks if the current request carries a user
func IsLoggedIn(c *fiber.Ctx) bool {
	_, ok := GetUserContext(c)
	return ok
}

// GetUserID returns the current user's ID, or "" if anonymous
func GetUserID(c *fiber.Ctx) string {
	u, _ := GetUserContext(c)
	return u.UserID
}
