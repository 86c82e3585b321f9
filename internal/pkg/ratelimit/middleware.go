package ratelimit

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/metrics"
)

// TooManyRequestsMessage is the single body used for every throttled request.
const TooManyRequestsMessage = "Too many requests. Please try again later."

// ClientKey derives the caller address: first X-Forwarded-For entry, then
// X-Real-IP, then the direct peer.
func ClientKey(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

// Middleware guards a route with the policy of action. Store failures let the
// request through and are logged.
func Middleware(l *Limiter, action string, log *zap.Logger) fiber.Handler {
	policy, ok := l.Policy(action)
	if !ok {
		log.Warn("route has no rate limit policy", zap.String("action", action))
	}
	limit := strconv.Itoa(policy.Points)

	return func(c *fiber.Ctx) error {
		res, err := l.Check(c.UserContext(), action, ClientKey(c))
		if err != nil {
			log.Error("rate limit check failed", zap.String("action", action), zap.Error(err))
			return c.Next()
		}
		c.Set("X-RateLimit-Limit", limit)
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			metrics.RateLimited.WithLabelValues(action).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(res.RetryAfter.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": TooManyRequestsMessage})
		}
		return c.Next()
	}
}
