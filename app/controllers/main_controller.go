package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yolotrainer/portal/internal/pkg/cache"
)

type HealthController struct {
	db      *gorm.DB
	cache   *redis.Client
	version string
	log     *zap.Logger
}

// NewHealthController takes an optional cache client.
func NewHealthController(db *gorm.DB, cacheClient *redis.Client, version string, log *zap.Logger) *HealthController {
	return &HealthController{db: db, cache: cacheClient, version: version, log: log}
}

// HandleHealthz is GET /healthz.
func (hc *HealthController) HandleHealthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "ok"}
	healthy := true

	sqlDB, err := hc.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		hc.log.Warn("health check: database unavailable", zap.Error(err))
		checks["database"] = "unavailable"
		healthy = false
	}

	if hc.cache != nil {
		checks["cache"] = "ok"
		if err := cache.Ping(ctx, hc.cache); err != nil {
			hc.log.Warn("health check: cache unavailable", zap.Error(err))
			checks["cache"] = "unavailable"
			healthy = false
		}
	}

	status := fiber.StatusOK
	state := "ok"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":  state,
		"version": hc.version,
		"checks":  checks,
	})
}
