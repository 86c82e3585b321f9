// Package cache connects to the shared Redis/Dragonfly instance used for
// sessions and distributed rate-limit counters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/internal/pkg/config"
)

// Databases on the shared instance, one per concern.
const (
	DBRateLimit = 0
	DBSessions  = 1
	DBOAuth     = 2
)

func Addr(cfg config.Cache) string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// NewClient opens a client on db and checks the connection once.
// The client is returned even when the ping fails so callers can decide.
func NewClient(cfg config.Cache, db int, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     Addr(cfg),
		Password: cfg.Password,
		DB:       db,
	})

	if err := Ping(context.Background(), client); err != nil {
		log.Warn("could not connect to cache", zap.String("addr", Addr(cfg)), zap.Error(err))
		return client, err
	}
	log.Info("connected to cache", zap.String("addr", Addr(cfg)), zap.Int("db", db))
	return client, nil
}

// Ping checks the connection with a short timeout.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
