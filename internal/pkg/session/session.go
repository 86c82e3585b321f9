// Package session keeps the signed-in identity and its tier snapshot in a
// Fiber session, backed by Redis when a cache is configured.
package session

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/yolotrainer/portal/internal/pkg/account"
	"github.com/yolotrainer/portal/internal/pkg/cache"
	"github.com/yolotrainer/portal/internal/pkg/config"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
)

const (
	CookieName = "portal_session"

	keyUserID        = "user_id"
	keyEmail         = "email"
	keyName          = "name"
	keyImage         = "image"
	keyEmailVerified = "email_verified"
	keyTier          = "tier"
	keyTierAt        = "tier_at"
)

// Snapshot is what a session remembers about its user. Tier may lag behind
// billing until the next refresh.
type Snapshot struct {
	UserID        string            `json:"id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	Image         string            `json:"image"`
	EmailVerified bool              `json:"emailVerified"`
	Tier          entitlements.Tier `json:"tier"`
	TierCheckedAt time.Time         `json:"tierCheckedAt"`
}

// Manager wraps the session store with typed accessors.
type Manager struct {
	store *session.Store
	now   func() time.Time
}

// NewManager builds the store from cfg. Without a cache host sessions live in
// process memory.
func NewManager(cfg *config.Config) *Manager {
	sc := session.Config{
		Expiration:     cfg.SessionTTL,
		KeyLookup:      "cookie:" + CookieName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !cfg.IsDev(),
	}
	if cfg.Cache.Enabled() {
		sc.Storage = redis.New(redis.Config{
			Host:     cfg.Cache.Host,
			Port:     cfg.Cache.Port,
			Password: cfg.Cache.Password,
			Database: cache.DBSessions,
			Reset:    false,
		})
	}
	return NewManagerWithStore(session.New(sc))
}

func NewManagerWithStore(store *session.Store) *Manager {
	return &Manager{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// SignIn starts a fresh session for id, dropping any previous session id.
func (m *Manager) SignIn(c *fiber.Ctx, id *account.Identity) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}

	sess.Set(keyUserID, id.UserID)
	sess.Set(keyEmail, id.Email)
	sess.Set(keyName, id.Name)
	sess.Set(keyImage, id.AvatarURL)
	sess.Set(keyEmailVerified, id.EmailVerified)
	sess.Set(keyTier, string(id.Tier))
	sess.Set(keyTierAt, m.now().Unix())
	return sess.Save()
}

// Current returns the snapshot stored in the request's session, or nil when
// the request is anonymous.
func (m *Manager) Current(c *fiber.Ctx) (*Snapshot, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	userID, _ := sess.Get(keyUserID).(string)
	if userID == "" {
		return nil, nil
	}
	snap := &Snapshot{
		UserID: userID,
		Email:  getString(sess, keyEmail),
		Name:   getString(sess, keyName),
		Image:  getString(sess, keyImage),
		Tier:   entitlements.ParseTier(getString(sess, keyTier)),
	}
	if v, ok := sess.Get(keyEmailVerified).(bool); ok {
		snap.EmailVerified = v
	}
	if v, ok := sess.Get(keyTierAt).(int64); ok {
		snap.TierCheckedAt = time.Unix(v, 0).UTC()
	}
	return snap, nil
}

// Refresh rewrites the identity and tier snapshot of the current session.
func (m *Manager) Refresh(c *fiber.Ctx, id *account.Identity) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	sess.Set(keyEmail, id.Email)
	sess.Set(keyName, id.Name)
	sess.Set(keyImage, id.AvatarURL)
	sess.Set(keyEmailVerified, id.EmailVerified)
	sess.Set(keyTier, string(id.Tier))
	sess.Set(keyTierAt, m.now().Unix())
	return sess.Save()
}

// SignOut destroys the session. Anonymous requests are a no-op.
func (m *Manager) SignOut(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	return sess.Destroy()
}

func getString(sess *session.Session, key string) string {
	v, _ := sess.Get(key).(string)
	return v
}
