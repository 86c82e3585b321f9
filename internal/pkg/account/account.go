// Package account implements registration, email verification, password
// reset and sign-in on top of the credential store.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
	"github.com/yolotrainer/portal/internal/pkg/mail"
	"github.com/yolotrainer/portal/internal/pkg/metrics"
	"github.com/yolotrainer/portal/internal/pkg/tokens"
	"github.com/yolotrainer/portal/internal/pkg/utils"
)

var (
	ErrEmailTaken = errors.New("an account with this email already exists")
	// ErrInvalidCredentials does not say whether the email, the password or
	// the sign-in method was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidIdentity    = errors.New("federated identity without email")
)

// Notifier delivers templated mail.
type Notifier interface {
	Send(ctx context.Context, to string, kind mail.Kind, params mail.Params) error
}

// TierSource answers the current entitlement tier of a user.
type TierSource interface {
	CurrentTier(ctx context.Context, userID string) (entitlements.Tier, error)
}

// Identity is the authenticated view of a user, including a tier snapshot.
type Identity struct {
	UserID        string            `json:"id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	AvatarURL     string            `json:"image"`
	EmailVerified bool              `json:"emailVerified"`
	Tier          entitlements.Tier `json:"tier"`
}

type Service struct {
	users    repository.UserRepository
	accounts repository.ProviderAccountRepository
	tokens   *tokens.Issuer
	notifier Notifier
	tiers    TierSource
	log      *zap.Logger
	now      func() time.Time
	pending  sync.WaitGroup
}

func NewService(
	users repository.UserRepository,
	accounts repository.ProviderAccountRepository,
	issuer *tokens.Issuer,
	notifier Notifier,
	tiers TierSource,
	log *zap.Logger,
) *Service {
	return &Service{
		users:    users,
		accounts: accounts,
		tokens:   issuer,
		notifier: notifier,
		tiers:    tiers,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CurrentTier is recomputed from the subscription table on every call.
func (s *Service) CurrentTier(ctx context.Context, userID string) (entitlements.Tier, error) {
	return s.tiers.CurrentTier(ctx, userID)
}

// Identity loads userID and snapshots its current tier.
func (s *Service) Identity(ctx context.Context, userID string) (*Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.identity(ctx, user)
}

func (s *Service) identity(ctx context.Context, u *models.User) (*Identity, error) {
	tier, err := s.tiers.CurrentTier(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	avatar := u.AvatarURL
	if avatar == "" {
		avatar = utils.GravatarURL(u.Email, utils.DefaultGravatarSize)
	}
	return &Identity{
		UserID:        u.ID,
		Email:         u.Email,
		Name:          u.Name,
		AvatarURL:     avatar,
		EmailVerified: u.EmailVerified,
		Tier:          tier,
	}, nil
}

// notify sends kind to u. Failures are logged and counted, never returned:
// the token stays stored and the user can ask for a new one.
func (s *Service) notify(ctx context.Context, u *models.User, kind mail.Kind, token string) {
	err := s.notifier.Send(ctx, u.Email, kind, mail.Params{"name": u.Name, "token": token})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues(string(kind)).Inc()
		s.log.Warn("notification not delivered",
			zap.String("kind", string(kind)),
			zap.String("user_id", u.ID),
			zap.Error(err),
		)
	}
}

// notifyDetached sends in the background so the caller's latency does not
// depend on whether a message went out. The send keeps the request's values
// but not its cancellation; the notifier bounds it with its own timeout.
func (s *Service) notifyDetached(ctx context.Context, u *models.User, kind mail.Kind, token string) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.notify(ctx, u, kind, token)
	}()
}

// Drain blocks until every background notification has finished.
func (s *Service) Drain() {
	s.pending.Wait()
}

// NormalizeEmail trims surrounding whitespace. Case is kept: addresses are
// stored and matched exactly as submitted.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
