package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/database/dbtest"
	"github.com/yolotrainer/portal/internal/pkg/entitlements"
	"github.com/yolotrainer/portal/internal/pkg/mail"
	"github.com/yolotrainer/portal/internal/pkg/mail/mailtest"
	"github.com/yolotrainer/portal/internal/pkg/tokens"
	"github.com/yolotrainer/portal/internal/pkg/validation"
)

type staticTiers map[string]entitlements.Tier

func (s staticTiers) CurrentTier(ctx context.Context, userID string) (entitlements.Tier, error) {
	if t, ok := s[userID]; ok {
		return t, nil
	}
	return entitlements.TierFree, nil
}

type env struct {
	svc   *Service
	repos *repository.Repositories
	mail  *mailtest.Recorder
	tiers staticTiers
	now   time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		repos: repository.NewRepositories(dbtest.New(t)),
		mail:  &mailtest.Recorder{},
		tiers: staticTiers{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.now }
	issuer := tokens.NewIssuer(e.repos.User).WithClock(clock)
	notifier := mail.NewNotifier(e.mail, "https://yolotrainer.com", time.Second, zap.NewNop())
	e.svc = NewService(e.repos.User, e.repos.ProviderAccount, issuer, notifier, e.tiers, zap.NewNop()).WithClock(clock)
	t.Cleanup(e.svc.Drain)
	return e
}

func (e *env) register(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.svc.Register(context.Background(), RegisterInput{
		Name: "Ann", Email: email, Password: "12345678", ConfirmPassword: "12345678",
	})
	require.NoError(t, err)
	return u
}

func (e *env) stored(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := e.repos.User.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func TestRegisterIssuesVerificationToken(t *testing.T) {
	e := newEnv(t)
	e.register(t, " A@X.com ")

	u := e.stored(t, "A@X.com")
	assert.False(t, u.EmailVerified)
	require.NotNil(t, u.VerificationToken)
	assert.Len(t, *u.VerificationToken, 64)
	require.NotNil(t, u.VerificationTokenExpiry)
	assert.WithinDuration(t, e.now.Add(24*time.Hour), *u.VerificationTokenExpiry, time.Second)
	assert.True(t, u.CheckPassword("12345678"))

	msgs := e.mail.To("a@x.com")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "/verify-email?token="+*u.VerificationToken)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.register(t, "a@x.com")

	_, err := e.svc.Register(context.Background(), RegisterInput{
		Name: "Bob", Email: " a@X.COM ", Password: "abcdefgh", ConfirmPassword: "abcdefgh",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Register(context.Background(), RegisterInput{
		Name: "Ann", Email: "a@x.com", Password: "1234567", ConfirmPassword: "1234567",
	})

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "password")
	assert.Empty(t, e.mail.Messages())
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	e := newEnv(t)
	e.mail.Err = errors.New("smtp down")

	e.register(t, "a@x.com")
	assert.NotNil(t, e.stored(t, "a@x.com").VerificationToken)
}

func TestVerifyEmailConsumesOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "a@x.com")
	token := *u.VerificationToken

	verified, err := e.svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.True(t, e.stored(t, "a@x.com").EmailVerified)

	_, err = e.svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, tokens.ErrInvalidOrExpired)
}

func TestVerifyEmailExpired(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "a@x.com")

	e.now = e.now.Add(24*time.Hour + time.Second)
	_, err := e.svc.VerifyEmail(context.Background(), *u.VerificationToken)
	assert.ErrorIs(t, err, tokens.ErrInvalidOrExpired)
	assert.False(t, e.stored(t, "a@x.com").EmailVerified)
}

func TestResendVerification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := e.register(t, "a@x.com")

	require.NoError(t, e.svc.ResendVerification(ctx, "a@x.com"))
	e.svc.Drain()
	require.Len(t, e.mail.To("a@x.com"), 2)

	// The new token replaces the old one.
	_, err := e.svc.VerifyEmail(ctx, *first.VerificationToken)
	assert.ErrorIs(t, err, tokens.ErrInvalidOrExpired)
	_, err = e.svc.VerifyEmail(ctx, *e.stored(t, "a@x.com").VerificationToken)
	require.NoError(t, err)

	require.NoError(t, e.svc.ResendVerification(ctx, "a@x.com"))
	require.NoError(t, e.svc.ResendVerification(ctx, "nobody@x.com"))
	e.svc.Drain()
	assert.Len(t, e.mail.Messages(), 2)
}

func TestPasswordResetFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@x.com")

	require.NoError(t, e.svc.RequestPasswordReset(ctx, "a@x.com"))
	u := e.stored(t, "a@x.com")
	require.NotNil(t, u.ResetToken)
	assert.WithinDuration(t, e.now.Add(time.Hour), *u.ResetTokenExpiry, time.Second)

	in := ResetPasswordInput{Token: *u.ResetToken, Password: "new-password", ConfirmPassword: "new-password"}
	require.NoError(t, e.svc.ResetPassword(ctx, in))
	assert.ErrorIs(t, e.svc.ResetPassword(ctx, in), tokens.ErrInvalidOrExpired)

	_, err := e.svc.AuthenticateWithCredentials(ctx, "a@x.com", "12345678")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	id, err := e.svc.AuthenticateWithCredentials(ctx, "a@x.com", "new-password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
}

func TestPasswordResetExpiresAfterOneHour(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@x.com")
	require.NoError(t, e.svc.RequestPasswordReset(ctx, "a@x.com"))
	token := *e.stored(t, "a@x.com").ResetToken

	e.now = e.now.Add(time.Hour + time.Second)
	err := e.svc.ResetPassword(ctx, ResetPasswordInput{Token: token, Password: "new-password", ConfirmPassword: "new-password"})
	assert.ErrorIs(t, err, tokens.ErrInvalidOrExpired)
}

func TestRequestPasswordResetSkipsUnknownAndFederated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.AuthenticateWithFederatedIdentity(ctx, FederatedIdentity{
		Provider: "github", ProviderUserID: "42", Email: "fed@x.com", Name: "Fed",
	})
	require.NoError(t, err)

	require.NoError(t, e.svc.RequestPasswordReset(ctx, "nobody@x.com"))
	require.NoError(t, e.svc.RequestPasswordReset(ctx, "fed@x.com"))
	e.svc.Drain()
	assert.Empty(t, e.mail.Messages())
	assert.Nil(t, e.stored(t, "fed@x.com").ResetToken)
}

func TestResetPasswordValidation(t *testing.T) {
	e := newEnv(t)
	err := e.svc.ResetPassword(context.Background(), ResetPasswordInput{Token: "x", Password: "12345678", ConfirmPassword: "nope"})

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "confirmPassword")
}

func TestAuthenticateWithCredentials(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "a@x.com")
	e.tiers[u.ID] = entitlements.TierPro

	id, err := e.svc.AuthenticateWithCredentials(ctx, " A@x.com", "12345678")
	require.NoError(t, err)
	assert.Equal(t, entitlements.TierPro, id.Tier)
	assert.Contains(t, id.AvatarURL, "gravatar.com")
	assert.NotNil(t, e.stored(t, "a@x.com").LastLoginAt)

	for _, tc := range []struct{ email, password string }{
		{"a@x.com", "wrong-password"},
		{"nobody@x.com", "12345678"},
	} {
		_, err := e.svc.AuthenticateWithCredentials(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, ErrInvalidCredentials, tc.email)
	}
}

func TestCredentialsRejectedForFederatedOnlyAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.AuthenticateWithFederatedIdentity(ctx, FederatedIdentity{Provider: "google", ProviderUserID: "g1", Email: "fed@x.com"})
	require.NoError(t, err)

	_, err = e.svc.AuthenticateWithCredentials(ctx, "fed@x.com", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFederatedSignInCreatesVerifiedAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.svc.AuthenticateWithFederatedIdentity(ctx, FederatedIdentity{
		Provider: "google", ProviderUserID: "g1", Email: "New@X.com", Name: "", AvatarURL: "https://img/1.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "New@X.com", id.Email)
	assert.Equal(t, "New", id.Name)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "https://img/1.png", id.AvatarURL)
	assert.Equal(t, entitlements.TierFree, id.Tier)

	links, err := e.repos.ProviderAccount.ListByUser(ctx, id.UserID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "google", links[0].Provider)
}

func TestFederatedSignInReusesExistingAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "a@x.com")

	id, err := e.svc.AuthenticateWithFederatedIdentity(ctx, FederatedIdentity{
		Provider: "github", ProviderUserID: "gh-7", Email: "a@x.com", Name: "Ann Lee",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, "Ann Lee", e.stored(t, "a@x.com").Name)
	assert.True(t, e.stored(t, "a@x.com").CheckPassword("12345678"))

	_, err = e.svc.AuthenticateWithFederatedIdentity(ctx, FederatedIdentity{Provider: "github", ProviderUserID: "gh-7", Email: "a@x.com"})
	require.NoError(t, err)
	links, err := e.repos.ProviderAccount.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestFederatedSignInRequiresEmail(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.AuthenticateWithFederatedIdentity(context.Background(), FederatedIdentity{Provider: "github", ProviderUserID: "1"})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestEmailIsCaseSensitiveAsStored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	upper := e.register(t, "Ann@X.com")
	assert.Equal(t, "Ann@X.com", e.stored(t, "Ann@X.com").Email)

	lower := e.register(t, "ann@x.com")
	assert.NotEqual(t, upper.ID, lower.ID)

	_, err := e.repos.User.GetByEmail(ctx, "ANN@X.COM")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	id, err := e.svc.AuthenticateWithCredentials(ctx, "Ann@X.com", "12345678")
	require.NoError(t, err)
	assert.Equal(t, upper.ID, id.UserID)

	_, err = e.svc.AuthenticateWithCredentials(ctx, "ANN@X.COM", "12345678")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.svc.Register(ctx, RegisterInput{Name: "Ann", Email: "Ann@X.com", Password: "12345678", ConfirmPassword: "12345678"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

type tokenWriteFails struct {
	repository.UserRepository
}

func (tokenWriteFails) SetToken(context.Context, string, models.TokenKind, string, time.Time) error {
	return errors.New("connection reset")
}

func TestRegisterStoresTokenWithAccount(t *testing.T) {
	e := newEnv(t)
	users := tokenWriteFails{e.repos.User}
	clock := func() time.Time { return e.now }
	notifier := mail.NewNotifier(e.mail, "https://yolotrainer.com", time.Second, zap.NewNop())
	svc := NewService(users, e.repos.ProviderAccount, tokens.NewIssuer(users).WithClock(clock), notifier, e.tiers, zap.NewNop()).WithClock(clock)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "a@x.com", Password: "12345678", ConfirmPassword: "12345678"})
	require.NoError(t, err)

	stored := e.stored(t, "a@x.com")
	require.NotNil(t, stored.VerificationToken)
	assert.Equal(t, *u.VerificationToken, *stored.VerificationToken)
	require.Len(t, e.mail.To("a@x.com"), 1)

	verified, err := svc.VerifyEmail(ctx, *stored.VerificationToken)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
}

func TestPasswordResetRequestDoesNotWaitForMail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@x.com")
	e.mail.Hold = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- e.svc.RequestPasswordReset(ctx, "a@x.com") }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("RequestPasswordReset blocked on delivery")
	}
	assert.NotNil(t, e.stored(t, "a@x.com").ResetToken)
	assert.Len(t, e.mail.Messages(), 1)

	close(e.mail.Hold)
	e.svc.Drain()
	assert.Len(t, e.mail.To("a@x.com"), 2)
}
