package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
)

var (
	dummyOnce sync.Once
	dummyHash string
)

// compareDummy keeps the unknown-email path as slow as a real comparison.
func compareDummy(password string) {
	dummyOnce.Do(func() { dummyHash, _ = models.HashPassword("not-a-real-password") })
	models.CheckPasswordHash(password, dummyHash)
}

// FederatedIdentity is what a trusted identity provider asserted.
type FederatedIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
}

// AuthenticateWithCredentials checks an email and password pair.
func (s *Service) AuthenticateWithCredentials(ctx context.Context, email, password string) (*Identity, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		compareDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	s.touch(ctx, user.ID)
	return s.identity(ctx, user)
}

// AuthenticateWithFederatedIdentity signs in or creates the account owning
// the asserted email and links the provider identity to it.
func (s *Service) AuthenticateWithFederatedIdentity(ctx context.Context, fi FederatedIdentity) (*Identity, error) {
	email := NormalizeEmail(fi.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidIdentity
	}
	name := strings.TrimSpace(fi.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createFederated(ctx, email, name, fi.AvatarURL)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := s.users.UpdateProfile(ctx, user.ID, name, fi.AvatarURL); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		user.Name = name
		if fi.AvatarURL != "" {
			user.AvatarURL = fi.AvatarURL
		}
	}

	if fi.Provider != "" && fi.ProviderUserID != "" {
		err := s.accounts.Upsert(ctx, &models.ProviderAccount{
			UserID:         user.ID,
			Provider:       fi.Provider,
			ProviderUserID: fi.ProviderUserID,
			Email:          email,
		})
		if err != nil {
			return nil, fmt.Errorf("link provider account: %w", err)
		}
	}

	s.touch(ctx, user.ID)
	return s.identity(ctx, user)
}

func (s *Service) createFederated(ctx context.Context, email, name, avatar string) (*models.User, error) {
	user := &models.User{
		Email:         email,
		Name:          name,
		AvatarURL:     avatar,
		EmailVerified: true,
	}
	err := s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent first sign-in.
		return s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *Service) touch(ctx context.Context, userID string) {
	if err := s.users.TouchLastLogin(ctx, userID, s.now()); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", userID), zap.Error(err))
	}
}
