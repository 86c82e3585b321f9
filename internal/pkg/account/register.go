package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/mail"
	"github.com/yolotrainer/portal/internal/pkg/metrics"
	"github.com/yolotrainer/portal/internal/pkg/tokens"
	"github.com/yolotrainer/portal/internal/pkg/validation"
)

type RegisterInput struct {
	Name            string `json:"name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type ResetPasswordInput struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Register creates an unverified credentials account and mails a
// verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	token, expiry, err := s.tokens.Prepare(models.TokenVerification)
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}

	// The account and its first token are one insert: a failure leaves nothing behind.
	user := &models.User{
		Email:                   in.Email,
		Name:                    in.Name,
		PasswordHash:            &hash,
		VerificationToken:       &token,
		VerificationTokenExpiry: &expiry,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.Registrations.Inc()

	s.notify(ctx, user, mail.KindVerifyEmail, token)
	return user, nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	user, err := s.tokens.ValidateAndConsume(ctx, models.TokenVerification, token, func(*models.User) (map[string]interface{}, error) {
		return map[string]interface{}{"email_verified": true}, nil
	})
	if err != nil {
		return nil, err
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpiry = nil
	return user, nil
}

// ResendVerification issues a fresh verification token for an existing
// unverified account. Unknown or verified addresses are silently ignored.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}

	token, _, err := s.tokens.Issue(ctx, models.TokenVerification, user.ID)
	if err != nil {
		return err
	}
	s.notifyDetached(ctx, user, mail.KindVerifyEmail, token)
	return nil
}

// RequestPasswordReset mails a reset link when the address belongs to an
// account with a password. The caller learns nothing about which case applied.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return nil
	}

	token, _, err := s.tokens.Issue(ctx, models.TokenReset, user.ID)
	if err != nil {
		return err
	}
	s.notifyDetached(ctx, user, mail.KindResetPassword, token)
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash in
// the same conditional update.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	_, err := s.tokens.ValidateAndConsume(ctx, models.TokenReset, in.Token, func(*models.User) (map[string]interface{}, error) {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"password_hash": hash}, nil
	})
	if errors.Is(err, tokens.ErrInvalidOrExpired) {
		return err
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := models.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", validation.Field("password", "Must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
