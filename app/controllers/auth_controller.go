package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/account"
	"github.com/yolotrainer/portal/internal/pkg/hcaptcha"
	"github.com/yolotrainer/portal/internal/pkg/ratelimit"
	"github.com/yolotrainer/portal/internal/pkg/security"
	"github.com/yolotrainer/portal/internal/pkg/session"
	"github.com/yolotrainer/portal/internal/pkg/tokens"
	"github.com/yolotrainer/portal/internal/pkg/usercontext"
	"github.com/yolotrainer/portal/internal/pkg/validation"
)

const (
	msgRegistered      = "Account created. Please check your email to verify your account."
	msgEmailTaken      = "An account with this email already exists"
	msgCaptchaFailed   = "Captcha validation failed. Please try again."
	msgResetRequested  = "If an account exists with that email, you will receive a password reset link."
	msgResendRequested = "If an account exists with that email and is not yet verified, you will receive a new verification link."
	msgPasswordReset   = "Password reset successfully. You can now sign in."
	msgResetInvalid    = "Invalid or expired reset token"
	msgEmailVerified   = "Email verified successfully"
	msgVerifyInvalid   = "Invalid or expired verification token"
	msgBadCredentials  = "Invalid email or password"
	msgSignedOut       = "Signed out"
	msgTokensDisabled  = "Access tokens are not available"
)

type AuthController struct {
	accounts *account.Service
	sessions *session.Manager
	tokens   *security.AccessTokens
	captcha  *hcaptcha.Verifier
	log      *zap.Logger
}

func NewAuthController(accounts *account.Service, sessions *session.Manager, tokens *security.AccessTokens, captcha *hcaptcha.Verifier, log *zap.Logger) *AuthController {
	return &AuthController{accounts: accounts, sessions: sessions, tokens: tokens, captcha: captcha, log: log}
}

type registerRequest struct {
	account.RegisterInput
	HCaptchaToken string `json:"hCaptchaToken"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister is POST /auth/register.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	if err := ac.captcha.Verify(c.UserContext(), req.HCaptchaToken, ratelimit.ClientKey(c)); err != nil {
		ac.log.Info("register captcha rejected", zap.Error(err))
		return errorJSON(c, fiber.StatusBadRequest, msgCaptchaFailed)
	}

	user, err := ac.accounts.Register(c.UserContext(), req.RegisterInput)
	if err != nil {
		if ok, resp := validationJSON(c, err); ok {
			return resp
		}
		if errors.Is(err, account.ErrEmailTaken) {
			return errorJSON(c, fiber.StatusConflict, msgEmailTaken)
		}
		return internalError(c, ac.log, "registration failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": msgRegistered,
		"user": fiber.Map{
			"id":            user.ID,
			"email":         user.Email,
			"name":          user.Name,
			"emailVerified": user.EmailVerified,
		},
	})
}

// HandleForgotPassword is POST /auth/forgot-password. The answer is the same
// whether or not the account exists.
func (ac *AuthController) HandleForgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if err := validation.Struct(req); err != nil {
		if ok, resp := validationJSON(c, err); ok {
			return resp
		}
		return internalError(c, ac.log, "request validation failed", err)
	}

	if err := ac.accounts.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		ac.log.Error("password reset request failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": msgResetRequested})
}

// HandleResetPassword is POST /auth/reset-password.
func (ac *AuthController) HandleResetPassword(c *fiber.Ctx) error {
	var req account.ResetPasswordInput
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	err := ac.accounts.ResetPassword(c.UserContext(), req)
	if err != nil {
		if ok, resp := validationJSON(c, err); ok {
			return resp
		}
		if errors.Is(err, tokens.ErrInvalidOrExpired) {
			return errorJSON(c, fiber.StatusBadRequest, msgResetInvalid)
		}
		return internalError(c, ac.log, "password reset failed", err)
	}
	return c.JSON(fiber.Map{"message": msgPasswordReset})
}

// HandleVerifyEmail is POST /auth/verify-email.
func (ac *AuthController) HandleVerifyEmail(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	_, err := ac.accounts.VerifyEmail(c.UserContext(), req.Token)
	if errors.Is(err, tokens.ErrInvalidOrExpired) {
		return errorJSON(c, fiber.StatusBadRequest, msgVerifyInvalid)
	}
	if err != nil {
		return internalError(c, ac.log, "email verification failed", err)
	}
	return c.JSON(fiber.Map{"message": msgEmailVerified})
}

// HandleResendVerification is POST /auth/resend-verification.
func (ac *AuthController) HandleResendVerification(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if err := validation.Struct(req); err != nil {
		if ok, resp := validationJSON(c, err); ok {
			return resp
		}
		return internalError(c, ac.log, "request validation failed", err)
	}

	if err := ac.accounts.ResendVerification(c.UserContext(), req.Email); err != nil {
		ac.log.Error("resend verification failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": msgResendRequested})
}

// HandleLogin is POST /auth/login.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	id, err := ac.accounts.AuthenticateWithCredentials(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, account.ErrInvalidCredentials) {
		return errorJSON(c, fiber.StatusUnauthorized, msgBadCredentials)
	}
	if err != nil {
		return internalError(c, ac.log, "login failed", err)
	}

	if err := ac.sessions.SignIn(c, id); err != nil {
		return internalError(c, ac.log, "session save failed", err)
	}
	return c.JSON(fiber.Map{"user": id})
}

// HandleLogout is POST /auth/logout.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := ac.sessions.SignOut(c); err != nil {
		return internalError(c, ac.log, "logout failed", err)
	}
	return c.JSON(fiber.Map{"message": msgSignedOut})
}

// HandleSession is GET /auth/session. It returns the stored snapshot without
// touching billing.
func (ac *AuthController) HandleSession(c *fiber.Ctx) error {
	snap, err := ac.sessions.Current(c)
	if err != nil {
		return internalError(c, ac.log, "session lookup failed", err)
	}
	if snap == nil {
		return errorJSON(c, fiber.StatusUnauthorized, msgUnauthorized)
	}
	return c.JSON(fiber.Map{"user": snap})
}

// HandleSessionRefresh is POST /auth/session/refresh, called after returning
// from checkout or the billing portal.
func (ac *AuthController) HandleSessionRefresh(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	id, err := ac.accounts.Identity(c.UserContext(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		_ = ac.sessions.SignOut(c)
		return errorJSON(c, fiber.StatusUnauthorized, msgUnauthorized)
	}
	if err != nil {
		return internalError(c, ac.log, "session refresh failed", err)
	}

	if err := ac.sessions.Refresh(c, id); err != nil {
		return internalError(c, ac.log, "session save failed", err)
	}
	return c.JSON(fiber.Map{"user": id})
}

// HandleAccessToken is POST /auth/token.
func (ac *AuthController) HandleAccessToken(c *fiber.Ctx) error {
	if !ac.tokens.Enabled() {
		return errorJSON(c, fiber.StatusServiceUnavailable, msgTokensDisabled)
	}
	u, _ := usercontext.GetUserContext(c)

	tier, err := ac.accounts.CurrentTier(c.UserContext(), u.UserID)
	if err != nil {
		return internalError(c, ac.log, "tier lookup failed", err)
	}
	raw, expires, err := ac.tokens.Issue(u.UserID, u.Email, tier)
	if err != nil {
		return internalError(c, ac.log, "access token failed", err)
	}
	return c.JSON(fiber.Map{
		"accessToken": raw,
		"tokenType":   "Bearer",
		"expiresAt":   expires.UTC(),
		"tier":        tier,
	})
}
