// Package security issues and verifies the short-lived bearer tokens handed
// to the desktop trainer.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yolotrainer/portal/internal/pkg/entitlements"
)

const (
	DefaultAccessTokenTTL = time.Hour
	tokenIssuer           = "yolotrainer-portal"
)

var (
	ErrSecretMissing = errors.New("secret is required for access tokens")
	ErrInvalidToken  = errors.New("invalid access token")
)

// AccessClaims carry the identity and the tier computed at mint time.
type AccessClaims struct {
	Email string `json:"email"`
	Tier  string `json:"tier"`
	jwt.RegisteredClaims
}

type AccessTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAccessTokens(secret string, ttl time.Duration) *AccessTokens {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &AccessTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (a *AccessTokens) WithClock(now func() time.Time) *AccessTokens {
	a.now = now
	return a
}

// Enabled is false when no signing secret was configured.
func (a *AccessTokens) Enabled() bool { return len(a.secret) > 0 }

// Issue signs an HS256 token for userID.
func (a *AccessTokens) Issue(userID, email string, tier entitlements.Tier) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrSecretMissing
	}
	now := a.now()
	expires := now.Add(a.ttl)
	claims := AccessClaims{
		Email: email,
		Tier:  string(tier),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses raw and checks signature, algorithm, issuer and expiry.
func (a *AccessTokens) Verify(raw string) (*AccessClaims, error) {
	if !a.Enabled() {
		return nil, ErrSecretMissing
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
