// Package tokens issues and consumes the single-use verification and reset tokens
// stored on the user record.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
)

// tokenBytes gives 256 bits of entropy, hex encoded to 64 characters.
const tokenBytes = 32

// ErrInvalidOrExpired covers wrong, expired and already consumed tokens alike.
var ErrInvalidOrExpired = errors.New("invalid or expired token")

// Effect computes the column updates applied together with consuming a token.
// It runs after the token was found live and before the conditional write.
type Effect func(u *models.User) (map[string]interface{}, error)

// Issuer owns token generation, storage and consumption.
type Issuer struct {
	users repository.UserRepository
	now   func() time.Time
}

func NewIssuer(users repository.UserRepository) *Issuer {
	return &Issuer{users: users, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source; used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Prepare returns a fresh token of kind and its expiry without storing it, for
// callers that write it together with the row it belongs to.
func (i *Issuer) Prepare(kind models.TokenKind) (string, time.Time, error) {
	if !kind.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	token, err := Generate()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, i.now().Add(kind.TTL()), nil
}

// Issue stores a fresh token of kind for userID, replacing any previous one,
// and returns the raw token together with its expiry.
func (i *Issuer) Issue(ctx context.Context, kind models.TokenKind, userID string) (string, time.Time, error) {
	token, expiry, err := i.Prepare(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := i.users.SetToken(ctx, userID, kind, token, expiry); err != nil {
		return "", time.Time{}, fmt.Errorf("store %s token: %w", kind, err)
	}
	return token, expiry, nil
}

// ValidateAndConsume finds the user holding a live token of kind, then clears
// the token and applies effect in a single conditional update. Concurrent calls
// with the same token succeed at most once.
func (i *Issuer) ValidateAndConsume(ctx context.Context, kind models.TokenKind, token string, effect Effect) (*models.User, error) {
	if token == "" || !kind.Valid() {
		return nil, ErrInvalidOrExpired
	}
	now := i.now()

	u, err := i.users.FindByLiveToken(ctx, kind, token, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if effect != nil {
		if updates, err = effect(u); err != nil {
			return nil, err
		}
	}

	err = i.users.ConsumeToken(ctx, u.ID, kind, token, now, updates)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidOrExpired
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Generate returns a random hex token.
func Generate() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
