package models

import "time"

// TokenKind names one of the single-use security tokens embedded in User.
type TokenKind string

const (
	TokenVerification TokenKind = "verification"
	TokenReset        TokenKind = "reset"
)

// TTL is how long a freshly issued token of this kind stays live.
func (k TokenKind) TTL() time.Duration {
	switch k {
	case TokenReset:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Columns returns the token and expiry column names backing this kind.
func (k TokenKind) Columns() (token, expiry string) {
	switch k {
	case TokenReset:
		return "reset_token", "reset_token_expiry"
	default:
		return "verification_token", "verification_token_expiry"
	}
}

func (k TokenKind) Valid() bool {
	return k == TokenVerification || k == TokenReset
}
