package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	gravatarBase        = "https://www.gravatar.com/avatar/"
	DefaultGravatarSize = 200
)

// GravatarURL is the fallback avatar for accounts without a provider picture.
// Gravatar accepts SHA-256 of the trimmed, lowercased address.
func GravatarURL(email string, size int) string {
	if size <= 0 || size > 2048 {
		size = DefaultGravatarSize
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("%s%s?s=%d&d=identicon", gravatarBase, hex.EncodeToString(sum[:]), size)
}
