package util

import (
	"crypto/rand"
	"encoding/hex"
	mathrand "math/rand/v2"
	"strings"
)

// GenerateSessionToken generates a cryptographically random token suitable
// for admin dashboard session links.
func GenerateSessionToken() string {
	buf := make([]byte, 24)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// GenerateRandomAlphaNumeric generates a random alphanumeric string of the
// specified length. Uses math/rand/v2; not for secrets.
func GenerateRandomAlphaNumeric(length int) string {
	if length <= 0 {
		return ""
	}

	const chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(chars[mathrand.IntN(len(chars))])
	}

	return builder.String()
}
