package user

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"
)

const usernameSuffixDigits = 4

// DeriveUsername builds a username from a display name: lowercased, with
// everything but ASCII letters and digits removed, followed by random digits.
// Callers retry with a fresh call when the result collides.
func DeriveUsername(displayName string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(displayName) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	if limit := MaxUsernameLen - usernameSuffixDigits; len(base) > limit {
		base = base[:limit]
	}

	suffix, err := randomDigits(usernameSuffixDigits)
	if err != nil {
		return "", err
	}
	return base + suffix, nil
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	ten := big.NewInt(10)
	for i := range digits {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
