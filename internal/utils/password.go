package utils

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the bcrypt input limit; longer inputs are rejected
// up front instead of being silently truncated.
const MaxPasswordBytes = 72

// ErrWeakPassword is returned by ValidatePassword with a human-readable
// reason attached via errors wrapping at call sites.
var ErrWeakPassword = errors.New("weak password")

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePassword enforces the password policy: 8..72 bytes with at least
// one uppercase letter, one lowercase letter, one digit and one special
// character.  The returned message is safe to surface to the client.
func ValidatePassword(plain string) (string, error) {
	if len(plain) < 8 {
		return "Password must be at least 8 characters long", ErrWeakPassword
	}
	if len(plain) > MaxPasswordBytes {
		return "Password must not exceed 72 bytes", ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter", ErrWeakPassword
	case !lower:
		return "Password must contain at least one lowercase letter", ErrWeakPassword
	case !digit:
		return "Password must contain at least one number", ErrWeakPassword
	case !special:
		return "Password must contain at least one special character", ErrWeakPassword
	}
	return "", nil
}
