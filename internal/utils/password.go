package utils

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/retail-pos-core/internal/fault"
)

// MinPasswordLength is the floor enforced by the strength policy.
const MinPasswordLength = 8

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePasswordStrength enforces the minimum policy: length plus
// upper, lower, digit and special character classes.
func ValidatePasswordStrength(plain string) error {
	if len(plain) < MinPasswordLength {
		return fault.Newf(fault.KindValidation, "password must be at least %d characters", MinPasswordLength)
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
		default:
			special = true
		}
	}
	if !upper {
		return fault.New(fault.KindValidation, "password must contain an uppercase letter")
	}
	if !lower {
		return fault.New(fault.KindValidation, "password must contain a lowercase letter")
	}
	if !digit {
		return fault.New(fault.KindValidation, "password must contain a digit")
	}
	if !special {
		return fault.New(fault.KindValidation, "password must contain a special character")
	}
	return nil
}
