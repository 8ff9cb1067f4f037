package utils

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/SscSPs/blog_backend/internal/apperrors"
)

const (
	// MinPasswordLength is the shortest accepted password, in characters.
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit in bytes; longer inputs would be silently truncated.
	MaxPasswordLength = 72
)

// ValidatePasswordPolicy checks a plaintext password against the password policy:
// at least 8 characters, at most 72 bytes once UTF-8 encoded, with a letter and a digit.
// The returned error wraps apperrors.ErrWeakPassword.
func ValidatePasswordPolicy(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", apperrors.ErrWeakPassword, MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: must be at most %d bytes", apperrors.ErrWeakPassword, MaxPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: must contain at least one letter and one number", apperrors.ErrWeakPassword)
	}
	return nil
}
