package utils

import (
	"strings"
	"testing"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"letters and digits", "Passw0rd", true},
		{"with symbols", "correct horse 9!", true},
		{"unicode letters", "pässwört1", true},
		{"exactly 72 bytes", strings.Repeat("a", 71) + "1", true},
		{"too short", "Pass1", false},
		{"seven multibyte characters", strings.Repeat("ä", 6) + "1", false},
		{"eight multibyte characters", strings.Repeat("ä", 7) + "1", true},
		{"36 two-byte characters overflow bcrypt", strings.Repeat("ä", 36) + "1", false},
		{"too long", strings.Repeat("a", 72) + "1", false},
		{"no digit", "Password", false},
		{"no letter", "12345678", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordPolicy(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrWeakPassword)
			}
		})
	}
}
