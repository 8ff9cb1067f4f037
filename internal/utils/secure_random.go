package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// GenerateSecureRandomString returns lengthInBytes random bytes, hex encoded.
// lengthInBytes=32 gives a 64-character string.
func GenerateSecureRandomString(lengthInBytes int) (string, error) {
	if lengthInBytes <= 0 {
		return "", fmt.Errorf("lengthInBytes must be positive")
	}
	b := make([]byte, lengthInBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateTokenSecrets returns an access and a refresh signing secret of
// lengthInBytes each. The two are guaranteed to differ.
func GenerateTokenSecrets(lengthInBytes int) (access, refresh string, err error) {
	if access, err = GenerateSecureRandomString(lengthInBytes); err != nil {
		return "", "", fmt.Errorf("access secret: %w", err)
	}
	if refresh, err = GenerateSecureRandomString(lengthInBytes); err != nil {
		return "", "", fmt.Errorf("refresh secret: %w", err)
	}
	if access == refresh {
		return "", "", errors.New("random source returned identical secrets")
	}
	return access, refresh, nil
}
