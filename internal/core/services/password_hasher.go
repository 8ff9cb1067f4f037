package services

import (
	"fmt"
	"sync"

	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// passwordHasher implements PasswordHasherSvc with bcrypt.
type passwordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher creates a bcrypt hasher with the given work factor.
// Costs outside bcrypt's accepted range fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) portssvc.PasswordHasherSvc {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &passwordHasher{cost: cost}
}

var _ portssvc.PasswordHasherSvc = (*passwordHasher)(nil)

func (h *passwordHasher) Hash(plaintext string) (string, error) {
	if err := utils.ValidatePasswordPolicy(plaintext); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h *passwordHasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// VerifyDummy compares against a fixed digest of the same cost so a login for an
// unknown email takes as long as one with a wrong password.
func (h *passwordHasher) VerifyDummy(plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-0"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}
