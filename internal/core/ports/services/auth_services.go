package services

import (
	"context"
	"time"

	"github.com/SscSPs/blog_backend/internal/core/domain"
	"github.com/SscSPs/blog_backend/internal/dto"
)

// PasswordHasherSvc turns plaintext passwords into stored digests and checks them.
type PasswordHasherSvc interface {
	// Hash enforces the password policy and returns a bcrypt digest.
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. It never returns an error;
	// malformed digests simply do not match.
	Verify(plaintext, digest string) bool
	// VerifyDummy burns the cost of one comparison for logins against unknown accounts.
	VerifyDummy(plaintext string)
}

// TokenSvcFacade defines the interface for token management services.
type TokenSvcFacade interface {
	IssueAccessToken(user *domain.User) (string, time.Time, error)
	IssueRefreshToken(user *domain.User) (string, time.Time, error)
	// IssuePair issues both tokens at once.
	IssuePair(user *domain.User) (domain.TokenPair, error)
	// VerifyAccessToken checks signature and expiry only. The caller decides whether
	// the subject still exists.
	VerifyAccessToken(token string) (*domain.AccessClaims, error)
	// ParseRefreshToken checks signature and expiry and returns the subject.
	ParseRefreshToken(token string) (*domain.RefreshClaims, error)
	// VerifyRefreshToken additionally requires the token to match storedHash.
	VerifyRefreshToken(token string, storedHash *string) (*domain.RefreshClaims, error)
	// Rotate replaces the user's stored refresh token with a freshly issued one.
	// Only one of two concurrent rotations with the same token succeeds.
	Rotate(ctx context.Context, user *domain.User, presented string) (domain.TokenPair, error)
}

// LockoutSvc tracks failed logins and the temporary lock they trigger.
type LockoutSvc interface {
	// Check fails with apperrors.ErrAccountLocked while the lock window is open.
	Check(user *domain.User, now time.Time) error
	// RegisterFailure records one failed attempt and returns the resulting state.
	RegisterFailure(ctx context.Context, user *domain.User, now time.Time) (*domain.LockoutState, error)
	// ResetFields returns the update that clears the counter and any lock.
	ResetFields(update domain.UserUpdate) domain.UserUpdate
}

// SessionSvcFacade orchestrates the login, refresh and logout flows.
type SessionSvcFacade interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Logout(ctx context.Context, identity domain.Identity) error
	ChangePassword(ctx context.Context, identity domain.Identity, currentPassword, newPassword string) error
	CurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error)
}
