package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/dto"
	"github.com/SscSPs/blog_backend/internal/utils"
)

// sessionService implements SessionSvcFacade. It owns the ordering of the
// login flow: lookup, lock check, password check, then token issuance.
type sessionService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
	hasher   portssvc.PasswordHasherSvc
	tokens   portssvc.TokenSvcFacade
	lockout  portssvc.LockoutSvc
}

// SessionServiceOption is a functional option for configuring the session service
type SessionServiceOption func(*sessionService)

// WithSessionClock overrides the clock used for lock windows and audit fields.
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *sessionService) {
		s.Clock = now
	}
}

// NewSessionService creates a new session orchestrator.
func NewSessionService(
	userRepo portsrepo.UserRepositoryFacade,
	hasher portssvc.PasswordHasherSvc,
	tokens portssvc.TokenSvcFacade,
	lockout portssvc.LockoutSvc,
	options ...SessionServiceOption,
) portssvc.SessionSvcFacade {
	svc := &sessionService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		lockout:  lockout,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SessionSvcFacade = (*sessionService)(nil)

// Register creates a non-admin account.
func (s *sessionService) Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error) {
	user, err := newUser(s.hasher, req.Username, req.Email, req.Password, false, "", s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to register user", slog.String("username", user.Username))
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	s.LogInfo(ctx, "User registered", slog.String("user_id", user.UserID))
	return &user, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown emails and
// wrong passwords fail identically; a locked account fails before any hash
// comparison.
func (s *sessionService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, apperrors.ErrInvalidCredentials
		}
		s.LogError(ctx, err, "Failed to look up user for login")
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.Now()
	if err := s.lockout.Check(user, now); err != nil {
		s.LogWarn(ctx, "Login attempt on locked account", slog.String("user_id", user.UserID))
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		if _, err := s.lockout.RegisterFailure(ctx, user, now); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		s.LogError(ctx, err, "Failed to issue tokens", slog.String("user_id", user.UserID))
		return nil, err
	}

	refreshHash := utils.HashRefreshToken(pair.RefreshToken)
	update := s.lockout.ResetFields(domain.UserUpdate{
		RefreshTokenHash: &refreshHash,
		LastUpdatedAt:    now,
		LastUpdatedBy:    user.UserID,
	})
	if err := s.userRepo.UpdateUserFields(ctx, user.UserID, update); err != nil {
		s.LogError(ctx, err, "Failed to persist login state", slog.String("user_id", user.UserID))
		return nil, fmt.Errorf("failed to persist login state: %w", err)
	}
	update.Apply(user)

	s.LogInfo(ctx, "User logged in", slog.String("user_id", user.UserID))
	return &domain.Session{TokenPair: pair, User: user.Identity()}, nil
}

// Refresh exchanges a valid refresh token for a new pair and invalidates the old one.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.userRepo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.TokenPair{}, apperrors.ErrTokenRevoked
		}
		s.LogError(ctx, err, "Failed to look up user for refresh", slog.String("user_id", claims.UserID))
		return domain.TokenPair{}, fmt.Errorf("failed to look up user: %w", err)
	}

	pair, err := s.tokens.Rotate(ctx, user, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	s.LogDebug(ctx, "Refresh token rotated", slog.String("user_id", user.UserID))
	return pair, nil
}

// Logout revokes the caller's refresh token. Outstanding access tokens stay
// valid until they expire.
func (s *sessionService) Logout(ctx context.Context, identity domain.Identity) error {
	err := s.userRepo.UpdateUserFields(ctx, identity.UserID, domain.UserUpdate{
		ClearRefreshToken: true,
		LastUpdatedAt:     s.Now(),
		LastUpdatedBy:     identity.UserID,
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to clear refresh token", slog.String("user_id", identity.UserID))
		return fmt.Errorf("failed to log out: %w", err)
	}
	s.LogInfo(ctx, "User logged out", slog.String("user_id", identity.UserID))
	return nil
}

// ChangePassword replaces the caller's password after checking the current one.
// Wrong current passwords feed the same lockout counter as Login. The refresh
// token is revoked and access tokens issued before the change stop
// being accepted.
func (s *sessionService) ChangePassword(ctx context.Context, identity domain.Identity, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindUserByID(ctx, identity.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.Now()
	if err := s.lockout.Check(user, now); err != nil {
		s.LogWarn(ctx, "Password change attempt on locked account", slog.String("user_id", user.UserID))
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		if _, err := s.lockout.RegisterFailure(ctx, user, now); err != nil {
			return err
		}
		return apperrors.ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = s.userRepo.UpdateUserFields(ctx, user.UserID, s.lockout.ResetFields(domain.UserUpdate{
		PasswordHash:      &digest,
		PasswordChangedAt: &now,
		ClearRefreshToken: true,
		LastUpdatedAt:     now,
		LastUpdatedBy:     identity.UserID,
	}))
	if err != nil {
		s.LogError(ctx, err, "Failed to change password", slog.String("user_id", user.UserID))
		return fmt.Errorf("failed to change password: %w", err)
	}
	s.LogInfo(ctx, "Password changed", slog.String("user_id", user.UserID))
	return nil
}

func (s *sessionService) CurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return user, nil
}
