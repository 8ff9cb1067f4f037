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
	"github.com/google/uuid"
)

// userService implements the admin-facing UserSvcFacade.
type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
	hasher   portssvc.PasswordHasherSvc
}

// UserServiceOption is a functional option for configuring the user service
type UserServiceOption func(*userService)

// WithUserClock overrides the clock used for audit fields.
func WithUserClock(now func() time.Time) UserServiceOption {
	return func(s *userService) {
		s.Clock = now
	}
}

// NewUserService creates a new user service.
func NewUserService(userRepo portsrepo.UserRepositoryFacade, hasher portssvc.PasswordHasherSvc, options ...UserServiceOption) portssvc.UserSvcFacade {
	svc := &userService{userRepo: userRepo, hasher: hasher}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

// newUser builds a validated, hashed user ready to be saved. creatorID empty
// means self-registration.
func newUser(hasher portssvc.PasswordHasherSvc, username, email, password string, isAdmin bool, creatorID string, now time.Time) (domain.User, error) {
	username = utils.NormalizeUsername(username)
	email = utils.NormalizeEmail(email)
	if username == "" || email == "" {
		return domain.User{}, apperrors.Validation("Username and email are required")
	}

	digest, err := hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	userID := uuid.NewString()
	if creatorID == "" {
		creatorID = userID
	}
	return domain.User{
		UserID:            userID,
		Username:          username,
		Email:             email,
		PasswordHash:      digest,
		IsAdmin:           isAdmin,
		PasswordChangedAt: now,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorID,
		},
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID in service: %w", err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.userRepo.FindUsers(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list users", slog.Int("limit", limit), slog.Int("offset", offset))
		return nil, fmt.Errorf("failed to list users in service: %w", err)
	}
	return users, nil
}

func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest, requestingUserID string) (*domain.User, error) {
	user, err := newUser(s.hasher, req.Username, req.Email, req.Password, req.IsAdmin, requestingUserID, s.Now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user in service: %w", err)
	}
	s.LogInfo(ctx, "User created by admin",
		slog.String("user_id", user.UserID),
		slog.String("created_by", requestingUserID),
		slog.Bool("is_admin", user.IsAdmin))
	return &user, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error) {
	if userID == requestingUserID && req.IsAdmin != nil && !*req.IsAdmin {
		return nil, apperrors.Validation("You cannot remove your own admin privileges")
	}

	now := s.Now()
	update := domain.UserUpdate{
		IsAdmin:       req.IsAdmin,
		LastUpdatedAt: now,
		LastUpdatedBy: requestingUserID,
	}
	if req.Username != nil {
		username := utils.NormalizeUsername(*req.Username)
		update.Username = &username
	}
	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		update.Email = &email
	}
	if req.Password != nil {
		digest, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &digest
		update.PasswordChangedAt = &now
		update.ClearRefreshToken = true
	}
	if update.IsEmpty() {
		return nil, apperrors.Validation("No fields to update")
	}

	if err := s.userRepo.UpdateUserFields(ctx, userID, update); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) && !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to update user", slog.String("user_id", userID))
		}
		return nil, fmt.Errorf("failed to update user in service: %w", err)
	}
	s.LogInfo(ctx, "User updated by admin", slog.String("user_id", userID), slog.String("updated_by", requestingUserID))

	return s.GetUserByID(ctx, userID)
}

func (s *userService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	if userID == requestingUserID {
		return apperrors.Validation("You cannot delete your own account")
	}
	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user in service: %w", err)
	}
	s.LogInfo(ctx, "User deleted by admin", slog.String("user_id", userID), slog.String("deleted_by", requestingUserID))
	return nil
}

// EnsureAdmin is idempotent: an existing account with the email is left untouched.
func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	existing, err := s.userRepo.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	switch {
	case err == nil:
		if !existing.IsAdmin {
			s.LogWarn(ctx, "Bootstrap admin email belongs to a non-admin account", slog.String("user_id", existing.UserID))
		}
		return false, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return false, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	user, err := newUser(s.hasher, username, email, password, true, "", s.Now())
	if err != nil {
		return false, err
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	s.LogInfo(ctx, "Bootstrap admin created", slog.String("user_id", user.UserID))
	return true, nil
}
