package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/blog_backend/internal/core/domain"
)

// UserReader defines read operations for user data
type UserReader interface {
	// FindUserByID retrieves a specific user by their ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by their normalized email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByUsername retrieves a user by their normalized login name.
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindUsers retrieves a paginated list of users.
	FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error)
}

// UserWriter defines write operations for user data
type UserWriter interface {
	// SaveUser persists a new user. Returns apperrors.ErrDuplicate when the
	// email or username is already taken.
	SaveUser(ctx context.Context, user domain.User) error

	// UpdateUserFields atomically applies a partial update to one user row.
	UpdateUserFields(ctx context.Context, userID string, update domain.UserUpdate) error
}

// UserSecurityWriter defines the single-statement updates used by the
// lockout tracker and refresh-token rotation.
type UserSecurityWriter interface {
	// IncrementFailedLogins adds one to the failed-login counter. When the new value
	// reaches threshold, lock_until is set to lockUntil; otherwise it is cleared.
	IncrementFailedLogins(ctx context.Context, userID string, threshold int, lockUntil time.Time, at time.Time) (*domain.LockoutState, error)

	// SwapRefreshToken replaces the stored refresh-token hash only if it still equals
	// expectedHash. Returns apperrors.ErrConflict otherwise.
	SwapRefreshToken(ctx context.Context, userID string, expectedHash string, newHash string, at time.Time) error
}

// UserLifecycleManager defines operations for managing user lifecycle
type UserLifecycleManager interface {
	// DeleteUser removes a user permanently.
	DeleteUser(ctx context.Context, userID string) error
}

// UserRepositoryFacade combines all user-related repository interfaces
// This is a facade for clients that need access to all operations
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	UserSecurityWriter
	UserLifecycleManager
}
