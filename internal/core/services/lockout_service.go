package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
)

// lockoutTracker implements LockoutSvc on top of the store's atomic counter.
type lockoutTracker struct {
	BaseService
	repo      portsrepo.UserSecurityWriter
	threshold int
	window    time.Duration
}

// NewLockoutTracker creates a tracker that locks an account for window once
// threshold consecutive failures have been recorded.
func NewLockoutTracker(repo portsrepo.UserSecurityWriter, threshold int, window time.Duration) portssvc.LockoutSvc {
	return &lockoutTracker{repo: repo, threshold: threshold, window: window}
}

var _ portssvc.LockoutSvc = (*lockoutTracker)(nil)

// Check never touches the counter. An expired lock is not an error.
func (t *lockoutTracker) Check(user *domain.User, now time.Time) error {
	if user.IsLocked(now) {
		return apperrors.NewLockedError(*user.LockUntil)
	}
	return nil
}

func (t *lockoutTracker) RegisterFailure(ctx context.Context, user *domain.User, now time.Time) (*domain.LockoutState, error) {
	state, err := t.repo.IncrementFailedLogins(ctx, user.UserID, t.threshold, now.Add(t.window), now)
	if err != nil {
		t.LogError(ctx, err, "Failed to record failed login", slog.String("user_id", user.UserID))
		return nil, fmt.Errorf("failed to record failed login: %w", err)
	}
	if state.LockUntil != nil {
		t.LogWarn(ctx, "Account locked after repeated failed logins",
			slog.String("user_id", user.UserID),
			slog.Int("failed_attempts", state.FailedLoginAttempts),
			slog.Time("lock_until", *state.LockUntil))
	}
	return state, nil
}

func (t *lockoutTracker) ResetFields(update domain.UserUpdate) domain.UserUpdate {
	zero := 0
	update.FailedLoginAttempts = &zero
	update.LockUntil = nil
	update.ClearLockUntil = true
	return update
}
