package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/blog_backend/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository implements portsrepo.UserRepositoryFacade.
type MockUserRepository struct {
	mock.Mock
}

func userOrNil(args mock.Arguments) (*domain.User, error) {
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return userOrNil(m.Called(ctx, userID))
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return userOrNil(m.Called(ctx, email))
}

func (m *MockUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return userOrNil(m.Called(ctx, username))
}

func (m *MockUserRepository) FindUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	var users []domain.User
	if args.Get(0) != nil {
		users = args.Get(0).([]domain.User)
	}
	return users, args.Error(1)
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateUserFields(ctx context.Context, userID string, update domain.UserUpdate) error {
	return m.Called(ctx, userID, update).Error(0)
}

func (m *MockUserRepository) IncrementFailedLogins(ctx context.Context, userID string, threshold int, lockUntil time.Time, at time.Time) (*domain.LockoutState, error) {
	args := m.Called(ctx, userID, threshold, lockUntil, at)
	var state *domain.LockoutState
	if args.Get(0) != nil {
		state = args.Get(0).(*domain.LockoutState)
	}
	return state, args.Error(1)
}

func (m *MockUserRepository) SwapRefreshToken(ctx context.Context, userID string, expectedHash string, newHash string, at time.Time) error {
	return m.Called(ctx, userID, expectedHash, newHash, at).Error(0)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var testifyAnyTime = mock.AnythingOfType("time.Time")
