package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
)

// UserRepository keeps users in process memory. Every method holds the lock
// for its whole read-modify-write, so the counter and rotation updates are
// atomic just like their SQL counterparts.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]domain.User
}

// NewUserRepository returns an empty repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

var _ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)

// NewRepositoryProvider wires an in-memory store.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo: NewUserRepository(),
		Ping:     func(context.Context) error { return nil },
		Close:    func(context.Context) error { return nil },
	}
}

func clone(u domain.User) *domain.User {
	if u.LockUntil != nil {
		t := *u.LockUntil
		u.LockUntil = &t
	}
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		u.RefreshTokenHash = &h
	}
	return &u
}

// conflicts reports whether another user already holds username or email.
func (r *UserRepository) conflicts(userID, username, email string) bool {
	for id, u := range r.users {
		if id == userID {
			continue
		}
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) SaveUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.UserID]; exists || r.conflicts(user.UserID, user.Username, user.Email) {
		return fmt.Errorf("username or email already in use: %w", apperrors.ErrDuplicate)
	}
	r.users[user.UserID] = *clone(user)
	return nil
}

func (r *UserRepository) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) findBy(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *UserRepository) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findBy(func(u domain.User) bool { return u.Email == email })
}

func (r *UserRepository) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findBy(func(u domain.User) bool { return u.Username == username })
}

func (r *UserRepository) FindUsers(_ context.Context, limit int, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.Lock()
	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *clone(u))
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].UserID < all[j].UserID
	})

	if offset >= len(all) {
		return []domain.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *UserRepository) UpdateUserFields(_ context.Context, userID string, update domain.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	update.Apply(&u)
	if r.conflicts(userID, u.Username, u.Email) {
		return fmt.Errorf("username or email already in use: %w", apperrors.ErrDuplicate)
	}
	r.users[userID] = u
	return nil
}

func (r *UserRepository) IncrementFailedLogins(_ context.Context, userID string, threshold int, lockUntil time.Time, at time.Time) (*domain.LockoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= threshold {
		t := lockUntil
		u.LockUntil = &t
	} else {
		u.LockUntil = nil
	}
	u.LastUpdatedAt = at
	r.users[userID] = u

	state := &domain.LockoutState{FailedLoginAttempts: u.FailedLoginAttempts}
	if u.LockUntil != nil {
		t := *u.LockUntil
		state.LockUntil = &t
	}
	return state, nil
}

func (r *UserRepository) SwapRefreshToken(_ context.Context, userID string, expectedHash string, newHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != expectedHash {
		return apperrors.ErrConflict
	}
	h := newHash
	u.RefreshTokenHash = &h
	u.LastUpdatedAt = at
	r.users[userID] = u
	return nil
}

func (r *UserRepository) DeleteUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	delete(r.users, userID)
	return nil
}
