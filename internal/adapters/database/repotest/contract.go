// Package repotest holds the behaviour every user store must share. Each
// adapter runs it from its own tests against a fresh, empty store.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRepo returns an empty repository. It is called once per subtest.
type NewRepo func(t *testing.T) portsrepo.UserRepositoryFacade

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// NewUser builds a storable user with the given names.
func NewUser(username, email string) domain.User {
	id := uuid.NewString()
	return domain.User{
		UserID:            id,
		Username:          username,
		Email:             email,
		PasswordHash:      "$2a$04$abcdefghijklmnopqrstuuabcdefghijklmnopqrstuvwxyzabcde",
		PasswordChangedAt: base,
		AuditFields: domain.AuditFields{
			CreatedAt:     base,
			CreatedBy:     id,
			LastUpdatedAt: base,
			LastUpdatedBy: id,
		},
	}
}

// RunUserRepository runs the shared store behaviour as subtests of t.
func RunUserRepository(t *testing.T, newRepo NewRepo) {
	t.Run("SaveAndFind", func(t *testing.T) { testSaveAndFind(t, newRepo(t)) })
	t.Run("Duplicates", func(t *testing.T) { testDuplicates(t, newRepo(t)) })
	t.Run("FindUsersPaging", func(t *testing.T) { testFindUsersPaging(t, newRepo(t)) })
	t.Run("UpdateUserFields", func(t *testing.T) { testUpdateUserFields(t, newRepo(t)) })
	t.Run("IncrementFailedLogins", func(t *testing.T) { testIncrementFailedLogins(t, newRepo(t)) })
	t.Run("ConcurrentFailures", func(t *testing.T) { testConcurrentFailures(t, newRepo(t)) })
	t.Run("SwapRefreshToken", func(t *testing.T) { testSwapRefreshToken(t, newRepo(t)) })
	t.Run("DeleteUser", func(t *testing.T) { testDeleteUser(t, newRepo(t)) })
}

func testSaveAndFind(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	user := NewUser("alice", "alice@example.com")
	require.NoError(t, repo.SaveUser(ctx, user))

	byID, err := repo.FindUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, user.PasswordHash, byID.PasswordHash)
	assert.False(t, byID.IsAdmin)
	assert.Nil(t, byID.LockUntil)
	assert.Nil(t, byID.RefreshTokenHash)
	assert.True(t, base.Equal(byID.PasswordChangedAt))
	assert.True(t, base.Equal(byID.CreatedAt))

	byEmail, err := repo.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, byEmail.UserID)

	byName, err := repo.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, byName.UserID)

	_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.FindUserByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func testDuplicates(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	require.NoError(t, repo.SaveUser(ctx, NewUser("alice", "alice@example.com")))

	assert.ErrorIs(t, repo.SaveUser(ctx, NewUser("alice", "other@example.com")), apperrors.ErrDuplicate)
	assert.ErrorIs(t, repo.SaveUser(ctx, NewUser("other", "alice@example.com")), apperrors.ErrDuplicate)

	bob := NewUser("bob", "bob@example.com")
	require.NoError(t, repo.SaveUser(ctx, bob))
	taken := "alice@example.com"
	err := repo.UpdateUserFields(ctx, bob.UserID, domain.UserUpdate{Email: &taken, LastUpdatedAt: base})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	stored, err := repo.FindUserByID(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", stored.Email)
}

func testFindUsersPaging(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	names := []string{"u1", "u2", "u3"}
	for i, name := range names {
		u := NewUser(name, name+"@example.com")
		u.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveUser(ctx, u))
	}

	page, err := repo.FindUsers(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "u3", page[0].Username, "newest first")
	assert.Equal(t, "u2", page[1].Username)

	page, err = repo.FindUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "u1", page[0].Username)

	page, err = repo.FindUsers(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testUpdateUserFields(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	user := NewUser("alice", "alice@example.com")
	require.NoError(t, repo.SaveUser(ctx, user))

	hash := "f0e1d2c3b4a5968778695a4b3c2d1e0ff0e1d2c3b4a5968778695a4b3c2d1e0f"
	admin := true
	lock := base.Add(time.Hour)
	attempts := 3
	later := base.Add(time.Minute)
	require.NoError(t, repo.UpdateUserFields(ctx, user.UserID, domain.UserUpdate{
		IsAdmin:             &admin,
		RefreshTokenHash:    &hash,
		LockUntil:           &lock,
		FailedLoginAttempts: &attempts,
		LastUpdatedAt:       later,
		LastUpdatedBy:       "someone",
	}))

	stored, err := repo.FindUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)
	require.NotNil(t, stored.RefreshTokenHash)
	assert.Equal(t, hash, *stored.RefreshTokenHash)
	require.NotNil(t, stored.LockUntil)
	assert.True(t, lock.Equal(*stored.LockUntil))
	assert.Equal(t, 3, stored.FailedLoginAttempts)
	assert.True(t, later.Equal(stored.LastUpdatedAt))
	assert.Equal(t, "someone", stored.LastUpdatedBy)
	assert.Equal(t, "alice", stored.Username, "untouched fields survive")

	require.NoError(t, repo.UpdateUserFields(ctx, user.UserID, domain.UserUpdate{
		ClearRefreshToken: true,
		ClearLockUntil:    true,
		LastUpdatedAt:     later,
	}))
	stored, err = repo.FindUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshTokenHash)
	assert.Nil(t, stored.LockUntil)

	err = repo.UpdateUserFields(ctx, uuid.NewString(), domain.UserUpdate{IsAdmin: &admin, LastUpdatedAt: later})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func testIncrementFailedLogins(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	user := NewUser("bob", "bob@example.com")
	require.NoError(t, repo.SaveUser(ctx, user))
	lockUntil := base.Add(15 * time.Minute)

	for i := 1; i <= 4; i++ {
		state, err := repo.IncrementFailedLogins(ctx, user.UserID, 5, lockUntil, base)
		require.NoError(t, err)
		assert.Equal(t, i, state.FailedLoginAttempts)
		assert.Nil(t, state.LockUntil)
	}

	state, err := repo.IncrementFailedLogins(ctx, user.UserID, 5, lockUntil, base)
	require.NoError(t, err)
	assert.Equal(t, 5, state.FailedLoginAttempts)
	require.NotNil(t, state.LockUntil)
	assert.True(t, lockUntil.Equal(*state.LockUntil))

	stored, err := repo.FindUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.FailedLoginAttempts)
	require.NotNil(t, stored.LockUntil)

	// past the threshold every further failure moves the window
	relock := base.Add(time.Hour)
	state, err = repo.IncrementFailedLogins(ctx, user.UserID, 5, relock, base.Add(45*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 6, state.FailedLoginAttempts)
	require.NotNil(t, state.LockUntil)
	assert.True(t, relock.Equal(*state.LockUntil))

	_, err = repo.IncrementFailedLogins(ctx, uuid.NewString(), 5, lockUntil, base)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func testConcurrentFailures(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	user := NewUser("carol", "carol@example.com")
	require.NoError(t, repo.SaveUser(ctx, user))

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementFailedLogins(ctx, user.UserID, 5, base.Add(15*time.Minute), base)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.FindUserByID(ctx, user.UserID)
	require.NoError(t, err)
	assert.Equal(t, workers, stored.FailedLoginAttempts, "no increment may be lost")
	assert.NotNil(t, stored.LockUntil)
}

func testSwapRefreshToken(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	user := NewUser("dave", "dave@example.com")
	require.NoError(t, repo.SaveUser(ctx, user))

	first := "1111111111111111111111111111111111111111111111111111111111111111"
	second := "2222222222222222222222222222222222222222222222222222222222222222"
	third := "3333333333333333333333333333333333333333333333333333333333333333"

	// nothing stored yet
	assert.ErrorIs(t, repo.SwapRefreshToken(ctx, user.UserID, first, second, base), apperrors.ErrConflict)

	require.NoError(t, repo.UpdateUserFields(ctx, user.UserID, domain.UserUpdate{RefreshTokenHash: &first, LastUpdatedAt: base}))
	require.NoError(t, repo.SwapRefreshToken(ctx, user.UserID, first, second, base))

	// the old hash lost
	assert.ErrorIs(t, repo.SwapRefreshToken(ctx, user.UserID, first, third, base), apperrors.ErrConflict)

	stored, err := repo.FindUserByID(ctx, user.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshTokenHash)
	assert.Equal(t, second, *stored.RefreshTokenHash)

	// two concurrent rotations of the same token: exactly one wins
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, next := range []string{first, third} {
		wg.Add(1)
		go func(i int, next string) {
			defer wg.Done()
			results[i] = repo.SwapRefreshToken(ctx, user.UserID, second, next, base)
		}(i, next)
	}
	wg.Wait()
	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func testDeleteUser(t *testing.T, repo portsrepo.UserRepositoryFacade) {
	ctx := context.Background()
	user := NewUser("erin", "erin@example.com")
	require.NoError(t, repo.SaveUser(ctx, user))

	require.NoError(t, repo.DeleteUser(ctx, user.UserID))
	_, err := repo.FindUserByID(ctx, user.UserID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteUser(ctx, user.UserID), apperrors.ErrNotFound)

	// the email is free again
	require.NoError(t, repo.SaveUser(ctx, NewUser("erin", "erin@example.com")))
}
