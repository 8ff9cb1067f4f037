//go:build integration

package pgsql_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/blog_backend/internal/adapters/database/pgsql"
	"github.com/SscSPs/blog_backend/internal/adapters/database/repotest"
	"github.com/SscSPs/blog_backend/internal/apperrors"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/SscSPs/blog_backend/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const migrationsSource = "file://../../../../migrations"

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("blog"),
		postgres.WithUsername("blog"),
		postgres.WithPassword("blog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	applied, err := database.RunMigrations(connStr, migrationsSource)
	require.NoError(t, err)
	require.True(t, applied)

	// a second run is a no-op
	applied, err = database.RunMigrations(connStr, migrationsSource)
	require.NoError(t, err)
	require.False(t, applied)

	return connStr
}

func TestPgxUserRepository(t *testing.T) {
	connStr := startPostgres(t)
	ctx := context.Background()

	pool, err := database.NewPgxPool(ctx, connStr, true)
	require.NoError(t, err)
	repos := pgsql.NewRepositoryProvider(pool)
	t.Cleanup(func() { _ = repos.Close(ctx) })

	require.NoError(t, repos.Ping(ctx))

	repotest.RunUserRepository(t, func(t *testing.T) portsrepo.UserRepositoryFacade {
		_, err := pool.Exec(ctx, "TRUNCATE users")
		require.NoError(t, err)
		return repos.UserRepo
	})
}

func TestPgxUserRepository_MalformedIDs(t *testing.T) {
	connStr := startPostgres(t)
	ctx := context.Background()

	pool, err := database.NewPgxPool(ctx, connStr, true)
	require.NoError(t, err)
	repos := pgsql.NewRepositoryProvider(pool)
	t.Cleanup(func() { _ = repos.Close(ctx) })

	_, err = repos.UserRepo.FindUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repos.UserRepo.DeleteUser(ctx, "not-a-uuid"), apperrors.ErrNotFound)
	assert.ErrorIs(t, repos.UserRepo.SwapRefreshToken(ctx, "not-a-uuid", "a", "b", time.Now()), apperrors.ErrConflict)
}
