package pgsql

import (
	"context"

	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the postgres-backed repositories. Close releases the pool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	userRepo := newPgxUserRepository(dbPool)

	return portsrepo.RepositoryProvider{
		UserRepo: userRepo,
		Ping:     userRepo.Ping,
		Close: func(context.Context) error {
			dbPool.Close()
			return nil
		},
	}
}
