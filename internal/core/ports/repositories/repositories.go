package repositories

import "context"

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	UserRepo UserRepositoryFacade

	// Ping reports whether the backing store is reachable.
	Ping func(ctx context.Context) error
	// Close releases the underlying store connection, if any.
	Close func(ctx context.Context) error
}
