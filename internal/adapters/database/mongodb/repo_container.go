package mongodb

import (
	"context"
	"fmt"

	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// NewRepositoryProvider wires the mongo-backed repositories and makes sure the
// unique indexes exist. Close disconnects the client.
func NewRepositoryProvider(ctx context.Context, client *mongo.Client, database string) (portsrepo.RepositoryProvider, error) {
	userRepo := NewMongoUserRepository(client.Database(database))
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return portsrepo.RepositoryProvider{}, err
	}

	return portsrepo.RepositoryProvider{
		UserRepo: userRepo,
		Ping: func(ctx context.Context) error {
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				return fmt.Errorf("mongodb unavailable: %w", err)
			}
			return nil
		},
		Close: client.Disconnect,
	}, nil
}
