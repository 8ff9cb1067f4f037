//go:build integration

package mongodb_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/SscSPs/blog_backend/internal/adapters/database/mongodb"
	"github.com/SscSPs/blog_backend/internal/adapters/database/repotest"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/SscSPs/blog_backend/pkg/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func startMongo(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "27017/tcp", "")
	require.NoError(t, err)
	return fmt.Sprintf("mongodb://%s", endpoint)
}

func TestMongoUserRepository(t *testing.T) {
	ctx := context.Background()
	client, err := database.NewMongoClient(ctx, startMongo(t))
	require.NoError(t, err)

	repos, err := mongodb.NewRepositoryProvider(ctx, client, "blog_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close(ctx) })
	require.NoError(t, repos.Ping(ctx))

	coll := client.Database("blog_test").Collection(mongodb.UsersCollection)
	repotest.RunUserRepository(t, func(t *testing.T) portsrepo.UserRepositoryFacade {
		_, err := coll.DeleteMany(ctx, bson.D{})
		require.NoError(t, err)
		return repos.UserRepo
	})
}
