package services

import (
	"time"

	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/SscSPs/blog_backend/internal/platform/config"
)

// ContainerOption configures every service built by NewServiceContainer.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	clock func() time.Time
}

// WithClock makes all services read time from now.
func WithClock(now func() time.Time) ContainerOption {
	return func(o *containerOptions) {
		o.clock = now
	}
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, options ...ContainerOption) *portssvc.ServiceContainer {
	opts := containerOptions{clock: time.Now}
	for _, option := range options {
		option(&opts)
	}

	container := &portssvc.ServiceContainer{}

	container.Hasher = NewPasswordHasher(cfg.BcryptCost)
	container.Tokens = NewTokenService(cfg, repos.UserRepo, WithTokenClock(opts.clock))
	container.Lockout = NewLockoutTracker(repos.UserRepo, cfg.LockoutThreshold, cfg.LockoutDuration)
	container.Sessions = NewSessionService(
		repos.UserRepo,
		container.Hasher,
		container.Tokens,
		container.Lockout,
		WithSessionClock(opts.clock),
	)
	container.User = NewUserService(repos.UserRepo, container.Hasher, WithUserClock(opts.clock))

	return container
}
