package middleware

import (
	"context"

	"github.com/SscSPs/blog_backend/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// identityKey is the key used to store the authenticated caller in the Gin
// context and the request context.
const identityKey = contextKey("identity")

// WithIdentity returns a copy of ctx carrying the authenticated caller.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromCtx retrieves the authenticated caller from a standard context.
func IdentityFromCtx(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// GetIdentityFromContext retrieves the authenticated caller from the Gin context.
// It returns the identity and a boolean indicating if it was found.
func GetIdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	if val, exists := c.Get(string(identityKey)); exists {
		identity, ok := val.(domain.Identity)
		return identity, ok
	}
	// check in the request context as well
	return IdentityFromCtx(c.Request.Context())
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	identity, ok := GetIdentityFromContext(c)
	if !ok {
		return "", false
	}
	return identity.UserID, true
}
