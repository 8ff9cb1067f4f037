package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/blog_backend/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

// Messages returned by the authentication and authorization middleware.
const (
	MsgNoAuthHeader        = "No authorization header"
	MsgNoToken             = "No token provided"
	MsgInvalidToken        = "Invalid or expired token"
	MsgUserNotFound        = "User not found"
	MsgAdminAccessRequired = "Admin access required"
)

const bearerScheme = "Bearer"

// RequireAuth creates a Gin middleware handler that validates the bearer access
// token, loads the current user from the store and attaches its identity to the
// request. The user is read on every request so deletions and admin changes
// take effect immediately.
func RequireAuth(tokens portssvc.TokenSvcFacade, users portsrepo.UserReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgNoAuthHeader})
			return
		}
		// Header values arrive trimmed, so "Bearer " is seen as "Bearer".
		scheme, tokenString, _ := strings.Cut(strings.TrimSpace(authHeader), " ")
		if !strings.EqualFold(scheme, bearerScheme) {
			logger.Warn("Authorization header format invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgInvalidToken})
			return
		}
		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			logger.Warn("Bearer token missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgNoToken})
			return
		}

		claims, err := tokens.VerifyAccessToken(tokenString)
		if err != nil {
			logger.Warn("Invalid access token", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgInvalidToken})
			return
		}

		user, err := users.FindUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.Warn("Token subject no longer exists", slog.String("user_id", claims.UserID))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgUserNotFound})
				return
			}
			logger.Error("Failed to load token subject", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		// Tokens minted for an earlier password are stale, even within the
		// same second as the change.
		if claims.PasswordStamp != user.PasswordStamp() {
			logger.Warn("Access token predates password change", slog.String("user_id", user.UserID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgInvalidToken})
			return
		}

		identity := user.Identity()
		enrichedLogger := logger.With(slog.String("user_id", identity.UserID))

		ctx := WithIdentity(c.Request.Context(), identity)
		ctx = WithLogger(ctx, enrichedLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(identityKey), identity)
		c.Set(string(loggerKey), enrichedLogger)

		c.Next()
	}
}

// RequireAdmin rejects callers whose current record lacks the admin flag. It
// must run after RequireAuth; without an identity it answers 401.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentityFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgNoAuthHeader})
			return
		}
		if !identity.IsAdmin {
			GetLoggerFromCtx(c.Request.Context()).Warn("Admin access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": MsgAdminAccessRequired})
			return
		}
		c.Next()
	}
}
