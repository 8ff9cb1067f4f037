package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// LockedResponse is returned with 423 while an account is locked.
type LockedResponse struct {
	Error       string    `json:"error"`
	LockedUntil time.Time `json:"lockedUntil"`
}

// respondError maps a service error to its HTTP status and caller-safe message.
// Unknown errors are logged and reported as 500 without detail.
func respondError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var appErr *apperrors.AppError
	var lockedErr *apperrors.LockedError
	switch {
	case errors.As(err, &lockedErr):
		retryAfter := int64(math.Ceil(time.Until(lockedErr.Until).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		c.JSON(http.StatusLocked, LockedResponse{
			Error:       "Account is temporarily locked due to too many failed login attempts. Please try again later.",
			LockedUntil: lockedErr.Until.UTC(),
		})
	case errors.As(err, &appErr):
		if appErr.Code >= http.StatusInternalServerError {
			logger.Error("Request failed", slog.String("error", err.Error()))
		}
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message})
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, apperrors.ErrTokenInvalid),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid refresh token"})
	case errors.Is(err, apperrors.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: weakPasswordMessage(err)})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request"})
	case errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Username or email already in use"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
	default:
		logger.Error("Unhandled error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// weakPasswordMessage turns "...: password does not meet policy: must be X"
// into "Password must be X".
func weakPasswordMessage(err error) string {
	msg := err.Error()
	marker := apperrors.ErrWeakPassword.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return "Password " + msg[i+len(marker):]
	}
	return "Password does not meet the password policy"
}

// respondBindError answers 400 for a request body or query that failed binding.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Invalid request payload", slog.String("error", err.Error()))

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
		return
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: details})
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "password":
		return field + " must be at least 8 characters, at most 72 bytes, and contain a letter and a number"
	default:
		return field + " is invalid"
	}
}
