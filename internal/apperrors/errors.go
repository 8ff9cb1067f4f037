package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
// It is the store's constraint violation for duplicate email or username.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that a conditional write lost against a concurrent change.
var ErrConflict = errors.New("resource was modified concurrently")

// Authentication and session errors.
var (
	// ErrInvalidCredentials is returned for both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while an account's lock window is open.
	ErrAccountLocked = errors.New("account locked")
	// ErrWeakPassword indicates a plaintext password that does not meet the policy.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrTokenInvalid indicates a token with a bad signature, shape or claims.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired indicates a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates a refresh token that no longer matches the stored value.
	ErrTokenRevoked = errors.New("token revoked")
)

// AppError carries a transport status and a caller-safe message alongside the cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// LockedError reports when a locked account becomes available again.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// Is lets errors.Is(err, ErrAccountLocked) match a *LockedError.
func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// NewLockedError returns an ErrAccountLocked carrying the unlock time.
func NewLockedError(until time.Time) error {
	return &LockedError{Until: until}
}

// Validation wraps ErrValidation with the message shown to the caller.
func Validation(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrValidation)
}
