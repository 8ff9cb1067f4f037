package domain

import "time"

// User represents an account of the blog in the domain.
// PasswordHash and RefreshTokenHash never leave the service layer.
type User struct {
	UserID       string `json:"userID"` // Primary Key (UUID)
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"isAdmin"`

	// Lockout state, mutated only by the lockout tracker.
	FailedLoginAttempts int        `json:"-"`
	LockUntil           *time.Time `json:"-"`

	// SHA-256 of the single active refresh token; nil after logout.
	RefreshTokenHash  *string   `json:"-"`
	PasswordChangedAt time.Time `json:"-"`

	AuditFields
}

// IsLocked reports whether the lock window is still open at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}

// PasswordStamp identifies the current password at microsecond precision.
// Access tokens carry it and stop verifying once it changes.
func (u *User) PasswordStamp() int64 {
	return u.PasswordChangedAt.UnixMicro()
}

// Identity returns the public projection of the user.
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// UserUpdate is a partial update applied atomically to a single user row.
// Nil pointers leave the column untouched; the Clear flags set nullable columns to NULL.
type UserUpdate struct {
	Username            *string
	Email               *string
	PasswordHash        *string
	PasswordChangedAt   *time.Time
	IsAdmin             *bool
	FailedLoginAttempts *int
	LockUntil           *time.Time
	ClearLockUntil      bool
	RefreshTokenHash    *string
	ClearRefreshToken   bool
	LastUpdatedAt       time.Time
	LastUpdatedBy       string
}

// IsEmpty reports whether the update would change nothing but audit fields.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Email == nil && u.PasswordHash == nil &&
		u.PasswordChangedAt == nil && u.IsAdmin == nil && u.FailedLoginAttempts == nil &&
		u.LockUntil == nil && !u.ClearLockUntil && u.RefreshTokenHash == nil && !u.ClearRefreshToken
}

// Apply copies the set fields of the update onto the user.
func (u UserUpdate) Apply(user *User) {
	if u.Username != nil {
		user.Username = *u.Username
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
	if u.PasswordChangedAt != nil {
		user.PasswordChangedAt = *u.PasswordChangedAt
	}
	if u.IsAdmin != nil {
		user.IsAdmin = *u.IsAdmin
	}
	if u.FailedLoginAttempts != nil {
		user.FailedLoginAttempts = *u.FailedLoginAttempts
	}
	if u.ClearLockUntil {
		user.LockUntil = nil
	} else if u.LockUntil != nil {
		t := *u.LockUntil
		user.LockUntil = &t
	}
	if u.ClearRefreshToken {
		user.RefreshTokenHash = nil
	} else if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		user.RefreshTokenHash = &h
	}
	if !u.LastUpdatedAt.IsZero() {
		user.LastUpdatedAt = u.LastUpdatedAt
	}
	if u.LastUpdatedBy != "" {
		user.LastUpdatedBy = u.LastUpdatedBy
	}
}

// LockoutState is the counter and lock window after a failed attempt was recorded.
type LockoutState struct {
	FailedLoginAttempts int
	LockUntil           *time.Time
}

// TokenPair is an access/refresh pair issued together.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID        string
	IsAdmin       bool
	IssuedAt      time.Time
	PasswordStamp int64
}

// RefreshClaims is the verified content of a refresh token.
type RefreshClaims struct {
	UserID   string
	IssuedAt time.Time
}

// Session is the result of a successful login or refresh.
type Session struct {
	TokenPair
	User Identity
}
