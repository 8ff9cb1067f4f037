package models

import (
	"database/sql"
	"time"
)

// User is the persisted form of an account, shared by the postgres and mongo
// adapters. Nullable columns use sql.Null* for pgx scanning; the mongo adapter
// maps them through UserDocument.
type User struct {
	UserID       string `db:"user_id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	IsAdmin      bool   `db:"is_admin"`

	FailedLoginAttempts int          `db:"failed_login_attempts"`
	LockUntil           sql.NullTime `db:"lock_until"`

	RefreshTokenHash  sql.NullString `db:"refresh_token_hash"` // Store hash of the refresh token
	PasswordChangedAt time.Time      `db:"password_changed_at"`

	AuditFields
}

// UserDocument is the BSON shape of a user in the users collection.
type UserDocument struct {
	UserID       string `bson:"_id"`
	Username     string `bson:"username"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	IsAdmin      bool   `bson:"is_admin"`

	FailedLoginAttempts int        `bson:"failed_login_attempts"`
	LockUntil           *time.Time `bson:"lock_until"`

	RefreshTokenHash  *string   `bson:"refresh_token_hash"`
	PasswordChangedAt time.Time `bson:"password_changed_at"`

	AuditFields `bson:",inline"`
}
