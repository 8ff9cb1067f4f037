package mapping

import (
	"database/sql"
	"time"

	"github.com/SscSPs/blog_backend/internal/core/domain"
	"github.com/SscSPs/blog_backend/internal/models"
)

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	m := models.User{
		UserID:              d.UserID,
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		IsAdmin:             d.IsAdmin,
		FailedLoginAttempts: d.FailedLoginAttempts,
		PasswordChangedAt:   d.PasswordChangedAt,
		AuditFields:         ToModelAuditFields(d.AuditFields),
	}
	if d.LockUntil != nil {
		m.LockUntil = sql.NullTime{Time: *d.LockUntil, Valid: true}
	}
	if d.RefreshTokenHash != nil {
		m.RefreshTokenHash = sql.NullString{String: *d.RefreshTokenHash, Valid: true}
	}
	return m
}

// ToDomainUser converts a model User to a domain User
func ToDomainUser(m models.User) domain.User {
	d := domain.User{
		UserID:              m.UserID,
		Username:            m.Username,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		IsAdmin:             m.IsAdmin,
		FailedLoginAttempts: m.FailedLoginAttempts,
		PasswordChangedAt:   m.PasswordChangedAt,
		AuditFields:         ToDomainAuditFields(m.AuditFields),
	}
	if m.LockUntil.Valid {
		t := m.LockUntil.Time
		d.LockUntil = &t
	}
	if m.RefreshTokenHash.Valid {
		h := m.RefreshTokenHash.String
		d.RefreshTokenHash = &h
	}
	return d
}

// ToUserDocument converts a domain User to its BSON document.
func ToUserDocument(d domain.User) models.UserDocument {
	return models.UserDocument{
		UserID:              d.UserID,
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		IsAdmin:             d.IsAdmin,
		FailedLoginAttempts: d.FailedLoginAttempts,
		LockUntil:           utcPtr(d.LockUntil),
		RefreshTokenHash:    d.RefreshTokenHash,
		PasswordChangedAt:   d.PasswordChangedAt.UTC(),
		AuditFields:         ToModelAuditFields(d.AuditFields),
	}
}

// FromUserDocument converts a BSON document to a domain User.
func FromUserDocument(m models.UserDocument) domain.User {
	return domain.User{
		UserID:              m.UserID,
		Username:            m.Username,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		IsAdmin:             m.IsAdmin,
		FailedLoginAttempts: m.FailedLoginAttempts,
		LockUntil:           m.LockUntil,
		RefreshTokenHash:    m.RefreshTokenHash,
		PasswordChangedAt:   m.PasswordChangedAt,
		AuditFields:         ToDomainAuditFields(m.AuditFields),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
