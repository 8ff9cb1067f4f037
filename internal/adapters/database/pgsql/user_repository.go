package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/SscSPs/blog_backend/internal/models"
	"github.com/SscSPs/blog_backend/internal/utils/mapping"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `user_id, username, email, password_hash, is_admin,
	failed_login_attempts, lock_until, refresh_token_hash, password_changed_at,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(db *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{BaseRepository{Pool: db}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

func scanUser(row pgx.Row) (*domain.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID,
		&m.Username,
		&m.Email,
		&m.PasswordHash,
		&m.IsAdmin,
		&m.FailedLoginAttempts,
		&m.LockUntil,
		&m.RefreshTokenHash,
		&m.PasswordChangedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainUser(m)
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// validID reports whether userID can be compared against the UUID primary key.
// Anything else cannot match a row.
func validID(userID string) bool {
	_, err := uuid.Parse(userID)
	return err == nil
}

func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	query := `
        INSERT INTO users (` + userColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
    `
	_, err := r.Pool.Exec(ctx, query,
		m.UserID,
		m.Username,
		m.Email,
		m.PasswordHash,
		m.IsAdmin,
		m.FailedLoginAttempts,
		m.LockUntil,
		m.RefreshTokenHash,
		m.PasswordChangedAt,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or email already in use: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *PgxUserRepository) findOne(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1;`
	user, err := scanUser(r.Pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by %s: %w", column, err)
	}
	return user, nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, apperrors.ErrNotFound
	}
	return r.findOne(ctx, "user_id", userID)
}

func (r *PgxUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PgxUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *PgxUserRepository) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	// Default limit if not specified or invalid
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + userColumns + `
        FROM users
        ORDER BY created_at DESC, user_id
        LIMIT $1 OFFSET $2;`
	rows, err := r.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", rows.Err())
	}
	return users, nil
}

// updateBuilder collects SET clauses and their positional arguments.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *updateBuilder) setNull(column string) {
	b.sets = append(b.sets, column+" = NULL")
}

func (r *PgxUserRepository) UpdateUserFields(ctx context.Context, userID string, update domain.UserUpdate) error {
	b := &updateBuilder{}
	if update.Username != nil {
		b.set("username", *update.Username)
	}
	if update.Email != nil {
		b.set("email", *update.Email)
	}
	if update.PasswordHash != nil {
		b.set("password_hash", *update.PasswordHash)
	}
	if update.PasswordChangedAt != nil {
		b.set("password_changed_at", *update.PasswordChangedAt)
	}
	if update.IsAdmin != nil {
		b.set("is_admin", *update.IsAdmin)
	}
	if update.FailedLoginAttempts != nil {
		b.set("failed_login_attempts", *update.FailedLoginAttempts)
	}
	if update.ClearLockUntil {
		b.setNull("lock_until")
	} else if update.LockUntil != nil {
		b.set("lock_until", *update.LockUntil)
	}
	if update.ClearRefreshToken {
		b.setNull("refresh_token_hash")
	} else if update.RefreshTokenHash != nil {
		b.set("refresh_token_hash", *update.RefreshTokenHash)
	}
	if !update.LastUpdatedAt.IsZero() {
		b.set("last_updated_at", update.LastUpdatedAt)
	}
	if update.LastUpdatedBy != "" {
		b.set("last_updated_by", update.LastUpdatedBy)
	}
	if len(b.sets) == 0 {
		return nil
	}
	if !validID(userID) {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}

	b.args = append(b.args, userID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE user_id = $%d;", strings.Join(b.sets, ", "), len(b.args))
	cmdTag, err := r.Pool.Exec(ctx, query, b.args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or email already in use: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to execute update user query: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *PgxUserRepository) IncrementFailedLogins(ctx context.Context, userID string, threshold int, lockUntil time.Time, at time.Time) (*domain.LockoutState, error) {
	query := `
        UPDATE users
        SET failed_login_attempts = failed_login_attempts + 1,
            lock_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3::timestamptz ELSE NULL END,
            last_updated_at = $4
        WHERE user_id = $1
        RETURNING failed_login_attempts, lock_until;
    `
	if !validID(userID) {
		return nil, apperrors.ErrNotFound
	}
	var m models.User
	err := r.Pool.QueryRow(ctx, query, userID, threshold, lockUntil, at).Scan(&m.FailedLoginAttempts, &m.LockUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment failed logins: %w", err)
	}

	state := &domain.LockoutState{FailedLoginAttempts: m.FailedLoginAttempts}
	if m.LockUntil.Valid {
		t := m.LockUntil.Time
		state.LockUntil = &t
	}
	return state, nil
}

func (r *PgxUserRepository) SwapRefreshToken(ctx context.Context, userID string, expectedHash string, newHash string, at time.Time) error {
	query := `
        UPDATE users
        SET refresh_token_hash = $3, last_updated_at = $4
        WHERE user_id = $1 AND refresh_token_hash = $2;
    `
	if !validID(userID) {
		return apperrors.ErrConflict
	}
	cmdTag, err := r.Pool.Exec(ctx, query, userID, expectedHash, newHash, at)
	if err != nil {
		return fmt.Errorf("failed to swap refresh token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *PgxUserRepository) DeleteUser(ctx context.Context, userID string) error {
	if !validID(userID) {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	cmdTag, err := r.Pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1;`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	return nil
}
