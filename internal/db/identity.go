package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/chartd/internal/errors"
)

// User is a row of the users table.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    int64
}

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.ChartError{
	Code:    errors.ErrConflict,
	Status:  409,
	Message: "unique constraint violation",
}

// InsertUser stores a new user. Returns ErrUniqueConstraint when the email
// is already registered (case-insensitive).
func InsertUser(ctx context.Context, db *sql.DB, u *User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewStoreUnavailable("sign-up", err)
	}
	return nil
}

// GetUserByEmail looks a user up by email, ignoring case.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ? COLLATE NOCASE`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("user", email)
	}
	if err != nil {
		return nil, errors.NewStoreUnavailable("sign-in", err)
	}
	return &u, nil
}

// InsertSession stores a sign-in session token for a user.
func InsertSession(ctx context.Context, db *sql.DB, token, userID string, createdAt, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, createdAt.Unix(), expiresAt.Unix(),
	)
	if err != nil {
		return errors.NewStoreUnavailable("sign-in", err)
	}
	return nil
}

// GetSessionUser returns the user owning an unexpired session token.
func GetSessionUser(ctx context.Context, db *sql.DB, token string, now time.Time) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password_hash, u.created_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, now.Unix()).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", "")
	}
	if err != nil {
		return nil, errors.NewStoreUnavailable("session", err)
	}
	return &u, nil
}

// DeleteSession removes a session token. Unknown tokens are ignored.
func DeleteSession(ctx context.Context, db *sql.DB, token string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return errors.NewStoreUnavailable("sign-out", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired at or before now and
// returns how many were removed.
func PurgeExpiredSessions(ctx context.Context, db *sql.DB, now time.Time) (int, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, errors.NewStoreUnavailable("purge sessions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewStoreUnavailable("purge sessions", err)
	}
	return int(n), nil
}
