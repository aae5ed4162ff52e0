// Package identity provides the local sign-in provider and the per-screen
// session handle that reports "current identity, or none".
package identity

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hpungsan/chartd/internal/db"
	"github.com/hpungsan/chartd/internal/errors"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// DefaultTTL is the session lifetime used when a Provider has none set.
const DefaultTTL = 7 * 24 * time.Hour

// Identity is the authenticated user. ID is the owner key for saved charts.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider signs users up and in against the users and sessions tables.
type Provider struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewProvider returns a Provider whose sessions expire after ttl.
func NewProvider(database *sql.DB, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{db: database, ttl: ttl, now: time.Now}
}

// SignUp registers a new user. Emails are compared case-insensitively.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLen {
		return nil, errors.NewValidation("password", "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// bcrypt rejects passwords over 72 bytes
		return nil, errors.NewValidation("password", err.Error())
	}

	id, err := db.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	u := &db.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().Unix(),
	}
	if err := db.InsertUser(ctx, p.db, u); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewConflict("an account with this email already exists")
		}
		return nil, err
	}

	return &Identity{ID: u.ID, Email: u.Email}, nil
}

// SignIn checks the password and opens a session. The returned token is
// what Lookup and SignOut take.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, *Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	if password == "" {
		return "", nil, errors.NewValidation("password", "password is required")
	}

	u, err := db.GetUserByEmail(ctx, p.db, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", nil, errors.NewUnauthenticated("invalid email or password")
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, errors.NewUnauthenticated("invalid email or password")
	}

	token, err := newToken()
	if err != nil {
		return "", nil, errors.NewInternal(err)
	}
	now := p.now()
	if err := db.InsertSession(ctx, p.db, token, u.ID, now, now.Add(p.ttl)); err != nil {
		return "", nil, err
	}

	return token, &Identity{ID: u.ID, Email: u.Email}, nil
}

// Lookup resolves a session token. An unknown or expired token yields
// (nil, nil): no identity is not an error.
func (p *Provider) Lookup(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	u, err := db.GetSessionUser(ctx, p.db, token, p.now())
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &Identity{ID: u.ID, Email: u.Email}, nil
}

// SignOut ends a session. Unknown tokens are ignored.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return db.DeleteSession(ctx, p.db, token)
}

// PurgeExpired removes sessions past their expiry.
func (p *Provider) PurgeExpired(ctx context.Context) (int, error) {
	return db.PurgeExpiredSessions(ctx, p.db, p.now())
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.NewValidation("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.NewValidation("email", "email is not a valid address")
	}
	return email, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
