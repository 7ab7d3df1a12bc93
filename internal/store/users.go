package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// User is a registered account. Each user carries a generated storage
// access-key pair used as the principal in bucket policies.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	AccessKey    string
	SecretKey    string
	CreatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email address so that lookups and
// the uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new user. It returns ErrNameTaken if the email or
// access key is already registered.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, email, password_hash, access_key, secret_key, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		u.ID, NormalizeEmail(u.Email), u.PasswordHash, u.AccessKey, u.SecretKey, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByID returns the user with the given ID, or ErrNotFound.
func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, access_key, secret_key, created_at
		 FROM users WHERE id = ?`, id))
}

// UserByEmail returns the user registered under the given email address
// (case-insensitively), or ErrNotFound.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, access_key, secret_key, created_at
		 FROM users WHERE email = ?`, NormalizeEmail(email)))
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.AccessKey, &u.SecretKey, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness-constraint
// failure (including primary-key collisions).
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
