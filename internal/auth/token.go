package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"cove/internal/store"
)

const (
	BearerPrefix = "Bearer "

	// SessionTTL is how long an issued token stays valid.
	SessionTTL = 24 * time.Hour
)

// TokenAuthEngine authenticates requests carrying a bearer token issued at
// login and stored in the session table.
type TokenAuthEngine struct {
	sessions SessionStore
}

// SessionStore is the slice of the database the token engine needs.
type SessionStore interface {
	CreateSession(ctx context.Context, sess store.Session) error
	SessionByToken(ctx context.Context, token string) (store.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// NewTokenAuthEngine creates a TokenAuthEngine backed by the given session
// store.
func NewTokenAuthEngine(sessions SessionStore) *TokenAuthEngine {
	return &TokenAuthEngine{sessions: sessions}
}

// AuthenticateRequest checks the Authorization header for a valid bearer
// token. It returns the session's user ID if the token is known and not
// expired.
func (e *TokenAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (string, bool, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", false, nil
	}

	token := strings.TrimSpace(authHeader[len(BearerPrefix):])
	if token == "" {
		return "", false, nil
	}

	sess, err := e.sessions.SessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return sess.UserID, true, nil
}

// IssueToken creates and persists a new session for the given user, returning
// the token and its expiry.
func (e *TokenAuthEngine) IssueToken(ctx context.Context, userID string) (store.Session, error) {
	sess := store.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(SessionTTL),
	}
	if err := e.sessions.CreateSession(ctx, sess); err != nil {
		return store.Session{}, err
	}
	return sess, nil
}
