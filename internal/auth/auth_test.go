package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cove/internal/store"
)

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err, "HashPassword error")
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, CheckPassword(hash, "correct horse battery staple"))
	require.False(t, CheckPassword(hash, "wrong password"))
	require.False(t, CheckPassword("not-a-hash", "anything"))
}

func TestGenerateKeyPair(t *testing.T) {
	t.Parallel()

	accessKey, secretKey, err := GenerateKeyPair()
	require.NoError(t, err, "GenerateKeyPair error")
	require.Len(t, accessKey, 20)
	require.Len(t, secretKey, 40)

	otherAccess, otherSecret, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NotEqual(t, accessKey, otherAccess, "access keys must be unique")
	require.NotEqual(t, secretKey, otherSecret, "secret keys must be unique")
}

// memorySessions is an in-memory SessionStore for engine tests.
type memorySessions struct {
	sessions map[string]store.Session
}

func (m *memorySessions) CreateSession(_ context.Context, sess store.Session) error {
	m.sessions[sess.Token] = sess
	return nil
}

func (m *memorySessions) SessionByToken(_ context.Context, token string) (store.Session, error) {
	sess, ok := m.sessions[token]
	if !ok || time.Now().UTC().After(sess.ExpiresAt) {
		return store.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (m *memorySessions) DeleteSession(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func TestTokenAuthEngine(t *testing.T) {
	t.Parallel()

	engine := NewTokenAuthEngine(&memorySessions{sessions: make(map[string]store.Session)})
	ctx := context.Background()

	sess, err := engine.IssueToken(ctx, "u1")
	require.NoError(t, err, "IssueToken error")
	require.NotEmpty(t, sess.Token)
	require.WithinDuration(t, time.Now().UTC().Add(SessionTTL), sess.ExpiresAt, time.Minute)

	tests := []struct {
		name       string
		authHeader string
		wantUser   string
		wantOK     bool
	}{
		{name: "valid token", authHeader: BearerPrefix + sess.Token, wantUser: "u1", wantOK: true},
		{name: "unknown token", authHeader: BearerPrefix + "bogus"},
		{name: "missing header"},
		{name: "wrong scheme", authHeader: "Basic dXNlcjpwYXNz"},
		{name: "empty token", authHeader: BearerPrefix},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r, err := http.NewRequest(http.MethodGet, "/buckets", nil)
			require.NoError(t, err)
			if tc.authHeader != "" {
				r.Header.Set("Authorization", tc.authHeader)
			}

			userID, ok, err := engine.AuthenticateRequest(ctx, r)
			require.NoError(t, err)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.wantUser, userID)
		})
	}
}
