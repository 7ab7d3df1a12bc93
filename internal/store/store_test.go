package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestStore creates a Store backed by a temporary SQLite database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "cove.sqlite"))
	require.NoError(t, err, "Open error")
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func testUser(id, email string) User {
	return User{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		AccessKey:    "AK" + id,
		SecretKey:    "SK" + id,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndLookupUser(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	u := testUser("u1", "Alice@Example.COM")
	require.NoError(t, st.CreateUser(ctx, u), "CreateUser error")

	byID, err := st.UserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", byID.Email, "email is stored case-normalized")
	require.Equal(t, u.AccessKey, byID.AccessKey)

	// Lookup is case-insensitive.
	byEmail, err := st.UserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", byEmail.ID)

	_, err = st.UserByID(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateEmailRejected(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))

	err := st.CreateUser(ctx, testUser("u2", "Alice@Example.com"))
	require.ErrorIs(t, err, ErrNameTaken, "case-insensitive duplicate email")
}

func TestBucketReservationLifecycle(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))

	require.NoError(t, st.ReserveBucket(ctx, "my-bucket", "u1", now), "ReserveBucket error")

	// A reservation blocks any other taker.
	require.ErrorIs(t, st.ReserveBucket(ctx, "my-bucket", "u1", now), ErrNameTaken)

	// A reservation is invisible to reads.
	_, err := st.BucketByName(ctx, "my-bucket")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.ActivateBucket(ctx, "my-bucket", "u1"), "ActivateBucket error")

	rec, err := st.BucketByName(ctx, "my-bucket")
	require.NoError(t, err)
	require.Equal(t, "u1", rec.OwnerID)

	// An active record still blocks new reservations.
	require.ErrorIs(t, st.ReserveBucket(ctx, "my-bucket", "u1", now), ErrNameTaken)

	// Release does not touch active records.
	require.NoError(t, st.ReleaseBucket(ctx, "my-bucket"))
	_, err = st.BucketByName(ctx, "my-bucket")
	require.NoError(t, err, "active record survives ReleaseBucket")

	require.NoError(t, st.DeleteBucket(ctx, "my-bucket"))
	_, err = st.BucketByName(ctx, "my-bucket")
	require.ErrorIs(t, err, ErrNotFound)

	// The name is reusable after deletion.
	require.NoError(t, st.ReserveBucket(ctx, "my-bucket", "u1", now))
}

func TestReleaseAbandonedReservation(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))
	require.NoError(t, st.ReserveBucket(ctx, "tmp-bucket", "u1", time.Now().UTC()))
	require.NoError(t, st.ReleaseBucket(ctx, "tmp-bucket"))

	// Releasing again is a no-op, and the name is free.
	require.NoError(t, st.ReleaseBucket(ctx, "tmp-bucket"))
	require.NoError(t, st.ReserveBucket(ctx, "tmp-bucket", "u1", time.Now().UTC()))
}

func TestActivateRequiresMatchingReservation(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))
	require.NoError(t, st.CreateUser(ctx, testUser("u2", "bob@example.com")))

	require.ErrorIs(t, st.ActivateBucket(ctx, "unreserved", "u1"), ErrNotFound)

	require.NoError(t, st.ReserveBucket(ctx, "held", "u1", time.Now().UTC()))
	require.ErrorIs(t, st.ActivateBucket(ctx, "held", "u2"), ErrNotFound,
		"another user's reservation cannot be promoted")
}

func TestDeleteBucketNotFound(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	require.ErrorIs(t, st.DeleteBucket(context.Background(), "nope"), ErrNotFound)
}

func TestBucketsOwnedBy(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))
	require.NoError(t, st.CreateUser(ctx, testUser("u2", "bob@example.com")))

	for _, name := range []string{"b-bucket", "a-bucket"} {
		require.NoError(t, st.ReserveBucket(ctx, name, "u1", now))
		require.NoError(t, st.ActivateBucket(ctx, name, "u1"))
	}
	require.NoError(t, st.ReserveBucket(ctx, "pending-bucket", "u1", now))
	require.NoError(t, st.ReserveBucket(ctx, "other-bucket", "u2", now))
	require.NoError(t, st.ActivateBucket(ctx, "other-bucket", "u2"))

	records, err := st.BucketsOwnedBy(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 2, "reservations and other owners' buckets are excluded")
	require.Equal(t, "a-bucket", records[0].Name, "ordered by name")
	require.Equal(t, "b-bucket", records[1].Name)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))

	sess := Session{
		Token:     "tok-1",
		UserID:    "u1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, st.CreateSession(ctx, sess), "CreateSession error")

	got, err := st.SessionByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	require.NoError(t, st.DeleteSession(ctx, "tok-1"))
	_, err = st.SessionByToken(ctx, "tok-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredSessionRejected(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, testUser("u1", "alice@example.com")))
	require.NoError(t, st.CreateSession(ctx, Session{
		Token:     "stale",
		UserID:    "u1",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	_, err := st.SessionByToken(ctx, "stale")
	require.ErrorIs(t, err, ErrNotFound)
}
