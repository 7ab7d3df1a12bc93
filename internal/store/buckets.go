package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	stateReserved = "reserved"
	stateActive   = "active"
)

// BucketRecord is a row in the bucket registry. The registry is authoritative
// for ownership; the storage backend is authoritative for bucket existence.
type BucketRecord struct {
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// ReserveBucket inserts a placeholder registry row for name before any
// storage-backend call is made. The PRIMARY KEY on name makes this the single
// serialization point for concurrent creates: exactly one caller wins, every
// other caller gets ErrNameTaken whether the existing row is a reservation or
// an active bucket.
func (s *Store) ReserveBucket(ctx context.Context, name, ownerID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO buckets(name, owner_id, state, created_at) VALUES(?, ?, ?, ?)`,
		name, ownerID, stateReserved, now,
	)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("reserve bucket: %w", err)
	}
	return nil
}

// ActivateBucket promotes a reservation to an active bucket record. It
// returns ErrNotFound if no reservation for name is held by ownerID.
func (s *Store) ActivateBucket(ctx context.Context, name, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE buckets SET state = ? WHERE name = ? AND owner_id = ? AND state = ?`,
		stateActive, name, ownerID, stateReserved,
	)
	if err != nil {
		return fmt.Errorf("activate bucket: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate bucket: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseBucket removes a reservation that did not complete. Releasing an
// already-removed reservation is not an error.
func (s *Store) ReleaseBucket(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM buckets WHERE name = ? AND state = ?`, name, stateReserved)
	if err != nil {
		return fmt.Errorf("release bucket reservation: %w", err)
	}
	return nil
}

// BucketByName returns the active registry record for name, or ErrNotFound.
// Reservations are invisible here: a half-provisioned bucket does not exist
// as far as reads are concerned.
func (s *Store) BucketByName(ctx context.Context, name string) (BucketRecord, error) {
	var rec BucketRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT name, owner_id, created_at FROM buckets WHERE name = ? AND state = ?`,
		name, stateActive,
	).Scan(&rec.Name, &rec.OwnerID, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return BucketRecord{}, ErrNotFound
	}
	if err != nil {
		return BucketRecord{}, fmt.Errorf("lookup bucket: %w", err)
	}
	return rec, nil
}

// DeleteBucket removes the active registry record for name. It returns
// ErrNotFound if no such record exists.
func (s *Store) DeleteBucket(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM buckets WHERE name = ? AND state = ?`, name, stateActive)
	if err != nil {
		return fmt.Errorf("delete bucket record: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bucket record: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// BucketsOwnedBy returns the active registry records owned by ownerID,
// ordered by name.
func (s *Store) BucketsOwnedBy(ctx context.Context, ownerID string) ([]BucketRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, owner_id, created_at FROM buckets
		 WHERE owner_id = ? AND state = ? ORDER BY name`,
		ownerID, stateActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var records []BucketRecord
	for rows.Next() {
		var rec BucketRecord
		if err := rows.Scan(&rec.Name, &rec.OwnerID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bucket record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
