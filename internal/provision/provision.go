// Package provision coordinates bucket creation and deletion across the two
// external systems that together define a bucket: the object-storage backend
// and the registry database. The two cannot be mutated in one transaction, so
// each operation is a linear pipeline of remote calls with explicit
// compensating steps on failure (a saga).
//
// Concurrent creates for the same name are serialized by reserving the name
// in the registry before any backend call: the registry's uniqueness
// constraint arbitrates, and the loser fails before it has created anything
// that would need compensation.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"cove/internal/policy"
	"cove/internal/storage"
	"cove/internal/store"
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidBucketName reports whether name satisfies the naming rule enforced by
// the storage backend: 3-63 characters, lowercase alphanumerics and hyphens,
// not starting or ending with a hyphen.
func ValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	return bucketNamePattern.MatchString(name)
}

// UserDirectory resolves user identities.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (store.User, error)
}

// Registry is the relational record of bucket-name-to-owner mappings.
type Registry interface {
	ReserveBucket(ctx context.Context, name, ownerID string, now time.Time) error
	ActivateBucket(ctx context.Context, name, ownerID string) error
	ReleaseBucket(ctx context.Context, name string) error
	BucketByName(ctx context.Context, name string) (store.BucketRecord, error)
	DeleteBucket(ctx context.Context, name string) error
	BucketsOwnedBy(ctx context.Context, ownerID string) ([]store.BucketRecord, error)
}

// Provisioner orchestrates the create/delete-bucket workflow. All
// collaborators are injected so the protocol is testable with fakes.
type Provisioner struct {
	users    UserDirectory
	registry Registry
	admin    storage.AdminClient
	region   string
}

// New returns a Provisioner creating buckets in the given backend region.
func New(users UserDirectory, registry Registry, admin storage.AdminClient, region string) *Provisioner {
	if region == "" {
		region = "us-east-1"
	}
	return &Provisioner{
		users:    users,
		registry: registry,
		admin:    admin,
		region:   region,
	}
}

// Create provisions a bucket named name for the given user: it reserves the
// name in the registry, creates the backend bucket, attaches the single-owner
// policy, and promotes the reservation to an active record.
//
// On success all three artifacts (backend bucket, policy, registry record)
// exist. On failure none remain: every later step compensates by removing
// whatever the earlier steps created, best-effort.
func (p *Provisioner) Create(ctx context.Context, userID, name string) (store.BucketRecord, error) {
	const op = "provision.Create"

	user, err := p.users.UserByID(ctx, userID)
	if err != nil {
		return store.BucketRecord{}, &Error{Kind: KindUserNotFound, Op: op, Err: err}
	}

	now := time.Now().UTC()

	// Take the name before touching the backend. The registry's uniqueness
	// constraint is the arbiter for concurrent creates.
	if err := p.registry.ReserveBucket(ctx, name, user.ID, now); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			return store.BucketRecord{}, &Error{Kind: KindNameConflict, Op: op, Err: err}
		}
		return store.BucketRecord{}, &Error{Kind: KindRegistrationFailed, Op: op, Err: err}
	}

	exists, err := p.admin.BucketExists(ctx, name)
	if err != nil {
		p.releaseReservation(ctx, name)
		return store.BucketRecord{}, &Error{Kind: KindStorageCreateFailed, Op: op, Err: err}
	}
	if exists {
		// Registry and backend have drifted; refuse rather than adopt a
		// bucket whose contents and policy are unknown.
		p.releaseReservation(ctx, name)
		return store.BucketRecord{}, &Error{
			Kind: KindStorageCreateFailed,
			Op:   op,
			Err:  fmt.Errorf("bucket %q already exists on the storage backend", name),
		}
	}

	if err := p.admin.MakeBucket(ctx, name, p.region); err != nil {
		p.releaseReservation(ctx, name)
		return store.BucketRecord{}, &Error{Kind: KindStorageCreateFailed, Op: op, Err: err}
	}

	doc, err := policy.Marshal(policy.OwnerOnly(name, user.AccessKey))
	if err != nil {
		p.compensateRemoveBucket(ctx, name)
		p.releaseReservation(ctx, name)
		return store.BucketRecord{}, &Error{Kind: KindPolicySetFailed, Op: op, Err: err}
	}

	if err := p.admin.SetBucketPolicy(ctx, name, doc); err != nil {
		p.compensateRemoveBucket(ctx, name)
		p.releaseReservation(ctx, name)
		return store.BucketRecord{}, &Error{Kind: KindPolicySetFailed, Op: op, Err: err}
	}

	if err := p.registry.ActivateBucket(ctx, name, user.ID); err != nil {
		p.compensateRemoveBucket(ctx, name)
		p.releaseReservation(ctx, name)
		return store.BucketRecord{}, &Error{Kind: KindRegistrationFailed, Op: op, Err: err}
	}

	return store.BucketRecord{Name: name, OwnerID: user.ID, CreatedAt: now}, nil
}

// Delete removes the bucket named name if it is owned by userID. The backend
// bucket is removed first; the registry record is only dropped once the
// backend delete has settled, so a failed backend call never orphans the
// bucket from the owner's view.
func (p *Provisioner) Delete(ctx context.Context, userID, name string) error {
	const op = "provision.Delete"

	rec, err := p.registry.BucketByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.OwnerID != userID) {
		// One error for both cases: non-owners must not learn the name is
		// taken.
		return &Error{Kind: KindNotFoundOrNotOwned, Op: op}
	}
	if err != nil {
		return &Error{Kind: KindNotFoundOrNotOwned, Op: op, Err: err}
	}

	if err := p.admin.RemoveBucket(ctx, name); err != nil && !errors.Is(err, storage.ErrNoBucket) {
		return &Error{Kind: KindStorageDeleteFailed, Op: op, Err: err}
	}

	if err := p.registry.DeleteBucket(ctx, name); err != nil {
		// The backend bucket is already gone; this leaves a dangling
		// registry record until the delete is retried.
		return &Error{Kind: KindRegistrationDeleteFailed, Op: op, Err: err}
	}

	return nil
}

// GetPolicy fetches the live policy document for name from the backend.
// Ownership is not re-verified here; the access-control layer in front of
// this call has already established it.
func (p *Provisioner) GetPolicy(ctx context.Context, name string) (policy.Document, error) {
	const op = "provision.GetPolicy"

	raw, err := p.admin.GetBucketPolicy(ctx, name)
	if errors.Is(err, storage.ErrNoPolicy) || errors.Is(err, storage.ErrNoBucket) {
		return policy.Document{}, &Error{Kind: KindPolicyNotFound, Op: op, Err: err}
	}
	if err != nil {
		return policy.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	doc, err := policy.Parse(raw)
	if err != nil {
		return policy.Document{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

// OwnedBy lists the registry records owned by userID.
func (p *Provisioner) OwnedBy(ctx context.Context, userID string) ([]store.BucketRecord, error) {
	return p.registry.BucketsOwnedBy(ctx, userID)
}

// compensateRemoveBucket undoes an earlier MakeBucket after a later step
// failed. Compensation failures are logged, never surfaced: they would mask
// the primary failure and the caller cannot act on them.
func (p *Provisioner) compensateRemoveBucket(ctx context.Context, name string) {
	if err := p.admin.RemoveBucket(ctx, name); err != nil && !errors.Is(err, storage.ErrNoBucket) {
		slog.Error("Compensating bucket delete failed; storage bucket may be orphaned",
			"bucket", name, "err", err)
	}
}

func (p *Provisioner) releaseReservation(ctx context.Context, name string) {
	if err := p.registry.ReleaseBucket(ctx, name); err != nil {
		slog.Error("Releasing bucket-name reservation failed", "bucket", name, "err", err)
	}
}
