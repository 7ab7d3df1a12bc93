// Package storage provides the administrative client for the S3-compatible
// object-storage backend. Only control-plane operations are exposed; object
// data never flows through this service.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNoPolicy is returned by GetBucketPolicy when the backend reports that no
// policy document is attached to the bucket.
var ErrNoPolicy = errors.New("bucket has no policy")

// ErrNoBucket is returned when the backend reports that the bucket does not
// exist.
var ErrNoBucket = errors.New("bucket does not exist")

// AdminClient is the narrow control-plane interface the provisioning
// protocol depends on. It is satisfied by MinioAdmin and by test fakes.
type AdminClient interface {
	BucketExists(ctx context.Context, name string) (bool, error)
	MakeBucket(ctx context.Context, name, region string) error
	RemoveBucket(ctx context.Context, name string) error
	GetBucketPolicy(ctx context.Context, name string) (string, error)
	SetBucketPolicy(ctx context.Context, name, policyJSON string) error
}

// Config holds the connection settings for the storage backend.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

// MinioAdmin implements AdminClient against a MinIO (or other S3-compatible)
// backend.
type MinioAdmin struct {
	client *minio.Client
}

// Dial connects to the storage backend described by cfg.
func Dial(cfg Config) (*MinioAdmin, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint must not be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &MinioAdmin{client: client}, nil
}

// BucketExists reports whether the named bucket exists on the backend.
func (m *MinioAdmin) BucketExists(ctx context.Context, name string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check bucket existence: %w", err)
	}
	return exists, nil
}

// MakeBucket creates the named bucket in the given region.
func (m *MinioAdmin) MakeBucket(ctx context.Context, name, region string) error {
	if err := m.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", name, err)
	}
	return nil
}

// RemoveBucket deletes the named bucket. A backend "no such bucket" response
// is mapped to ErrNoBucket so callers can treat repeated deletes as settled.
func (m *MinioAdmin) RemoveBucket(ctx context.Context, name string) error {
	if err := m.client.RemoveBucket(ctx, name); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" {
			return ErrNoBucket
		}
		return fmt.Errorf("remove bucket %q: %w", name, err)
	}
	return nil
}

// GetBucketPolicy fetches the raw policy document attached to the bucket.
func (m *MinioAdmin) GetBucketPolicy(ctx context.Context, name string) (string, error) {
	raw, err := m.client.GetBucketPolicy(ctx, name)
	if err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "NoSuchBucketPolicy":
			return "", ErrNoPolicy
		case "NoSuchBucket":
			return "", ErrNoBucket
		}
		return "", fmt.Errorf("get bucket policy %q: %w", name, err)
	}
	if raw == "" {
		// The client maps an absent policy to an empty document.
		return "", ErrNoPolicy
	}
	return raw, nil
}

// SetBucketPolicy attaches the given policy document to the bucket.
func (m *MinioAdmin) SetBucketPolicy(ctx context.Context, name, policyJSON string) error {
	if err := m.client.SetBucketPolicy(ctx, name, policyJSON); err != nil {
		return fmt.Errorf("set bucket policy %q: %w", name, err)
	}
	return nil
}
