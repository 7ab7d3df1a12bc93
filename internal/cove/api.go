package cove

import (
	"time"

	"cove/internal/store"
)

// Wire types for the JSON API.

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is returned once at signup. The secret key is not retrievable
// afterwards.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	AccessKey string    `json:"accessKey"`
	SecretKey string    `json:"secretKey"`
	CreatedAt time.Time `json:"createdAt"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type createBucketRequest struct {
	Name string `json:"name"`
}

type bucketResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type listBucketsResponse struct {
	Buckets []bucketResponse `json:"buckets"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toBucketResponse(rec store.BucketRecord) bucketResponse {
	return bucketResponse{
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt.UTC(),
	}
}
