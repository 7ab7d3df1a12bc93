package cove

import (
	"net/http"
)

// Handler returns the service's http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Account operations (unauthenticated).
	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	// Bucket operations (authenticated).
	authed := func(h http.HandlerFunc) http.Handler {
		return RequireAuthentication(s.cfg.Authenticator, h)
	}
	mux.Handle("GET /buckets", authed(s.handleListBuckets))
	mux.Handle("POST /buckets", authed(s.handleCreateBucket))
	mux.Handle("DELETE /buckets/{bucket}", authed(s.handleDeleteBucket))
	mux.Handle("GET /buckets/{bucket}/policy", authed(s.handleGetBucketPolicy))

	return LogRequest(SlashFix(mux))
}
