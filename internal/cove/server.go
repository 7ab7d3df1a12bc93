package cove

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"cove/internal/auth"
	"cove/internal/provision"
	"cove/internal/store"
)

const minPasswordLength = 8

// Server exposes the per-user bucket management API over HTTP. It owns no
// bucket mechanics itself: handlers validate input, resolve the caller, and
// delegate to the provisioning protocol.
type Server struct {
	cfg     Config
	tokens  *auth.TokenAuthEngine
	buckets *provision.Provisioner
}

// NewServer wires a Server from its collaborators. Store and Admin are
// required; the authenticator defaults to the session-token engine backed by
// the store.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("Store must not be nil")
	}
	if cfg.Admin == nil {
		return nil, errors.New("Admin client must not be nil")
	}

	tokens := auth.NewTokenAuthEngine(cfg.Store)
	if cfg.Authenticator == nil {
		cfg.Authenticator = tokens
	}

	return &Server{
		cfg:     cfg,
		tokens:  tokens,
		buckets: provision.New(cfg.Store, cfg.Store, cfg.Admin, cfg.Region),
	}, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid request body")
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidEmail", "a valid email address is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "WeakPassword", "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("Hashing password failed", "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not create user")
		return
	}

	accessKey, secretKey, err := auth.GenerateKeyPair()
	if err != nil {
		slog.Error("Generating access keys failed", "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not create user")
		return
	}

	user := store.User{
		ID:           uuid.NewString(),
		Email:        store.NormalizeEmail(req.Email),
		PasswordHash: hash,
		AccessKey:    accessKey,
		SecretKey:    secretKey,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.cfg.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			writeError(w, http.StatusConflict, "EmailTaken", "email is already registered")
			return
		}
		slog.Error("Creating user failed", "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not create user")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:        user.ID,
		Email:     user.Email,
		AccessKey: user.AccessKey,
		SecretKey: user.SecretKey,
		CreatedAt: user.CreatedAt,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid request body")
		return
	}

	user, err := s.cfg.Store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		writeError(w, http.StatusUnauthorized, "InvalidCredentials", "email or password is incorrect")
		return
	}
	if err != nil {
		slog.Error("Looking up user failed", "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not log in")
		return
	}

	sess, err := s.tokens.IssueToken(r.Context(), user.ID)
	if err != nil {
		slog.Error("Issuing session token failed", "user", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not log in")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	records, err := s.buckets.OwnedBy(r.Context(), userID)
	if err != nil {
		slog.Error("Listing buckets failed", "user", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not list buckets")
		return
	}

	resp := listBucketsResponse{Buckets: []bucketResponse{}}
	for _, rec := range records {
		resp.Buckets = append(resp.Buckets, toBucketResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req createBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid request body")
		return
	}

	if !provision.ValidBucketName(req.Name) {
		writeError(w, http.StatusBadRequest, "InvalidBucketName",
			"bucket names are 3-63 lowercase letters, digits, and hyphens, and must not start or end with a hyphen")
		return
	}

	rec, err := s.buckets.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeProvisionError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBucketResponse(rec))
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	name := r.PathValue("bucket")

	if err := s.buckets.Delete(r.Context(), userID, name); err != nil {
		writeProvisionError(w, userID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBucketPolicy(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	name := r.PathValue("bucket")

	// Ownership gate. The provisioning protocol itself does not re-verify
	// ownership for policy reads, so it must be established here, and the
	// failure must not reveal whether the bucket exists under another owner.
	rec, err := s.cfg.Store.BucketByName(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.OwnerID != userID) {
		writeError(w, http.StatusNotFound, string(provision.KindNotFoundOrNotOwned),
			"no bucket of that name is owned by you")
		return
	}
	if err != nil {
		slog.Error("Looking up bucket failed", "bucket", name, "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "could not look up bucket")
		return
	}

	doc, err := s.buckets.GetPolicy(r.Context(), name)
	if err != nil {
		writeProvisionError(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeProvisionError maps a provisioning error kind to an HTTP response.
func writeProvisionError(w http.ResponseWriter, userID string, err error) {
	kind := provision.KindOf(err)

	status := http.StatusInternalServerError
	message := "bucket operation failed"

	switch kind {
	case provision.KindNameConflict:
		status = http.StatusConflict
		message = "bucket name is already taken"
	case provision.KindNotFoundOrNotOwned:
		status = http.StatusNotFound
		message = "no bucket of that name is owned by you"
	case provision.KindPolicyNotFound:
		status = http.StatusNotFound
		message = "bucket has no policy"
	case provision.KindStorageCreateFailed, provision.KindPolicySetFailed, provision.KindStorageDeleteFailed:
		status = http.StatusBadGateway
		message = "storage backend request failed"
	case provision.KindUserNotFound, provision.KindRegistrationFailed, provision.KindRegistrationDeleteFailed:
		status = http.StatusInternalServerError
	default:
		kind = "InternalError"
	}

	if status >= 500 {
		slog.Error("Bucket operation failed", "user", userID, "kind", kind, "err", err)
	}
	writeError(w, status, string(kind), message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encoding JSON response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Kind: kind, Message: message})
}
