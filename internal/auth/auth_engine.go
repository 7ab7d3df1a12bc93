package auth

import (
	"context"
	"net/http"
)

type AuthEngine interface {

	// AuthenticateRequest inspects the given HTTP request for valid
	// authentication credentials. On success it returns the authenticated
	// user's ID and true. It returns "", false if no valid credentials are
	// present. An error is returned only if there was an issue processing
	// the authentication.
	AuthenticateRequest(ctx context.Context, rq *http.Request) (string, bool, error)
}
