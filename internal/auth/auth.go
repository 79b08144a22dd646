// Package auth is the optional identity-binding collaborator
// described in spec.md §1: channel identity itself is unauthenticated
// (a vehicle may register under any id it supplies), but when
// AUTH_VALIDATE_URL is configured, the bearer token on the stream
// upgrade request is forwarded there before the socket opens.
package auth

import (
	"context"
	"net/http"
)

// Validator checks a bearer token against the external auth
// collaborator. A Validator with no AUTH_VALIDATE_URL configured (or a
// nil Validator) accepts every connection, matching the Non-goal in
// spec.md §1.
type Validator struct {
	client         *http.Client
	validateURL    string
}

// New constructs a Validator. If validateURL is empty, Validate always
// succeeds.
func New(client *http.Client, validateURL string) *Validator {
	return &Validator{client: client, validateURL: validateURL}
}

// Validate forwards the bearer token to the configured collaborator.
// An empty validateURL (the default) makes this a no-op success.
func (v *Validator) Validate(ctx context.Context, bearerToken string) error {
	if v == nil || v.validateURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.validateURL, nil)
	if err != nil {
		return err
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ErrUnauthorized
	}
	return nil
}

// ErrUnauthorized is returned when the collaborator rejects the token.
var ErrUnauthorized = &unauthorizedError{}

type unauthorizedError struct{}

func (*unauthorizedError) Error() string { return "auth collaborator rejected token" }
