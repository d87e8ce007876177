package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: already exists")
	ErrInvalidInput    = errors.New("auth: invalid input")
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrUnauthorized    = errors.New("auth: unauthorized")

	// ErrInvalidCredential indicates a credential was presented but matched no
	// live access token. Distinct from the no-credential case, which resolves
	// to an anonymous viewer without error.
	ErrInvalidCredential = errors.New("auth: invalid credential")
)
