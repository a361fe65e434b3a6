package services

import "errors"

var (
	// Startup verification failures. Each one logs the session out.
	ErrNoSession       = errors.New("no stored session")
	ErrMalformedToken  = errors.New("stored token cannot be decoded")
	ErrSessionExpired  = errors.New("session expired")
	ErrAlreadyVerified = errors.New("startup session already verified")

	ErrNotSignedIn = errors.New("not signed in")

	// ErrSuperseded is returned by a list load whose result was discarded
	// because a newer load or a list switch overtook it.
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrClosed is returned when a controller was closed while a call was
	// in flight, or is used after Close.
	ErrClosed = errors.New("controller closed")
)
