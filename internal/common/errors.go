// Package common defines shared constants and sentinel errors used across
// the client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Token errors (client-side decoding of the bearer token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Sealed storage errors.
	ErrSealedValueCorrupt = errors.New("sealed value corrupt")
)
