// Package common contains shared constants and helpers used across
// Briefly client components.
package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token
// on outbound API requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token value in the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName tags every outbound request for log correlation.
const RequestIDHeaderName = "X-Request-ID"

// Keys under which the session is persisted in the local key-value store.
const (
	TokenStoreKey = "auth_token"
	UserStoreKey  = "user"
)
