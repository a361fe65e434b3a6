// Package client contains the transport layer of the Briefly client.
//
// # Overview
//
// The package provides:
//  1. The Client interface, a typed contract of the Briefly API: user
//     registration and login, listing owned and shared summaries,
//     creating summaries from text or files, fetching, deleting, sharing,
//     regenerating, and downloading input files.
//  2. HTTPClient, the HTTP/JSON implementation. It unwraps the
//     {"status", "result"} envelope, attaches the bearer token carried by
//     the context (WithAccessToken) and tags each request with an
//     X-Request-ID.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Failures are classified by sentinel errors matched with errors.Is:
// ErrUnauthorized, ErrNotFound, ErrValidation, ErrUnavailable, ErrServer
// and ErrMalformedResponse. Error responses are returned as *APIError,
// which keeps the server's detail text; Message turns any error into text
// fit for the user.
//
// No method retries. A timeout is reported as ErrUnavailable like any
// other transport failure.
package client
