// Package services contains the controllers of the Briefly client.
//
// SessionController owns authentication: login, registration, logout and
// the one-time verification of a persisted session at startup. It persists
// the session through SessionStore.
//
// CollectionController owns the summary list: loading owned or shared
// summaries, category and search filtering, delete and share dialogs,
// creation, and moving into and out of the detail view. DetailController
// owns a single open summary: copying its output, downloading its input
// file and requesting a regeneration.
//
// Controllers are safe for concurrent use. State is guarded by a mutex
// that is never held across a round trip; observers registered with
// Subscribe receive copies after every change. An ErrUnauthorized from
// any call logs the session out.
package services
