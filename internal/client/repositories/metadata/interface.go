// Package metadata is the client's durable key-value store. The session
// layer keeps its bearer token and cached profile here.
package metadata

import (
	"context"
)

// Repository is a flat key-value store. Get returns (nil, nil) for a
// missing key. SetMany and Delete apply all keys or none.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
}
