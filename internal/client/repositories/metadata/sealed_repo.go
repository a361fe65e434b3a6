package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/briefly/internal/common"
	"github.com/dmitrijs2005/briefly/internal/cryptox"
)

// SaltKey is reserved by SealedRepository for its key-derivation salt.
const SaltKey = "seal_salt"

// SealedRepository encrypts values before they reach the wrapped
// Repository. The salt is stored in clear under SaltKey and created on
// first write.
type SealedRepository struct {
	inner  Repository
	secret []byte

	mu  sync.Mutex
	key []byte
}

func NewSealedRepository(inner Repository, secret []byte) *SealedRepository {
	return &SealedRepository{inner: inner, secret: secret}
}

// derivedKey returns the cached key, loading or (when create is true)
// generating the salt. A nil key with nil error means nothing was ever
// sealed.
func (r *SealedRepository) derivedKey(ctx context.Context, create bool) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.key != nil {
		return r.key, nil
	}

	salt, err := r.inner.Get(ctx, SaltKey)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		if !create {
			return nil, nil
		}
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		if err := r.inner.Set(ctx, SaltKey, salt); err != nil {
			return nil, err
		}
	}

	r.key = cryptox.DeriveKey(r.secret, salt)
	return r.key, nil
}

func (r *SealedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := r.inner.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}

	k, err := r.derivedKey(ctx, false)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("metadata[%s]: %w", key, common.ErrSealedValueCorrupt)
	}

	plain, err := cryptox.Open(sealed, k)
	if err != nil {
		return nil, fmt.Errorf("metadata[%s]: %w", key, err)
	}
	return plain, nil
}

func (r *SealedRepository) Set(ctx context.Context, key string, value []byte) error {
	return r.SetMany(ctx, map[string][]byte{key: value})
}

func (r *SealedRepository) SetMany(ctx context.Context, values map[string][]byte) error {
	k, err := r.derivedKey(ctx, true)
	if err != nil {
		return err
	}

	sealed := make(map[string][]byte, len(values))
	for key, v := range values {
		s, err := cryptox.Seal(v, k)
		if err != nil {
			return fmt.Errorf("seal metadata[%s]: %w", key, err)
		}
		sealed[key] = s
	}
	return r.inner.SetMany(ctx, sealed)
}

func (r *SealedRepository) Delete(ctx context.Context, keys ...string) error {
	return r.inner.Delete(ctx, keys...)
}

func (r *SealedRepository) List(ctx context.Context) (map[string][]byte, error) {
	all, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	delete(all, SaltKey)
	if len(all) == 0 {
		return all, nil
	}

	k, err := r.derivedKey(ctx, false)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, common.ErrSealedValueCorrupt
	}

	out := make(map[string][]byte, len(all))
	for key, sealed := range all {
		plain, err := cryptox.Open(sealed, k)
		if err != nil {
			return nil, fmt.Errorf("metadata[%s]: %w", key, err)
		}
		out[key] = plain
	}
	return out, nil
}
