package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/briefly/internal/common"
)

// SessionStore persists the bearer token and the cached user profile in a
// key-value repository under fixed keys.
type SessionStore struct {
	repo metadata.Repository
}

func NewSessionStore(repo metadata.Repository) *SessionStore {
	return &SessionStore{repo: repo}
}

// Save writes token and user in one batch.
func (s *SessionStore) Save(ctx context.Context, token string, user *models.User) error {
	u, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.repo.SetMany(ctx, map[string][]byte{
		common.TokenStoreKey: []byte(token),
		common.UserStoreKey:  u,
	})
}

// Load returns the stored token and user, read together. Missing keys
// yield "" and nil without error.
func (s *SessionStore) Load(ctx context.Context) (string, *models.User, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("load session: %w", err)
	}

	token := string(all[common.TokenStoreKey])
	raw := all[common.UserStoreKey]
	if raw == nil {
		return token, nil, nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return "", nil, fmt.Errorf("decode user: %w", err)
	}
	return token, &user, nil
}

// Clear removes both keys.
func (s *SessionStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, common.TokenStoreKey, common.UserStoreKey)
}
