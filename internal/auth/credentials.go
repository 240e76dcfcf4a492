package auth

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/store"
)

// CredentialStore owns the current credential. All reads and writes of
// the credential go through it; persistence is written synchronously on
// Set and Clear so a concurrent reload sees a consistent value.
type CredentialStore struct {
	mu    sync.RWMutex
	state store.ClientState
	cur   *domain.Credential
}

func NewCredentialStore(state store.ClientState) *CredentialStore {
	return &CredentialStore{state: state}
}

// Load restores a previously persisted credential. Absence is not an
// error; the client simply starts unauthenticated.
func (s *CredentialStore) Load(ctx context.Context) error {
	cred, err := s.state.LoadCredential(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cur = &cred
	s.mu.Unlock()
	return nil
}

func (s *CredentialStore) Set(ctx context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.SaveCredential(ctx, cred); err != nil {
		return err
	}
	c := cred
	s.cur = &c
	return nil
}

// SetToken replaces only the access token, keeping the identity from
// the current credential. Used after a refresh, which returns a new
// token but no user record.
func (s *CredentialStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred := domain.Credential{AccessToken: token}
	if s.cur != nil {
		cred.User = s.cur.User
	}
	if err := s.state.SaveCredential(ctx, cred); err != nil {
		return err
	}
	s.cur = &cred
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	return s.state.ClearCredential(ctx)
}

func (s *CredentialStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return "", false
	}
	return s.cur.AccessToken, true
}

func (s *CredentialStore) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return domain.User{}, false
	}
	return s.cur.User, true
}
