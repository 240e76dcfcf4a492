package memory

import (
	"context"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/store"
)

// Store keeps client state in memory. Used by tests and as the
// fallback when no durable backend is configured.
type Store struct {
	mu sync.RWMutex

	cred    *domain.Credential
	cart    []domain.CartItem
	hasCart bool
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) SaveCredential(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cred
	s.cred = &c
	return nil
}

func (s *Store) LoadCredential(_ context.Context) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return domain.Credential{}, store.ErrNotFound
	}
	return *s.cred, nil
}

func (s *Store) ClearCredential(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}

func (s *Store) SaveCart(_ context.Context, items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = append([]domain.CartItem(nil), items...)
	s.hasCart = true
	return nil
}

func (s *Store) LoadCart(_ context.Context) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasCart {
		return nil, store.ErrNotFound
	}
	return append([]domain.CartItem(nil), s.cart...), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.cart = nil
	s.hasCart = false
	return nil
}
