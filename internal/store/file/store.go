package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
	"storefront/internal/store"
)

type stateFile struct {
	AccessToken string             `json:"accessToken,omitempty"`
	User        *domain.User       `json:"user,omitempty"`
	Cart        *[]domain.CartItem `json:"cart,omitempty"`
}

// Store persists client state as a single JSON file, the desktop
// equivalent of the browser's local storage. When a Box is supplied the
// access token is encrypted at rest.
type Store struct {
	mu   sync.Mutex
	path string
	box  *secretbox.Box
}

func NewStore(path string, box *secretbox.Box) *Store {
	return &Store{path: path, box: box}
}

func (s *Store) SaveCredential(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	token := cred.AccessToken
	if s.box != nil {
		token, err = s.box.Encrypt(token)
		if err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
	}
	user := cred.User
	state.AccessToken = token
	state.User = &user
	return s.write(state)
}

func (s *Store) LoadCredential(_ context.Context) (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return domain.Credential{}, err
	}
	if state.AccessToken == "" || state.User == nil {
		return domain.Credential{}, store.ErrNotFound
	}
	token := state.AccessToken
	if s.box != nil {
		token, err = s.box.Decrypt(token)
		if err != nil {
			return domain.Credential{}, fmt.Errorf("decrypt access token: %w", err)
		}
	}
	return domain.Credential{AccessToken: token, User: *state.User}, nil
}

func (s *Store) ClearCredential(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	state.AccessToken = ""
	state.User = nil
	return s.write(state)
}

func (s *Store) SaveCart(_ context.Context, items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	snapshot := append([]domain.CartItem(nil), items...)
	state.Cart = &snapshot
	return s.write(state)
}

func (s *Store) LoadCart(_ context.Context) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return nil, err
	}
	if state.Cart == nil {
		return nil, store.ErrNotFound
	}
	return append([]domain.CartItem(nil), *state.Cart...), nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) read() (stateFile, error) {
	var state stateFile
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, err
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return stateFile{}, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	return state, nil
}

// write replaces the state file atomically so a crash mid-write never
// leaves a truncated file behind.
func (s *Store) write(state stateFile) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".storefront-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
