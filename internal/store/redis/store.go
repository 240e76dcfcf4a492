package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
	"storefront/internal/store"
)

const (
	tokenKey = "accessToken"
	userKey  = "user"
	cartKey  = "cart"
)

// Store keeps client state in Redis so several kitchen terminals can
// share one signed-in session.
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) SaveCredential(ctx context.Context, cred domain.Credential) error {
	rawUser, err := json.Marshal(cred.User)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(tokenKey), cred.AccessToken, 0)
	pipe.Set(ctx, s.key(userKey), rawUser, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *Store) LoadCredential(ctx context.Context) (domain.Credential, error) {
	token, err := s.client.Get(ctx, s.key(tokenKey)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Credential{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, err
	}
	rawUser, err := s.client.Get(ctx, s.key(userKey)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Credential{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, err
	}
	var user domain.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return domain.Credential{}, fmt.Errorf("parse persisted user: %w", err)
	}
	return domain.Credential{AccessToken: token, User: user}, nil
}

func (s *Store) ClearCredential(ctx context.Context) error {
	return s.client.Del(ctx, s.key(tokenKey), s.key(userKey)).Err()
}

func (s *Store) SaveCart(ctx context.Context, items []domain.CartItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(cartKey), raw, 0).Err()
}

func (s *Store) LoadCart(ctx context.Context) ([]domain.CartItem, error) {
	raw, err := s.client.Get(ctx, s.key(cartKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("parse persisted cart: %w", err)
	}
	return items, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key(tokenKey), s.key(userKey), s.key(cartKey)).Err()
}
