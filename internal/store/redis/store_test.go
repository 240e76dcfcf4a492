package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
	"storefront/internal/store"
)

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("STOREFRONT_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestCredentialRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	s := NewStore(client, "storefront-test:")
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if _, err := s.LoadCredential(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cred := domain.Credential{
		AccessToken: "tok-redis",
		User:        domain.User{ID: 4, Email: "kitchen@test", Role: domain.RoleAdmin},
	}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatalf("save credential: %v", err)
	}
	got, err := s.LoadCredential(ctx)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if got.AccessToken != "tok-redis" || got.User.Email != "kitchen@test" {
		t.Fatalf("unexpected credential: %+v", got)
	}

	if err := s.ClearCredential(ctx); err != nil {
		t.Fatalf("clear credential: %v", err)
	}
	if _, err := s.LoadCredential(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestCartRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	s := NewStore(client, "storefront-test:")
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	items := []domain.CartItem{
		{MenuItem: domain.MenuItem{ID: 2, Name: "Vada", Price: 30, Stock: 5}, Quantity: 3},
	}
	if err := s.SaveCart(ctx, items); err != nil {
		t.Fatalf("save cart: %v", err)
	}
	got, err := s.LoadCart(ctx)
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if len(got) != 1 || got[0].Quantity != 3 || got[0].Name != "Vada" {
		t.Fatalf("unexpected cart: %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.LoadCart(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}
