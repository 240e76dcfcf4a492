package file

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
	"storefront/internal/store"
)

func TestCredentialSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	s := NewStore(path, nil)
	cred := domain.Credential{
		AccessToken: "tok-file",
		User:        domain.User{ID: 7, Email: "k@test", Role: domain.RoleAdmin},
	}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatalf("save credential: %v", err)
	}

	// A fresh store over the same path models process restart.
	reloaded := NewStore(path, nil)
	got, err := reloaded.LoadCredential(ctx)
	if err != nil {
		t.Fatalf("load credential after reload: %v", err)
	}
	if got.AccessToken != "tok-file" || got.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected credential: %+v", got)
	}
}

func TestCartDoesNotDisturbCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()
	s := NewStore(path, nil)

	if err := s.SaveCredential(ctx, domain.Credential{AccessToken: "tok", User: domain.User{ID: 1}}); err != nil {
		t.Fatalf("save credential: %v", err)
	}
	items := []domain.CartItem{{MenuItem: domain.MenuItem{ID: 3, Name: "Idli", Price: 40, Stock: 9}, Quantity: 1}}
	if err := s.SaveCart(ctx, items); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	if _, err := s.LoadCredential(ctx); err != nil {
		t.Fatalf("credential lost after cart save: %v", err)
	}
	cart, err := s.LoadCart(ctx)
	if err != nil || len(cart) != 1 || cart[0].Name != "Idli" {
		t.Fatalf("unexpected cart: %v %v", cart, err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := s.LoadCredential(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestEncryptedTokenNotStoredInPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	box, err := secretbox.New(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	s := NewStore(path, box)
	if err := s.SaveCredential(ctx, domain.Credential{AccessToken: "super-secret-token", User: domain.User{ID: 1}}); err != nil {
		t.Fatalf("save credential: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	if strings.Contains(string(raw), "super-secret-token") {
		t.Fatal("access token stored in plaintext")
	}

	got, err := s.LoadCredential(ctx)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if got.AccessToken != "super-secret-token" {
		t.Fatalf("unexpected token: %q", got.AccessToken)
	}
}
