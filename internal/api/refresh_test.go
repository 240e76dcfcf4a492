package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/store/memory"
)

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestRefreshIfExpiring_RefreshesNearExpiryToken(t *testing.T) {
	var refreshCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/refresh-token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&refreshCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": freshToken})
	}))
	defer srv.Close()

	state := memory.NewStore()
	creds := auth.NewCredentialStore(state)
	client := NewClient(srv.URL, creds, state, nil, 30*time.Second)

	if err := creds.Set(context.Background(), domain.Credential{
		AccessToken: signedToken(t, 5*time.Second),
		User:        domain.User{ID: 1},
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	if err := client.RefreshIfExpiring(context.Background()); err != nil {
		t.Fatalf("refresh if expiring: %v", err)
	}
	if atomic.LoadInt32(&refreshCalls) != 1 {
		t.Fatalf("expected 1 refresh call, got %d", refreshCalls)
	}
	if tok, _ := creds.Token(); tok != freshToken {
		t.Fatalf("token not replaced, got %q", tok)
	}
}

func TestRefreshIfExpiring_LeavesHealthyTokenAlone(t *testing.T) {
	var refreshCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
	}))
	defer srv.Close()

	state := memory.NewStore()
	creds := auth.NewCredentialStore(state)
	client := NewClient(srv.URL, creds, state, nil, 30*time.Second)

	if err := creds.Set(context.Background(), domain.Credential{
		AccessToken: signedToken(t, time.Hour),
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	if err := client.RefreshIfExpiring(context.Background()); err != nil {
		t.Fatalf("refresh if expiring: %v", err)
	}
	if atomic.LoadInt32(&refreshCalls) != 0 {
		t.Fatal("healthy token should not be refreshed")
	}
}

func TestRefreshIfExpiring_NoCredentialIsNoOp(t *testing.T) {
	state := memory.NewStore()
	creds := auth.NewCredentialStore(state)
	client := NewClient("http://127.0.0.1:0", creds, state, nil, 30*time.Second)

	if err := client.RefreshIfExpiring(context.Background()); err != nil {
		t.Fatalf("expected no-op without credential, got %v", err)
	}
}

func TestExpiresWithin_IgnoresOpaqueTokens(t *testing.T) {
	if expiresWithin("not-a-jwt", time.Hour) {
		t.Fatal("opaque token must not be treated as expiring")
	}
}
