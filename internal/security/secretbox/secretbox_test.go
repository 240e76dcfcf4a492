package secretbox

import (
	"encoding/base64"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestEncryptDecrypt(t *testing.T) {
	box, err := New(testKey(t))
	if err != nil {
		t.Fatalf("failed to create box: %v", err)
	}
	ciphertext, err := box.Encrypt("access-token-abc")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if ciphertext == "access-token-abc" {
		t.Fatal("ciphertext equals plaintext")
	}
	plaintext, err := box.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if plaintext != "access-token-abc" {
		t.Fatalf("unexpected plaintext: %s", plaintext)
	}
}

func TestNew_RejectsBadKeys(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := New("not base64!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := New(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatal("expected error for wrong key length")
	}
}

func TestDecrypt_RejectsTampering(t *testing.T) {
	box, err := New(testKey(t))
	if err != nil {
		t.Fatalf("failed to create box: %v", err)
	}
	ciphertext, err := box.Encrypt("access-token-abc")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0xff
	if _, err := box.Decrypt(base64.StdEncoding.EncodeToString(raw)); err == nil {
		t.Fatal("expected decrypt failure for tampered ciphertext")
	}
}
