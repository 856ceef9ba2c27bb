package vault

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	v, err := New(key)
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return v
}

func TestVault(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		v := newTestVault(t)

		ct, err := v.Encrypt([]byte("BQD-access-token"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if bytes.Contains(ct, []byte("BQD-access-token")) {
			t.Error("ciphertext must not contain the plaintext")
		}

		pt, err := v.Decrypt(ct)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(pt) != "BQD-access-token" {
			t.Errorf("expected original token, got %q", pt)
		}
	})

	t.Run("nonces differ", func(t *testing.T) {
		v := newTestVault(t)
		a, _ := v.Encrypt([]byte("same"))
		b, _ := v.Encrypt([]byte("same"))
		if bytes.Equal(a, b) {
			t.Error("expected distinct ciphertexts for the same plaintext")
		}
	})

	t.Run("wrong key fails loudly", func(t *testing.T) {
		a, b := newTestVault(t), newTestVault(t)
		ct, _ := a.Encrypt([]byte("secret"))

		if _, err := b.Decrypt(ct); !errors.Is(err, shared.ErrDecrypt) {
			t.Errorf("expected ErrDecrypt, got %v", err)
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		v := newTestVault(t)
		ct, _ := v.Encrypt([]byte("secret"))
		ct[len(ct)-1] ^= 0xff

		if _, err := v.Decrypt(ct); !errors.Is(err, shared.ErrDecrypt) {
			t.Errorf("expected ErrDecrypt, got %v", err)
		}
	})

	t.Run("short ciphertext", func(t *testing.T) {
		v := newTestVault(t)
		if _, err := v.Decrypt([]byte("short")); !errors.Is(err, shared.ErrDecrypt) {
			t.Errorf("expected ErrDecrypt, got %v", err)
		}
	})

	t.Run("empty plaintext", func(t *testing.T) {
		v := newTestVault(t)
		if _, err := v.Encrypt(nil); !errors.Is(err, shared.ErrEncrypt) {
			t.Errorf("expected ErrEncrypt, got %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	tc := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "url base64", key: base64.URLEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))},
		{name: "std base64", key: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{2}, 32))},
		{name: "wrong length", key: base64.StdEncoding.EncodeToString([]byte("short")), wantErr: true},
		{name: "not base64", key: "***", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.key)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}
