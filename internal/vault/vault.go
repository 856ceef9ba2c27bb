// package vault seals OAuth tokens at rest.
//
// Ciphertext layout is a random 24 byte nonce followed by the secretbox output,
// so a wrong key or any tampering fails authentication instead of producing garbage.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	KeySize   = 32
	nonceSize = 24
)

// Cipher is the symmetric primitive the token manager depends on.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Vault implements [Cipher] with NaCl secretbox.
type Vault struct {
	key  [KeySize]byte
	rand io.Reader
}

var _ Cipher = (*Vault)(nil)

// New builds a Vault from a base64 (standard or URL alphabet) encoded 32 byte key.
func New(encodedKey string) (*Vault, error) {
	raw, err := decodeKey(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: vault key must decode to %d bytes, got %d", shared.ErrInvalidConfig, KeySize, len(raw))
	}

	v := &Vault{rand: rand.Reader}
	copy(v.key[:], raw)
	return v, nil
}

// GenerateKey returns a fresh base64 encoded key suitable for [New].
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// Encrypt seals plaintext under a random nonce.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", shared.ErrEncrypt)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(v.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrEncrypt, err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &v.key), nil
}

// Decrypt opens ciphertext produced by [Vault.Encrypt].
func (v *Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", shared.ErrDecrypt)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &v.key)
	if !ok {
		return nil, fmt.Errorf("%w: authentication failed (wrong key or corrupt data)", shared.ErrDecrypt)
	}
	return plaintext, nil
}

func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding, base64.RawURLEncoding, base64.RawStdEncoding} {
		if raw, err := enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("vault key is not valid base64")
}
