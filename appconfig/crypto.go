package appconfig

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 4096
	keyLen           = 32 // secretbox requires a 32-byte key
	nonceLen         = 24
)

// Encrypt encrypts plaintext under the named encryption key (§3 "encryption
// keys by name"). The key material is derived from the configured secret
// via PBKDF2 so that arbitrary-length operator-supplied secrets can back a
// fixed-size secretbox key.
func (c *AppConfig) Encrypt(name string, plaintext []byte) ([]byte, error) {
	enc, ok := c.Encryptions[name]
	if !ok {
		return nil, fmt.Errorf("appconfig: unknown encryption key %q", name)
	}

	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("appconfig: failed to generate nonce: %w", err)
	}

	key := deriveKey(enc)
	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &key)
	return sealed, nil
}

// Decrypt reverses Encrypt. ciphertext must be exactly what Encrypt
// returned (nonce-prefixed sealed box).
func (c *AppConfig) Decrypt(name string, ciphertext []byte) ([]byte, error) {
	enc, ok := c.Encryptions[name]
	if !ok {
		return nil, fmt.Errorf("appconfig: unknown encryption key %q", name)
	}
	if len(ciphertext) < nonceLen {
		return nil, fmt.Errorf("appconfig: ciphertext too short")
	}

	var nonce [nonceLen]byte
	copy(nonce[:], ciphertext[:nonceLen])

	key := deriveKey(enc)
	plaintext, ok := secretbox.Open(nil, ciphertext[nonceLen:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("appconfig: decryption failed for key %q", name)
	}
	return plaintext, nil
}

func deriveKey(enc Encryption) [keyLen]byte {
	// The encryption ID salts the derivation so the same secret configured
	// under two different key names never produces the same key material.
	salt := sha256.Sum256([]byte(enc.ID))
	derived := pbkdf2.Key([]byte(enc.Secret), salt[:], pbkdf2Iterations, keyLen, sha256.New)
	var key [keyLen]byte
	copy(key[:], derived)
	return key
}
