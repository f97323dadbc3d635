// Package cryptox holds the secret-handling primitives of the data layer:
// argon2id verifiers for local credentials and AES-GCM sealing for values
// kept at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the per-credential random salt.
const SaltSize = 32

// ErrShortCiphertext is returned when a sealed blob is smaller than a nonce.
var ErrShortCiphertext = errors.New("ciphertext too short")

func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// NewVerifier derives the verifier stored in place of a secret.
func NewVerifier(secret, salt []byte) []byte {
	return MakeVerifier(DeriveKey(secret, salt))
}

// CheckSecret reports whether secret reproduces verifier under salt.
// The comparison runs in constant time. An empty verifier never matches.
func CheckSecret(secret, salt, verifier []byte) bool {
	if len(verifier) == 0 {
		return false
	}
	candidate := NewVerifier(secret, salt)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}

// EncryptEntry serializes v to JSON and encrypts it using AES-GCM.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A fresh
// 12-byte nonce is generated for each call and returned separately.
func EncryptEntry(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return Seal(plaintext, key)
}

// DecryptEntry opens ciphertext with key and nonce and unmarshals the
// resulting JSON into v.
func DecryptEntry(ciphertext, nonce, key []byte, v any) error {
	plaintext, err := Open(ciphertext, nonce, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}

// Seal encrypts plaintext with AES-GCM under a random nonce.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open reverses Seal.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aesgcm.NonceSize() {
		return nil, ErrShortCiphertext
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
