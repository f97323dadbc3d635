package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/IsnuMdr/todo-app/internal/cryptox"
)

type sealed struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// EncryptedStore seals every value with AES-GCM before handing it to the
// wrapped backend. Values must be JSON documents, which is what Store
// writes.
type EncryptedStore struct {
	next Backend
	key  []byte
}

func NewEncryptedStore(next Backend, key []byte) (*EncryptedStore, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("storage key must be 16, 24 or 32 bytes, got %d", len(key))
	}
	return &EncryptedStore{next: next, key: key}, nil
}

// ParseStorageKey decodes a hex-encoded AES key.
func ParseStorageKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("storage key: %w", err)
	}
	return key, nil
}

func (e *EncryptedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, found, err := e.next.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}

	var env sealed
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, fmt.Errorf("sealed value: %w", err)
	}

	var plain json.RawMessage
	if err := cryptox.DecryptEntry(env.Data, env.Nonce, e.key, &plain); err != nil {
		return nil, false, fmt.Errorf("decrypt: %w", err)
	}
	return plain, true, nil
}

func (e *EncryptedStore) Put(ctx context.Context, key string, value []byte) error {
	ct, nonce, err := cryptox.EncryptEntry(json.RawMessage(value), e.key)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	raw, err := json.Marshal(sealed{Nonce: nonce, Data: ct})
	if err != nil {
		return err
	}
	return e.next.Put(ctx, key, raw)
}

func (e *EncryptedStore) Delete(ctx context.Context, key string) error {
	return e.next.Delete(ctx, key)
}

func (e *EncryptedStore) Clear(ctx context.Context) error {
	return e.next.Clear(ctx)
}

func (e *EncryptedStore) Close() error {
	if c, ok := e.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
