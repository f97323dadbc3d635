// Package storage implements the durable key/value store behind the todo
// data layer. Values are JSON-encoded and kept by a pluggable Backend:
// memory, SQLite, PostgreSQL or an S3 bucket, optionally sealed with
// AES-GCM.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/IsnuMdr/todo-app/internal/common"
	"github.com/IsnuMdr/todo-app/internal/logging"
)

// DurableStore is the JSON key/value contract used by the services.
// Absence is reported as found == false, never as an error.
type DurableStore interface {
	Set(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string, dst any) (bool, error)
	Remove(ctx context.Context, key string) error
	Has(ctx context.Context, key string) bool
	Clear(ctx context.Context) error
}

// Backend stores opaque encoded values.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Store is the DurableStore over a Backend. Every failure is logged and
// returned wrapped in common.ErrPersistence.
type Store struct {
	backend Backend
	log     logging.Logger
}

var _ DurableStore = (*Store)(nil)

func New(backend Backend, log logging.Logger) *Store {
	return &Store{backend: backend, log: log}
}

func (s *Store) fail(ctx context.Context, op, key string, err error) error {
	s.log.Error(ctx, "storage operation failed", "op", op, "key", key, "err", err)
	if key == "" {
		return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
	}
	return fmt.Errorf("%w: %s %q: %w", common.ErrPersistence, op, key, err)
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return s.fail(ctx, "encode", key, err)
	}
	if err := s.backend.Put(ctx, key, b); err != nil {
		return s.fail(ctx, "set", key, err)
	}
	return nil
}

// Get decodes the value under key into dst. dst is untouched when the key
// is absent.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, s.fail(ctx, "get", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, s.fail(ctx, "decode", key, err)
	}
	return true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return s.fail(ctx, "remove", key, err)
	}
	return nil
}

// Has reports presence. A backend failure is logged and reported as absent.
func (s *Store) Has(ctx context.Context, key string) bool {
	_, found, err := s.backend.Get(ctx, key)
	if err != nil {
		_ = s.fail(ctx, "has", key, err)
		return false
	}
	return found
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return s.fail(ctx, "clear", "", err)
	}
	return nil
}

// Close releases the backend if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
