package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/IsnuMdr/todo-app/internal/config"
	"github.com/IsnuMdr/todo-app/internal/filex"
	"github.com/IsnuMdr/todo-app/internal/logging"
)

const sqliteFile = "todo.db"

// Open builds the Store selected by cfg.StorageDriver, wrapped in
// EncryptedStore when cfg.StorageKey is set. The caller closes it.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Store, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.StorageKey != "" {
		enc, err := encrypt(backend, cfg.StorageKey)
		if err != nil {
			_ = New(backend, log).Close()
			return nil, err
		}
		backend = enc
	}

	log.Debug(ctx, "storage opened", "driver", cfg.StorageDriver, "encrypted", cfg.StorageKey != "")
	return New(backend, log), nil
}

func openBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil

	case config.DriverSQLite, "":
		dsn := cfg.DatabaseDSN
		if dsn == "" {
			dir, err := filex.EnsureDir(cfg.DataDir)
			if err != nil {
				return nil, err
			}
			dsn = "file:" + filepath.Join(dir, sqliteFile) + "?_pragma=busy_timeout(5000)"
		}
		return OpenSQLStore(ctx, DialectSQLite, dsn)

	case config.DriverPostgres:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("postgres storage requires database_dsn")
		}
		return OpenSQLStore(ctx, DialectPostgres, cfg.DatabaseDSN)

	case config.DriverS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires s3_bucket")
		}
		api, err := NewS3Client(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return NewS3Store(api, cfg.S3Bucket, cfg.S3Prefix), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func encrypt(backend Backend, hexKey string) (*EncryptedStore, error) {
	key, err := ParseStorageKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewEncryptedStore(backend, key)
}
