package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IsnuMdr/todo-app/internal/config"
	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.StorageDriver = driver
	return cfg
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), testConfig(config.DriverMemory), logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s.backend)
	require.NoError(t, s.Close())
}

func TestOpen_SQLiteInDataDir(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.DriverSQLite)
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	s, err := Open(ctx, cfg, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "todos", []string{"a"}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, cfg, logging.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	var got []string
	found, err := reopened.Get(ctx, "todos", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a"}, got)
}

func TestOpen_Encrypted(t *testing.T) {
	cfg := testConfig(config.DriverMemory)
	cfg.StorageKey = strings.Repeat("ab", 32)

	s, err := Open(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &EncryptedStore{}, s.backend)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{name: "unknown driver", mutate: func(c *config.Config) { c.StorageDriver = "redis" }},
		{name: "postgres without dsn", mutate: func(c *config.Config) { c.StorageDriver = config.DriverPostgres }},
		{name: "s3 without bucket", mutate: func(c *config.Config) { c.StorageDriver = config.DriverS3 }},
		{name: "bad storage key", mutate: func(c *config.Config) {
			c.StorageDriver = config.DriverMemory
			c.StorageKey = "abcd"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("")
			tt.mutate(cfg)
			_, err := Open(context.Background(), cfg, logging.Nop())
			require.Error(t, err)
		})
	}
}
