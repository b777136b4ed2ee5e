package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonding-curve-indexer/internal/codec"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, codec.DefaultProgramID, cfg.Program.ID)
	assert.Equal(t, StoreMemory, cfg.Store.Kind)
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
indexer:
  start_slot: 250000000
  end_slot: 250001000
  workers: 8
  poll_interval: 500ms
store:
  kind: Postgres
  postgres_dsn: postgres://indexer@localhost/indexer
log:
  format: JSON
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(250000000), cfg.Indexer.StartSlot)
	assert.Equal(t, uint64(250001000), cfg.Indexer.EndSlot)
	assert.Equal(t, 8, cfg.Indexer.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Indexer.PollInterval)
	assert.Equal(t, StorePostgres, cfg.Store.Kind)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched sections keep their defaults
	assert.Equal(t, uint64(100), cfg.Indexer.BatchSlots)
	assert.Equal(t, "confirmed", cfg.RPC.Commitment)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "indexer:\n  workers: 2\n")
	t.Setenv("INDEXER_WORKERS", "16")
	t.Setenv("INDEXER_END_SLOT", "42")
	t.Setenv("INDEXER_STORE_FALLBACK", "true")
	t.Setenv("INDEXER_REDIS_ADDR", "localhost:6379")
	t.Setenv("INDEXER_RPC_TIMEOUT", "5s")
	t.Setenv("INDEXER_CHUNK_SIZE", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Indexer.Workers)
	assert.Equal(t, uint64(42), cfg.Indexer.EndSlot)
	assert.True(t, cfg.Indexer.StoreFallback)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, Defaults().Indexer.ChunkSize, cfg.Indexer.ChunkSize, "unparsable values are ignored")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "indexer: [unterminated"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing program id", func(c *Config) { c.Program.ID = "" }, "program: id must not be empty"},
		{"bad program id", func(c *Config) { c.Program.ID = "not-base58-0OIl" }, "program: invalid id"},
		{"chunk size zero", func(c *Config) { c.Indexer.ChunkSize = 0 }, "chunk_size must be in 1..2000"},
		{"chunk size too large", func(c *Config) { c.Indexer.ChunkSize = 2001 }, "chunk_size must be in 1..2000"},
		{"no workers", func(c *Config) { c.Indexer.Workers = 0 }, "workers must be at least 1"},
		{"unknown store", func(c *Config) { c.Store.Kind = "sqlite" }, `unknown kind "sqlite"`},
		{"postgres without dsn", func(c *Config) { c.Store.Kind = StorePostgres }, "postgres_dsn is required"},
		{"end before start", func(c *Config) { c.Indexer.StartSlot = 10; c.Indexer.EndSlot = 5 }, "end_slot 5 is before start_slot 10"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, `unknown format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ChunkSizeBounds(t *testing.T) {
	for _, n := range []int{1, 2000} {
		cfg := Defaults()
		cfg.Indexer.ChunkSize = n
		assert.NoError(t, cfg.Validate(), "chunk size %d", n)
	}
}
