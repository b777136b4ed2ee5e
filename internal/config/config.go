// Package config loads indexer settings from YAML, .env and INDEXER_* variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/codec"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the full indexer configuration.
type Config struct {
	Program    ProgramConfig    `yaml:"program"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	RPC        RPCConfig        `yaml:"rpc"`
	Store      StoreConfig      `yaml:"store"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// ProgramConfig identifies the bonding-curve program being indexed.
type ProgramConfig struct {
	ID             string `yaml:"id"`
	EventAuthority string `yaml:"event_authority"`
}

// IndexerConfig controls batching and parallelism.
type IndexerConfig struct {
	StartSlot    uint64        `yaml:"start_slot"`
	EndSlot      uint64        `yaml:"end_slot"` // 0 follows the head
	BatchSlots   uint64        `yaml:"batch_slots"`
	HeadLag      uint64        `yaml:"head_lag"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ChunkSize    int           `yaml:"chunk_size"`
	Workers      int           `yaml:"workers"`
	FetchWorkers int           `yaml:"fetch_workers"`
	// StoreFallback lets cache misses read through to storage.
	StoreFallback bool `yaml:"store_fallback"`
}

// RPCConfig holds Solana endpoints.
type RPCConfig struct {
	HTTPEndpoint string        `yaml:"http_endpoint"`
	WSEndpoint   string        `yaml:"ws_endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	Commitment   string        `yaml:"commitment"`
}

// StoreConfig selects the entity store backend.
type StoreConfig struct {
	Kind          string `yaml:"kind"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	RunMigrations bool   `yaml:"run_migrations"`
}

// RedisConfig enables the Redis defaults store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// ClickHouseConfig enables the trade archive when DSN is set.
type ClickHouseConfig struct {
	DSN           string `yaml:"dsn"`
	RunMigrations bool   `yaml:"run_migrations"`
}

// MetricsConfig holds the Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Program: ProgramConfig{
			ID:             codec.DefaultProgramID,
			EventAuthority: codec.DefaultEventAuthority,
		},
		Indexer: IndexerConfig{
			BatchSlots:   100,
			HeadLag:      32,
			PollInterval: 2 * time.Second,
			ChunkSize:    cache.DefaultChunkSize,
			Workers:      4,
			FetchWorkers: 8,
		},
		RPC: RPCConfig{
			HTTPEndpoint: "https://api.mainnet-beta.solana.com",
			Timeout:      30 * time.Second,
			MaxRetries:   3,
			Commitment:   "confirmed",
		},
		Store: StoreConfig{
			Kind:          StoreMemory,
			RunMigrations: true,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

var (
	validStores     = map[string]bool{StoreMemory: true, StorePostgres: true}
	validFormats    = map[string]bool{"text": true, "json": true}
	validCommitment = map[string]bool{"processed": true, "confirmed": true, "finalized": true}
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Program.ID == "" {
		errs = append(errs, "program: id must not be empty")
	} else if _, err := solanago.PublicKeyFromBase58(c.Program.ID); err != nil {
		errs = append(errs, fmt.Sprintf("program: invalid id %q: %v", c.Program.ID, err))
	}
	if c.Program.EventAuthority != "" {
		if _, err := solanago.PublicKeyFromBase58(c.Program.EventAuthority); err != nil {
			errs = append(errs, fmt.Sprintf("program: invalid event_authority %q: %v", c.Program.EventAuthority, err))
		}
	}

	if c.Indexer.ChunkSize < 1 || c.Indexer.ChunkSize > cache.MaxChunkSize {
		errs = append(errs, fmt.Sprintf("indexer: chunk_size must be in 1..%d, got %d", cache.MaxChunkSize, c.Indexer.ChunkSize))
	}
	if c.Indexer.Workers < 1 {
		errs = append(errs, "indexer: workers must be at least 1")
	}
	if c.Indexer.FetchWorkers < 1 {
		errs = append(errs, "indexer: fetch_workers must be at least 1")
	}
	if c.Indexer.BatchSlots == 0 {
		errs = append(errs, "indexer: batch_slots must be positive")
	}
	if c.Indexer.EndSlot != 0 && c.Indexer.EndSlot < c.Indexer.StartSlot {
		errs = append(errs, fmt.Sprintf("indexer: end_slot %d is before start_slot %d", c.Indexer.EndSlot, c.Indexer.StartSlot))
	}

	if c.RPC.HTTPEndpoint == "" {
		errs = append(errs, "rpc: http_endpoint must not be empty")
	}
	if !validCommitment[strings.ToLower(c.RPC.Commitment)] {
		errs = append(errs, fmt.Sprintf("rpc: unknown commitment %q", c.RPC.Commitment))
	}

	kind := strings.ToLower(c.Store.Kind)
	if !validStores[kind] {
		errs = append(errs, fmt.Sprintf("store: unknown kind %q (valid: memory, postgres)", c.Store.Kind))
	}
	if kind == StorePostgres && c.Store.PostgresDSN == "" {
		errs = append(errs, "store: postgres_dsn is required for kind postgres")
	}

	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log: unknown format %q (valid: text, json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}
