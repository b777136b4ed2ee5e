package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INDEXER_"

// Load merges the YAML file at path over Defaults, loads .env when present
// and applies INDEXER_* overrides. An empty path skips the file. The result
// is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.Store.Kind = strings.ToLower(cfg.Store.Kind)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Program.ID, "INDEXER_PROGRAM_ID")
	setStr(&cfg.Program.EventAuthority, "INDEXER_EVENT_AUTHORITY")

	setUint64(&cfg.Indexer.StartSlot, "INDEXER_START_SLOT")
	setUint64(&cfg.Indexer.EndSlot, "INDEXER_END_SLOT")
	setUint64(&cfg.Indexer.BatchSlots, "INDEXER_BATCH_SLOTS")
	setUint64(&cfg.Indexer.HeadLag, "INDEXER_HEAD_LAG")
	setDuration(&cfg.Indexer.PollInterval, "INDEXER_POLL_INTERVAL")
	setInt(&cfg.Indexer.ChunkSize, "INDEXER_CHUNK_SIZE")
	setInt(&cfg.Indexer.Workers, "INDEXER_WORKERS")
	setInt(&cfg.Indexer.FetchWorkers, "INDEXER_FETCH_WORKERS")
	setBool(&cfg.Indexer.StoreFallback, "INDEXER_STORE_FALLBACK")

	setStr(&cfg.RPC.HTTPEndpoint, "INDEXER_RPC_ENDPOINT")
	setStr(&cfg.RPC.WSEndpoint, "INDEXER_WS_ENDPOINT")
	setDuration(&cfg.RPC.Timeout, "INDEXER_RPC_TIMEOUT")
	setInt(&cfg.RPC.MaxRetries, "INDEXER_RPC_MAX_RETRIES")
	setStr(&cfg.RPC.Commitment, "INDEXER_RPC_COMMITMENT")

	setStr(&cfg.Store.Kind, "INDEXER_STORE")
	setStr(&cfg.Store.PostgresDSN, "INDEXER_POSTGRES_DSN")
	setBool(&cfg.Store.RunMigrations, "INDEXER_POSTGRES_MIGRATE")

	setStr(&cfg.Redis.Addr, "INDEXER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "INDEXER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "INDEXER_REDIS_DB")
	setStr(&cfg.Redis.Key, "INDEXER_REDIS_KEY")

	setStr(&cfg.ClickHouse.DSN, "INDEXER_CLICKHOUSE_DSN")
	setBool(&cfg.ClickHouse.RunMigrations, "INDEXER_CLICKHOUSE_MIGRATE")

	setStr(&cfg.Metrics.Addr, "INDEXER_METRICS_ADDR")
	setStr(&cfg.Metrics.Namespace, "INDEXER_METRICS_NAMESPACE")

	setStr(&cfg.Log.Level, "INDEXER_LOG_LEVEL")
	setStr(&cfg.Log.Format, "INDEXER_LOG_FORMAT")
	setStr(&cfg.Log.File, "INDEXER_LOG_FILE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
