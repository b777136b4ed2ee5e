package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bonding-curve-indexer/internal/cache"
	"bonding-curve-indexer/internal/config"
	"bonding-curve-indexer/internal/ingestion"
	"bonding-curve-indexer/internal/logging"
	"bonding-curve-indexer/internal/observability"
	"bonding-curve-indexer/internal/orchestrator"
	"bonding-curve-indexer/internal/solana"
	"bonding-curve-indexer/internal/storage"
	chstore "bonding-curve-indexer/internal/storage/clickhouse"
	"bonding-curve-indexer/internal/storage/memory"
	"bonding-curve-indexer/internal/storage/migrations"
	pgstore "bonding-curve-indexer/internal/storage/postgres"
	redisstore "bonding-curve-indexer/internal/storage/redis"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	mode := flag.String("mode", "backfill", "Run mode: backfill or follow")
	startSlot := flag.Uint64("start-slot", 0, "First slot to index (overrides config)")
	endSlot := flag.Uint64("end-slot", 0, "Last slot to index in backfill mode, 0 means the current head (overrides config)")
	workers := flag.Int("workers", 0, "Dispatch lanes run in parallel (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start-slot":
			cfg.Indexer.StartSlot = *startSlot
		case "end-slot":
			cfg.Indexer.EndSlot = *endSlot
		case "workers":
			cfg.Indexer.Workers = *workers
		case "use-memory":
			if *useMemory {
				cfg.Store.Kind = config.StoreMemory
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace, nil)
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("Initiating graceful shutdown")
		cancel()

		// A second signal or a stuck flush forces exit.
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("Forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, *mode, logger, metrics)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Indexer stopped")
	}
	logger.Info("Shutdown complete")
}

func serveMetrics(addr string, logger logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	logger.WithField("addr", addr).Info("Starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("Metrics server error")
	}
}

// backends holds the storage side of the indexer.
type backends struct {
	stores   storage.Stores
	progress storage.ProgressStore
	defaults storage.DefaultsStore
	archive  storage.TradeArchive
	closers  []io.Closer
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func openBackends(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*backends, error) {
	b := &backends{}

	switch cfg.Store.Kind {
	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, closeFunc(func() error { pool.Close(); return nil }))
		if cfg.Store.RunMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				b.Close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		b.stores = pgstore.NewStores(pool)
		b.progress = pgstore.NewProgressStore(pool)
		logger.Info("Using PostgreSQL storage")
	default:
		mem := memory.NewStores()
		b.stores = mem.Storage()
		b.progress = memory.NewProgressStore()
		logger.Warn("Using in-memory storage, state is lost on exit")
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.New(ctx, redisstore.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, client)
		store, err := redisstore.NewDefaultsStore(client, cfg.Redis.Key)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.defaults = storage.NewLayeredDefaults(store, storage.NewGlobalConfigDefaults(b.stores.GlobalConfigs))
	} else {
		b.defaults = storage.NewGlobalConfigDefaults(b.stores.GlobalConfigs)
	}

	if cfg.ClickHouse.DSN != "" {
		conn, err := connectClickHouse(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, closeFunc(conn.Close))
		b.archive = chstore.NewTradeArchive(conn)
		logger.Info("Trade archive enabled")
	}

	return b, nil
}

func connectClickHouse(ctx context.Context, cfg *config.Config) (*chstore.Conn, error) {
	if cfg.ClickHouse.RunMigrations {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		return conn, nil
	}
	conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	return conn, nil
}

func run(ctx context.Context, cfg *config.Config, mode string, logger *logrus.Logger, metrics *observability.Metrics) error {
	if mode != "backfill" && mode != "follow" {
		return fmt.Errorf("unknown mode %q (valid: backfill, follow)", mode)
	}

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	rpc := solana.NewHTTPClient(cfg.RPC.HTTPEndpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
		solana.WithCommitment(cfg.RPC.Commitment),
		solana.WithObserver(metrics.ObserveRPC),
	)

	caches := cache.NewSet(b.stores, cache.Options{
		ChunkSize:     cfg.Indexer.ChunkSize,
		StoreFallback: cfg.Indexer.StoreFallback,
		Logger:        logger.WithField("component", "cache"),
		OnFlush:       metrics.ObserveFlush,
	})

	orch := orchestrator.New(orchestrator.Options{
		ProgramID:      cfg.Program.ID,
		EventAuthority: cfg.Program.EventAuthority,
		Caches:         caches,
		DefaultsStore:  b.defaults,
		Archive:        b.archive,
		Workers:        cfg.Indexer.Workers,
		Logger:         logger.WithField("component", "orchestrator"),
		Metrics:        metrics,
	})

	source := ingestion.NewBlockSource(ingestion.BlockSourceOptions{
		RPC:     rpc,
		Workers: cfg.Indexer.FetchWorkers,
		Logger:  logger.WithField("component", "source"),
		Metrics: metrics,
	})

	opts := ingestion.RunnerOptions{
		Source:       source,
		Processor:    orch,
		Progress:     b.progress,
		RPC:          rpc,
		BatchSlots:   cfg.Indexer.BatchSlots,
		HeadLag:      cfg.Indexer.HeadLag,
		PollInterval: cfg.Indexer.PollInterval,
		Logger:       logger.WithField("component", "runner"),
		Metrics:      metrics,
	}

	if mode == "follow" && cfg.RPC.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logger.WithField("component", "ws")
		ws, err := solana.NewWSClient(ctx, cfg.RPC.WSEndpoint, &wsCfg)
		if err != nil {
			// Polling getSlot still works.
			logger.WithError(err).Warn("WebSocket unavailable, polling for head")
		} else {
			defer ws.Close()
			opts.WS = ws
		}
	}

	runner := ingestion.NewRunner(opts)

	logger.WithFields(logrus.Fields{
		"mode":       mode,
		"program":    cfg.Program.ID,
		"start_slot": cfg.Indexer.StartSlot,
		"end_slot":   cfg.Indexer.EndSlot,
		"workers":    cfg.Indexer.Workers,
	}).Info("Indexer starting")

	if mode == "follow" {
		return runner.Follow(ctx, cfg.Indexer.StartSlot)
	}

	result, err := runner.Backfill(ctx, cfg.Indexer.StartSlot, cfg.Indexer.EndSlot)
	if result != nil {
		logger.WithFields(logrus.Fields{
			"batches":       result.Batches,
			"blocks":        result.Blocks,
			"dispatched":    result.Dispatched,
			"decode_failed": result.DecodeFailed,
			"failed":        result.Failed,
			"first_slot":    result.FirstSlot,
			"last_slot":     result.LastSlot,
		}).Info("Backfill complete")
	}
	return err
}
