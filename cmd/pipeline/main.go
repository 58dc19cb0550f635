// Package main runs one end-to-end transform for a date:
// fetch snapshots, archive, compute metrics, validate, load, audit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coinpulse/internal/config"
	"coinpulse/internal/domain"
	"coinpulse/internal/load"
	"coinpulse/internal/logging"
	"coinpulse/internal/pipeline"
	"coinpulse/internal/quality"
	"coinpulse/internal/snapshotsource"
	"coinpulse/internal/storage"
	"coinpulse/internal/storage/clickhouse"
	"coinpulse/internal/storage/memory"
	"coinpulse/internal/storage/migrations"
	"coinpulse/internal/storage/postgres"
	"coinpulse/internal/transform"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config")
	dateStr := flag.String("date", "", "Metric date YYYY-MM-DD (default: today UTC)")
	inMemory := flag.Bool("memory", false, "Use in-memory stores regardless of configured DSNs")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.Name, cfg.App.LogLevel, *pretty)

	date := time.Now().UTC()
	if *dateStr != "" {
		date, err = time.Parse("2006-01-02", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -date: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("cancelling run")
		cancel()
	}()

	stores, cleanup, err := buildStores(ctx, cfg, *inMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	source := buildSource(cfg, logger)

	calculator := transform.NewCalculator(transform.Params{
		LookbackDays:          cfg.Metrics.LookbackDays,
		VolatilityMinSamples:  cfg.Metrics.VolatilityMinSamples,
		CorrelationMinOverlap: cfg.Metrics.CorrelationMinOverlap,
		RiskFreeRate:          cfg.Metrics.RiskFreeRate,
		FearGreedMinHistory:   cfg.Metrics.FearGreedMinHistory,
		MomentumWeight:        cfg.Metrics.FearGreedWeights.Momentum,
		VolatilityWeight:      cfg.Metrics.FearGreedWeights.Volatility,
		VolumeWeight:          cfg.Metrics.FearGreedWeights.Volume,
	})
	validator := quality.NewValidator(quality.Params{
		PriceCeiling:        cfg.Quality.PriceCeiling,
		AnomalyThresholdPct: cfg.Quality.AnomalyThresholdPct,
		FreshnessMaxAge:     cfg.Quality.FreshnessMaxAge,
	})

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Source:       source,
		Archive:      stores.archive,
		AuditStore:   stores.audit,
		Transformer:  pipeline.NewTransformer(calculator, validator, logger),
		Loader:       load.NewLoader(stores.coins, stores.metrics, stores.correlations, logger),
		Universe:     cfg.Universe,
		LookbackDays: cfg.Metrics.LookbackDays,
		Logger:       logger,
	})

	summary, err := runner.RunOnce(ctx, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run %s completed:\n", summary.RunID)
	fmt.Printf("  Date:     %s\n", summary.MetricDate.Format("2006-01-02"))
	fmt.Printf("  Status:   %s\n", summary.Status)
	fmt.Printf("  Duration: %s\n", summary.Duration.Round(time.Millisecond))
	for _, check := range summary.Report.Checks {
		fmt.Printf("  Check %-22s %s", check.Name, check.Status)
		if len(check.Affected) > 0 {
			fmt.Printf(" (%d affected)", check.AffectedCount())
		}
		fmt.Println()
	}
	if summary.Load != nil {
		fmt.Printf("  Loaded:   %d inserted, %d updated, %d correlations\n",
			summary.Load.MetricsInserted, summary.Load.MetricsUpdated, summary.Load.CorrelationsReplaced)
	}
	if summary.Status == domain.BatchRejected {
		os.Exit(2)
	}
}

// storeSet bundles every store backing one run.
type storeSet struct {
	coins        storage.CoinStore
	metrics      storage.MetricStore
	correlations storage.CorrelationStore
	audit        storage.AuditStore
	archive      storage.SnapshotArchive
}

// buildStores wires Postgres, ClickHouse and in-memory backends from config.
// Missing DSNs degrade that backend to memory so local runs need no services.
func buildStores(ctx context.Context, cfg *config.Config, forceMemory bool) (*storeSet, func(), error) {
	stores := &storeSet{
		coins:        memory.NewCoinStore(),
		metrics:      memory.NewMetricStore(),
		correlations: memory.NewCorrelationStore(),
		audit:        memory.NewAuditStore(),
		archive:      memory.NewSnapshotArchive(),
	}
	cleanup := func() {}
	if forceMemory {
		return stores, cleanup, nil
	}

	var closers []func()

	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		stores.coins = postgres.NewCoinStore(pool)
		stores.metrics = postgres.NewMetricStore(pool)
		stores.correlations = postgres.NewCorrelationStore(pool)
		stores.audit = postgres.NewAuditStore(pool)
	}

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		closers = append(closers, func() { conn.Close() })
		stores.archive = clickhouse.NewSnapshotArchive(conn)
	}

	cleanup = func() {
		for _, c := range closers {
			c()
		}
	}
	return stores, cleanup, nil
}

// buildSource builds the provider, wrapped in a Redis cache when configured.
func buildSource(cfg *config.Config, logger zerolog.Logger) snapshotsource.Source {
	var source snapshotsource.Source = snapshotsource.NewCoinGeckoClient(snapshotsource.CoinGeckoOptions{
		BaseURL:       cfg.Provider.BaseURL,
		VsCurrency:    cfg.Provider.VsCurrency,
		Timeout:       cfg.Provider.Timeout,
		RetryAttempts: cfg.Provider.RetryAttempts,
		RetryDelay:    cfg.Provider.RetryDelay,
		RequestPause:  cfg.Provider.RequestPause,
		Logger:        logger,
	})

	if addr := cfg.Storage.RedisAddr; addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		source = snapshotsource.NewCachedSource(source, client, cfg.Storage.CacheTTL, logger)
	}
	return source
}
