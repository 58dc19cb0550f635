// Package main ingests market snapshots into the archive on an interval.
// It optionally backfills daily history on startup and serves Prometheus
// metrics while running.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"coinpulse/internal/config"
	"coinpulse/internal/domain"
	"coinpulse/internal/logging"
	"coinpulse/internal/observability"
	"coinpulse/internal/snapshotsource"
	"coinpulse/internal/storage"
	"coinpulse/internal/storage/clickhouse"
	"coinpulse/internal/storage/memory"
	"coinpulse/internal/storage/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config")
	interval := flag.Duration("interval", time.Hour, "Fetch interval")
	backfillDays := flag.Int("backfill-days", 0, "Backfill this many days of history on startup")
	once := flag.Bool("once", false, "Fetch once and exit")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.Name+"-ingest", cfg.App.LogLevel, *pretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	archive, cleanup, err := buildArchive(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building archive: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	client := snapshotsource.NewCoinGeckoClient(snapshotsource.CoinGeckoOptions{
		BaseURL:       cfg.Provider.BaseURL,
		VsCurrency:    cfg.Provider.VsCurrency,
		Timeout:       cfg.Provider.Timeout,
		RetryAttempts: cfg.Provider.RetryAttempts,
		RetryDelay:    cfg.Provider.RetryDelay,
		RequestPause:  cfg.Provider.RequestPause,
		Logger:        logger,
	})

	if addr := cfg.App.MetricsAddr; addr != "" {
		go serveMetrics(addr, logger)
	}

	if *backfillDays > 0 {
		if err := backfill(ctx, client, archive, cfg.Universe, *backfillDays, logger); err != nil {
			logger.Error().Err(err).Msg("backfill failed")
			os.Exit(1)
		}
	}

	ingest := func() {
		if err := fetchAndArchive(ctx, client, archive, cfg.Universe, logger); err != nil {
			logger.Error().Err(err).Msg("ingest cycle failed")
		}
	}

	ingest()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ingest()
		}
	}
}

// fetchAndArchive pulls one current snapshot set and appends it to the
// archive. A batch that already exists for the same timestamps is not an
// error; it simply means nothing new arrived.
func fetchAndArchive(ctx context.Context, source snapshotsource.Source, archive storage.SnapshotArchive, universe []string, logger zerolog.Logger) error {
	current, err := source.GetCurrent(ctx, universe)
	if err != nil {
		return fmt.Errorf("fetch current snapshots: %w", err)
	}
	observability.RecordSnapshotsFetched(len(current))

	rows := make([]domain.Snapshot, 0, len(current))
	for _, coinID := range universe {
		if snap, ok := current[coinID]; ok {
			rows = append(rows, snap)
		}
	}

	if err := archive.InsertBulk(ctx, rows); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Debug().Msg("snapshot batch already archived")
			return nil
		}
		return fmt.Errorf("archive snapshots: %w", err)
	}
	observability.RecordSnapshotsArchived(len(rows))

	logger.Info().Int("snapshots", len(rows)).Msg("archived snapshot batch")
	return nil
}

// backfill pulls daily history per coin and archives it, pacing requests to
// stay under provider rate limits. Already-archived days are skipped.
func backfill(ctx context.Context, client *snapshotsource.CoinGeckoClient, archive storage.SnapshotArchive, universe []string, days int, logger zerolog.Logger) error {
	for i, coinID := range universe {
		if i > 0 {
			if err := client.Pace(ctx); err != nil {
				return err
			}
		}

		history, err := client.GetHistory(ctx, coinID, days)
		if err != nil {
			if errors.Is(err, snapshotsource.ErrNoData) {
				logger.Warn().Str("coin", coinID).Msg("no history available")
				continue
			}
			return fmt.Errorf("backfill %s: %w", coinID, err)
		}

		if err := archive.InsertBulk(ctx, history); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Debug().Str("coin", coinID).Msg("history already archived")
				continue
			}
			return fmt.Errorf("archive history %s: %w", coinID, err)
		}
		observability.RecordSnapshotsArchived(len(history))
		logger.Info().Str("coin", coinID).Int("points", len(history)).Msg("backfilled history")
	}
	return nil
}

// buildArchive connects the ClickHouse archive, or a memory archive when no
// DSN is configured.
func buildArchive(ctx context.Context, cfg *config.Config) (storage.SnapshotArchive, func(), error) {
	dsn := cfg.Storage.ClickhouseDSN
	if dsn == "" {
		return memory.NewSnapshotArchive(), func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return clickhouse.NewSnapshotArchive(conn), func() { conn.Close() }, nil
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
