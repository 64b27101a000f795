// Command tiercached runs a standalone cache daemon: it builds an engine
// from a YAML configuration file, wires the configured tier backends, and
// serves Prometheus metrics until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tiercache/tiercache/internal/codec"
	"github.com/tiercache/tiercache/internal/config"
	"github.com/tiercache/tiercache/internal/engine"
	"github.com/tiercache/tiercache/internal/metrics"
	"github.com/tiercache/tiercache/internal/storage"
	"github.com/tiercache/tiercache/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tiercached: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.NewDefault()
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Engine.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := buildBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var valueCodec types.Codec
	if cfg.Compression.Enabled {
		z, err := codec.NewZstd(cfg.Compression.MinSize, cfg.Compression.Level)
		if err != nil {
			return err
		}
		valueCodec = z
	}

	eng, err := engine.New(cfg, engine.Options{
		Codec:    valueCodec,
		Metrics:  metrics.NewRuntimeSampler(0),
		Backends: backends,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error("engine shutdown failed", "error", err)
		}
	}()

	var server *http.Server
	if cfg.Monitoring.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Monitoring.Metrics.Path, eng.MetricsHandler().Handler())
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening",
				"addr", server.Addr, "path", cfg.Monitoring.Metrics.Path)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("tiercached started")
	<-ctx.Done()
	logger.Info("shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	return nil
}

// buildBackends constructs the durable backends the configuration selects
// for the warm and cold tiers.
func buildBackends(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) (map[types.Tier]types.TierBackend, error) {
	backends := make(map[types.Tier]types.TierBackend)

	for tier, tsc := range map[types.Tier]config.TierStorageConfig{
		types.TierWarm: cfg.Storage.Warm,
		types.TierCold: cfg.Storage.Cold,
	} {
		backend, err := buildBackend(ctx, tsc, logger)
		if err != nil {
			return nil, err
		}
		if backend != nil {
			backends[tier] = backend
		}
	}
	return backends, nil
}

func buildBackend(ctx context.Context, tsc config.TierStorageConfig, logger *slog.Logger) (types.TierBackend, error) {
	switch tsc.Backend {
	case "", "none":
		return nil, nil
	case "disk":
		return storage.NewDiskBackend(tsc.Directory, logger)
	case "redis":
		return storage.NewRedisBackend(ctx, storage.RedisOptions{
			Addr:     tsc.Redis.Addr,
			Password: tsc.Redis.Password,
			DB:       tsc.Redis.DB,
			Keyspace: tsc.Redis.Keyspace,
		}, logger)
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Options{
			Bucket:   tsc.S3.Bucket,
			Region:   tsc.S3.Region,
			Key:      tsc.S3.Key,
			Endpoint: tsc.S3.Endpoint,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", tsc.Backend)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
