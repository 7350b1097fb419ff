package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sudoswap/0x-tracker-worker/internal/addresses"
	"github.com/sudoswap/0x-tracker-worker/internal/config"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/builder"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/processor"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/projector"
	"github.com/sudoswap/0x-tracker-worker/internal/pipeline/valuator"
	"github.com/sudoswap/0x-tracker-worker/internal/rates"
	"github.com/sudoswap/0x-tracker-worker/internal/search"
	"github.com/sudoswap/0x-tracker-worker/internal/store/postgres"
	redisq "github.com/sudoswap/0x-tracker-worker/internal/store/redis"
	"github.com/sudoswap/0x-tracker-worker/internal/tokens"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	db, err := postgres.New(postgres.Config{
		URL:                cfg.DB.URL,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetime:    cfg.DB.ConnMaxLifetime,
		StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.DB.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	queue, err := redisq.NewQueue(cfg.Redis.URL, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer queue.Close()

	searchClient, err := search.NewClient(search.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect elasticsearch: %w", err)
	}

	eventRepo := postgres.NewEventRepo(db)
	fillRepo := postgres.NewFillRepo(db)
	txRepo := postgres.NewTransactionRepo(db)
	blockRepo := postgres.NewBlockRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)
	addressRepo := postgres.NewAddressMetadataRepo(db)

	tokenResolver, err := tokens.NewResolver(tokenRepo, tokens.NewClient(cfg.TokenService.URL), logger)
	if err != nil {
		return fmt.Errorf("create token resolver: %w", err)
	}
	rateClient := rates.NewClient(cfg.RatesAPI.URL, cfg.RatesAPI.RequestsPerSecond)
	classifier := addresses.NewClassifier(addressRepo, logger)

	fillBuilder := builder.New(blockRepo, logger)
	fillValuator := valuator.New(tokenResolver, rateClient, logger)
	batchProcessor := processor.New(eventRepo, fillRepo, fillBuilder, fillValuator, tokenResolver, queue, logger)
	fillProjector := projector.New(fillRepo, txRepo, classifier, searchClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Periodic create-fill-batch scheduling.
	g.Go(func() error {
		interval := time.Duration(cfg.Pipeline.BatchIntervalMs) * time.Millisecond
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := queue.EnqueueCreateFillBatch(ctx, cfg.Pipeline.BatchSize); err != nil {
					logger.Error("schedule fill batch failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		return queue.Consume(ctx, redisq.StreamFillProcessing, &batchJobHandler{
			processor:        batchProcessor,
			defaultBatchSize: cfg.Pipeline.BatchSize,
		})
	})

	g.Go(func() error {
		return queue.Consume(ctx, redisq.StreamFillIndexing, fillProjector)
	})

	g.Go(func() error {
		return serveMetrics(ctx, cfg.Server.MetricsPort, logger)
	})

	logger.Info("worker started",
		"batch_size", cfg.Pipeline.BatchSize,
		"batch_interval_ms", cfg.Pipeline.BatchIntervalMs,
	)
	return g.Wait()
}

// batchJobHandler adapts the batch processor to the queue handler
// contract. Batch failures are systemic, so nothing is permanent: the job
// is re-enqueued and retried.
type batchJobHandler struct {
	processor        *processor.Processor
	defaultBatchSize int
}

func (h *batchJobHandler) Handle(ctx context.Context, job redisq.Job) error {
	return h.processor.Run(ctx, job.BatchSize(h.defaultBatchSize))
}

func (h *batchJobHandler) Permanent(error) bool { return false }

func serveMetrics(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
