// Command worker runs the BLPOP dequeue loop that performs ingestion and
// override-detection jobs, plus the cron scheduler for chunk cleanup and
// source health checks.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ruleoracle/internal/config"
	"ruleoracle/internal/cron"
	"ruleoracle/internal/embedder"
	"ruleoracle/internal/ingest"
	"ruleoracle/internal/llm"
	"ruleoracle/internal/objectstore"
	"ruleoracle/internal/observability"
	"ruleoracle/internal/observability/tracing"
	"ruleoracle/internal/ocr"
	"ruleoracle/internal/override"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/store"
	"ruleoracle/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "ruleoracle-worker", cfg.Environment, cfg.TraceSampleRatio)
	if err != nil {
		logger.Warn("tracing: init failed, continuing without spans", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing: shutdown failed", zap.Error(err))
		}
	}()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("store: open failed", zap.Error(err))
	}
	defer db.Close()

	redisOpt, err := redis.ParseURL(cfg.CacheURL)
	if err != nil {
		logger.Fatal("cache: parse CACHE_URL failed", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpt)
	defer rdb.Close()

	llmClient := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ChatModel, cfg.EmbeddingModel)
	emb := embedder.New(llmClient, cfg.EmbeddingDims)

	objects, err := objectstore.New(cfg.ObjectStoreEndpoint, cfg.ObjectStoreAccessKey, cfg.ObjectStoreSecretKey, cfg.ObjectStoreUseSSL)
	if err != nil {
		logger.Fatal("objectstore: client init failed", zap.Error(err))
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		logger.Warn("objectstore: ensure bucket failed, continuing without raw-document storage", zap.Error(err))
	}

	var ocrAdapter ocr.Adapter
	if cfg.OCRCredentials != "" && cfg.OCRBaseURL != "" {
		ocrAdapter = ocr.NewCloudAdapter(cfg.OCRBaseURL, cfg.OCRCredentials)
	}

	jobQueue := queue.New(rdb)
	progress := queue.NewProgressBus(rdb, cfg.JobStatusTTL)

	pipeline := &ingest.Pipeline{
		Sources:     db.Sources,
		Chunks:      db.Chunks,
		Objects:     objects,
		Embedder:    emb,
		OCR:         ocrAdapter,
		Queue:       jobQueue,
		Progress:    progress,
		Logger:      logger,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		ChunkExpiry: cfg.ChunkExpiry,
	}

	overrideDetector := override.NewDetector(llmClient, db.Chunks)

	pool := &worker.Pool{
		Queue:    jobQueue,
		Progress: progress,
		Ingest:   pipeline,
		Override: overrideDetector,
		Sources:  db.Sources,
		Costs:    db.Costs,
		Logger:   logger,
	}

	healthChecker := cron.NewHealthChecker(db.Sources, db.Health)
	scheduler := cron.New(db.Chunks, db.Sources, db.Health, healthChecker, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("cron: start failed", zap.Error(err))
	}
	defer scheduler.Stop()

	logger.Info("worker: starting dequeue loop")
	pool.Run(ctx)
	logger.Info("worker: shut down")
}
