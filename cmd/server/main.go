// Command server runs the ruleoracle HTTP API: the read-only game
// catalog, /ask, /ingest plus its status/event endpoints, and /feedback.
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

	"ruleoracle/internal/answer"
	"ruleoracle/internal/budget"
	"ruleoracle/internal/cache"
	"ruleoracle/internal/conflict"
	"ruleoracle/internal/config"
	"ruleoracle/internal/embedder"
	"ruleoracle/internal/httpapi"
	"ruleoracle/internal/llm"
	"ruleoracle/internal/observability"
	"ruleoracle/internal/observability/tracing"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/ratelimit"
	"ruleoracle/internal/retrieval"
	"ruleoracle/internal/store"
	"ruleoracle/internal/store/migrations"
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

	shutdownTracing, err := tracing.Init(ctx, "ruleoracle-api", cfg.Environment, cfg.TraceSampleRatio)
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

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		logger.Fatal("migrations: up failed", zap.Error(err))
	}

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

	answerCache, err := cache.NewRedis(cfg.CacheURL)
	if err != nil {
		logger.Warn("cache: redis unavailable, falling back to in-memory answer cache", zap.Error(err))
	}
	var answerCacheImpl cache.Cache
	if answerCache != nil {
		answerCacheImpl = answerCache
	} else {
		answerCacheImpl = cache.NewInMemory()
	}
	queryCache := cache.NewInMemory()

	llmClient := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ChatModel, cfg.EmbeddingModel)
	emb := embedder.New(llmClient, cfg.EmbeddingDims)

	retrievalEngine := retrieval.New(db.Chunks, db.Sources, emb, queryCache)
	conflictDetector := conflict.NewDetector(llmClient)
	generator := answer.NewGenerator(llmClient)

	limiter := ratelimit.New(rdb, logger)
	concurrentGate := ratelimit.NewConcurrentGate(rdb, logger)
	budgetGate := budget.New(db.Costs, cfg.DailyBudgetUSD)

	jobQueue := queue.New(rdb)
	progress := queue.NewProgressBus(rdb, cfg.JobStatusTTL)

	srv := &httpapi.Server{
		Store:     db,
		Retrieval: retrievalEngine,
		Conflict:  conflictDetector,
		Generator: generator,
		LLM:       llmClient,

		AnswerCache: answerCacheImpl,
		Limiter:     limiter,
		Concurrent:  concurrentGate,
		Budget:      budgetGate,

		Queue:    jobQueue,
		Progress: progress,

		Logger: logger,

		FrontendOrigin:         cfg.FrontendOrigin,
		AskRateLimitPerMinute:  cfg.AskRateLimitPerMinute,
		AskRateLimitPerHour:    cfg.AskRateLimitPerHour,
		IngestRateLimitPerHour: cfg.IngestRateLimitPerHour,
		IngestConcurrentCap:    cfg.IngestConcurrentCap,
		AnswerCacheTTL:         cfg.AnswerCacheTTL,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.NewRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		logger.Info("server: listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server: listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server: graceful shutdown failed", zap.Error(err))
	}
}
