// Package cron schedules the chunk-cleanup and source-health-check jobs
// that run independent of the request/ingestion path.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ruleoracle/internal/store"
)

type Scheduler struct {
	cron    *cron.Cron
	chunks  *store.ChunkRepo
	sources *store.SourceRepo
	health  *store.HealthRepo
	checker *HealthChecker
	logger  *zap.Logger
}

func New(chunks *store.ChunkRepo, sources *store.SourceRepo, health *store.HealthRepo, checker *HealthChecker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		chunks:  chunks,
		sources: sources,
		health:  health,
		checker: checker,
		logger:  logger,
	}
}

// Start registers the three jobs and begins the scheduler's own
// goroutine; callers should Stop it at shutdown.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.cleanupExpiredChunks); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 4 * * 0", s.runAllCleanupJobs); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 2 * * *", s.checkAllSources); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) cleanupExpiredChunks() {
	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Second)
	defer cancel()
	n, err := s.chunks.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("cron: cleanup_expired_chunks failed", zap.Error(err))
		return
	}
	s.logger.Info("cron: cleanup_expired_chunks done", zap.Int64("deleted", n))
}

// runAllCleanupJobs is the weekly superset pass; today that's exactly the
// expired-chunk sweep, kept as its own cron entry since the source system
// scheduled it separately (a slower, wider cleanup distinct from the
// daily targeted one).
func (s *Scheduler) runAllCleanupJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 1800*time.Second)
	defer cancel()
	n, err := s.chunks.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("cron: run_all_cleanup_jobs failed", zap.Error(err))
		return
	}
	s.logger.Info("cron: run_all_cleanup_jobs done", zap.Int64("deleted", n))
}

func (s *Scheduler) checkAllSources() {
	ctx, cancel := context.WithTimeout(context.Background(), 1800*time.Second)
	defer cancel()
	if s.checker == nil {
		return
	}
	if err := s.checker.CheckAll(ctx); err != nil {
		s.logger.Error("cron: check_all_sources failed", zap.Error(err))
	}
}
