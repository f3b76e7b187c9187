// Package worker runs the BLPOP dequeue loop that drives both job kinds
// the queue carries: ingestion and override detection.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ruleoracle/internal/ingest"
	"ruleoracle/internal/override"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/store"
)

type Pool struct {
	Queue    *queue.Queue
	Progress *queue.ProgressBus
	Ingest   *ingest.Pipeline
	Override *override.Detector
	Sources  *store.SourceRepo
	Costs    *store.CostRepo
	Logger   *zap.Logger
}

// Run pulls jobs until ctx is cancelled, dispatching each to its handler
// with the job's declared timeout.
func (p *Pool) Run(ctx context.Context) {
	for {
		job, err := p.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			p.Logger.Error("worker: dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		p.dispatch(ctx, job)
	}
}

func (p *Pool) dispatch(ctx context.Context, job *queue.Job) {
	timeout := time.Duration(job.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var err error
	switch job.Kind {
	case queue.JobIngest:
		err = p.runIngest(jobCtx, job)
	case queue.JobDetectOverrides:
		err = p.runOverrideDetection(jobCtx, job)
	default:
		err = fmt.Errorf("worker: unknown job kind %q", job.Kind)
	}
	if err != nil {
		p.Logger.Error("worker: job failed", zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)), zap.Error(err))
	}
}

func (p *Pool) runIngest(ctx context.Context, job *queue.Job) error {
	var args ingest.Args
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return fmt.Errorf("worker: unmarshal ingest args: %w", err)
	}
	return p.Ingest.Run(ctx, job.ID, args)
}

func (p *Pool) runOverrideDetection(ctx context.Context, job *queue.Job) error {
	var args ingest.Args
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return fmt.Errorf("worker: unmarshal override args: %w", err)
	}
	source, err := p.Sources.Get(ctx, args.SourceID)
	if err != nil {
		return fmt.Errorf("worker: load source %d: %w", args.SourceID, err)
	}
	chunks, err := p.Ingest.Chunks.GetBySourceID(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("worker: load chunks for source %d: %w", source.ID, err)
	}
	applied, cost, err := p.Override.DetectForSource(ctx, source.GameID, chunks)
	if err != nil {
		return fmt.Errorf("worker: override detection for source %d: %w", source.ID, err)
	}
	if cost.CostUSD > 0 {
		_ = p.Costs.Insert(ctx, &store.ApiCost{
			RequestID:    job.ID,
			Endpoint:     "override_detect",
			Model:        cost.Model,
			InputTokens:  cost.InputTokens,
			OutputTokens: cost.OutputTokens,
			CostUSD:      cost.CostUSD,
		})
	}
	p.Logger.Info("worker: override detection complete",
		zap.Int64("source_id", source.ID), zap.Int("applied", applied))
	return nil
}
