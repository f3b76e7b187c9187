package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ruleoracle/internal/apperr"
	"ruleoracle/internal/ingest"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/stream"
)

type ingestRequest struct {
	SourceID int64 `json:"source_id" binding:"required"`
	Force    bool  `json:"force"`
}

func (s *Server) handleIngest(c *gin.Context) {
	ctx := c.Request.Context()
	clientIP := c.ClientIP()

	rl, err := s.Limiter.Allow(ctx, "ingest:ip:"+clientIP, s.IngestRateLimitPerHour, hourWindow)
	if err != nil {
		respondError(c, err)
		return
	}
	if !rl.Allowed {
		writeRateLimitHeaders(c, rl)
		respondError(c, apperr.New(apperr.KindRateLimited, "rate_limited", "too many ingestion requests"))
		return
	}

	admitted, err := s.Concurrent.Acquire(ctx, "ingest:concurrent", s.IngestConcurrentCap)
	if err != nil {
		respondError(c, err)
		return
	}
	if !admitted {
		respondError(c, apperr.New(apperr.KindRateLimited, "concurrent_limit", "too many concurrent ingestions"))
		return
	}
	defer s.Concurrent.Release(ctx, "ingest:concurrent")

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid_request", err.Error()))
		return
	}

	source, err := s.Store.Sources.Get(ctx, req.SourceID)
	if err != nil {
		respondError(c, err)
		return
	}

	jobID := uuid.NewString()
	job := queue.Job{
		ID:       jobID,
		Kind:     queue.JobIngest,
		Args:     mustJSON(ingest.Args{SourceID: source.ID, Force: req.Force}),
		TimeoutS: 1800,
	}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		respondError(c, err)
		return
	}
	if err := s.Progress.Update(ctx, jobID, queue.StateQueued, 0, "queued", nil, ""); err != nil {
		s.Logger.Warn("ingest: failed to seed initial progress record", zap.Error(err))
	}

	c.JSON(202, gin.H{
		"job_id":           jobID,
		"source_id":        source.ID,
		"status_url":       fmt.Sprintf("/ingest/%s/status", jobID),
		"events_url":       fmt.Sprintf("/ingest/%s/events", jobID),
		"estimated_seconds": 60,
	})
}

func (s *Server) ingestStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	status, err := s.Progress.Get(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"state":   status.State,
		"pct":     status.Pct,
		"message": status.Message,
		"result":  json.RawMessage(status.Result),
		"error":   status.Error,
	})
}

func (s *Server) ingestEvents(c *gin.Context) {
	stream.JobEvents(c, s.Progress, c.Param("job_id"))
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
