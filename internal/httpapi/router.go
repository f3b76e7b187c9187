// Package httpapi wires the gin router for the Q&A core: /ask, the
// read-only game catalog, /ingest plus its status/events endpoints, and
// /feedback.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ruleoracle/internal/answer"
	"ruleoracle/internal/budget"
	"ruleoracle/internal/cache"
	"ruleoracle/internal/conflict"
	"ruleoracle/internal/llm"
	"ruleoracle/internal/metrics"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/ratelimit"
	"ruleoracle/internal/retrieval"
	"ruleoracle/internal/store"
)

// Server holds every collaborator the handlers close over.
type Server struct {
	Store     *store.Store
	Retrieval *retrieval.Engine
	Conflict  *conflict.Detector
	Generator *answer.Generator
	LLM       *llm.Client

	AnswerCache cache.Cache
	Limiter     *ratelimit.Limiter
	Concurrent  *ratelimit.ConcurrentGate
	Budget      *budget.Gate

	Queue    *queue.Queue
	Progress *queue.ProgressBus

	Logger *zap.Logger

	FrontendOrigin         string
	AskRateLimitPerMinute  int
	AskRateLimitPerHour    int
	IngestRateLimitPerHour int
	IngestConcurrentCap    int
	AnswerCacheTTL         time.Duration
}

// NewRouter builds the gin engine with the documented route table.
func (s *Server) NewRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.cors())

	r.GET("/games", s.listGames)
	r.GET("/games/:id", s.getGame)
	r.GET("/games/:id/expansions", s.listExpansions)

	r.POST("/ask", s.handleAsk)
	r.POST("/ingest", s.handleIngest)
	r.GET("/ingest/:job_id/status", s.ingestStatus)
	r.GET("/ingest/:job_id/events", s.ingestEvents)

	r.POST("/feedback", s.handleFeedback)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// cors applies a single configurable allowed origin rather than a
// hardcoded "*".
func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", s.FrontendOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
