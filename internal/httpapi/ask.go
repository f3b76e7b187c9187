package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ruleoracle/internal/answer"
	"ruleoracle/internal/apperr"
	"ruleoracle/internal/ingest"
	"ruleoracle/internal/llm"
	"ruleoracle/internal/metrics"
	"ruleoracle/internal/normalize"
	"ruleoracle/internal/queue"
	"ruleoracle/internal/retrieval"
	"ruleoracle/internal/store"
)

type askRequest struct {
	GameID        int64   `json:"game_id" binding:"required"`
	Edition       string  `json:"edition"`
	Question      string  `json:"question" binding:"required"`
	ExpansionIDs  []int64 `json:"expansion_ids"`
}

type citationWire struct {
	ChunkID  int64  `json:"chunk_id"`
	Quote    string `json:"quote"`
	Page     int    `json:"page"`
	Verified bool   `json:"verified"`
}

type supersededRuleWire struct {
	Quote      string `json:"quote"`
	Page       int    `json:"page"`
	SourceType string `json:"source_type"`
	Reason     string `json:"reason"`
}

type askResponse struct {
	Verdict         string              `json:"verdict"`
	Confidence      store.Confidence    `json:"confidence"`
	Citations       []citationWire      `json:"citations"`
	SupersededRule  *supersededRuleWire `json:"superseded_rule,omitempty"`
	ConflictNote    string              `json:"conflict_note,omitempty"`
	Notes           []string            `json:"notes,omitempty"`
	RelevantSections []citationWire     `json:"relevant_sections,omitempty"`
	Cached          bool                `json:"cached"`
	ResponseTimeMS  int64               `json:"response_time_ms"`
	HistoryID       int64               `json:"history_id,omitempty"`
}

func (s *Server) handleAsk(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()

	admit, retryAfter, err := s.Budget.Check(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	if !admit {
		metrics.BudgetRejections.Inc()
		c.JSON(503, gin.H{"success": false, "error_code": "budget_exhausted",
			"detail": "daily cost budget exhausted", "retry_after": retryAfter.Format(time.RFC3339)})
		return
	}

	clientIP := c.ClientIP()
	minuteLimit, err := s.Limiter.Allow(ctx, "ask:ip:"+clientIP, s.AskRateLimitPerMinute, minuteWindow)
	if err != nil {
		respondError(c, err)
		return
	}
	if !minuteLimit.Allowed {
		writeRateLimitHeaders(c, minuteLimit)
		metrics.RateLimitRejections.WithLabelValues("ask").Inc()
		respondError(c, apperr.New(apperr.KindRateLimited, "rate_limited", "too many requests per minute"))
		return
	}
	sessionKey := c.GetHeader("X-Session-Id")
	if sessionKey == "" {
		sessionKey = clientIP
	}
	hourLimit, err := s.Limiter.Allow(ctx, "ask:session:"+sessionKey, s.AskRateLimitPerHour, hourWindow)
	if err != nil {
		respondError(c, err)
		return
	}
	if !hourLimit.Allowed {
		writeRateLimitHeaders(c, hourLimit)
		metrics.RateLimitRejections.WithLabelValues("ask").Inc()
		respondError(c, apperr.New(apperr.KindRateLimited, "rate_limited", "too many requests per hour"))
		return
	}
	writeRateLimitHeaders(c, minuteLimit)

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid_request", err.Error()))
		return
	}
	if len(req.Question) < 5 || len(req.Question) > 1000 {
		respondError(c, apperr.Validation("invalid_question", "question must be 5-1000 characters"))
		return
	}

	game, err := s.Store.Games.Get(ctx, req.GameID)
	if err != nil {
		respondError(c, err)
		return
	}

	sources, err := s.Store.Sources.ListIndexable(ctx, req.GameID, req.Edition, req.ExpansionIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(sources) == 0 {
		respondError(c, apperr.NotFound("no_sources_configured", "no configured sources for this game/edition"))
		return
	}

	toIndex, err := s.sourcesNeedingIngestion(ctx, sources)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(toIndex) > 0 {
		jobIDs, err := s.enqueueIndexing(ctx, toIndex)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(202, gin.H{
			"status":            "indexing",
			"job_id":            jobIDs[0],
			"job_ids":           jobIDs,
			"status_url":        fmt.Sprintf("/ingest/%s/status", jobIDs[0]),
			"sources_to_index":  len(toIndex),
			"estimated_seconds": 60 * len(toIndex),
		})
		return
	}

	normalizedQuestion := normalize.Question(req.Question)
	cacheKey := "answer:" + cacheKeyFor(req.GameID, req.Edition, req.ExpansionIDs, normalizedQuestion)
	if s.AnswerCache != nil {
		if raw, ok, _ := s.AnswerCache.Get(ctx, cacheKey); ok {
			var cached askResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("answer").Inc()
				cached.Cached = true
				cached.ResponseTimeMS = time.Since(start).Milliseconds()
				c.JSON(200, cached)
				return
			}
		}
		metrics.CacheMisses.WithLabelValues("answer").Inc()
	}

	sourceIDs := make([]int64, len(sources))
	for i, src := range sources {
		sourceIDs[i] = src.ID
	}

	result, err := s.Retrieval.Search(ctx, retrieval.DefaultParams(req.Question, sourceIDs, req.ExpansionIDs))
	if err != nil {
		respondError(c, err)
		return
	}

	conflictResult, conflictCost, err := s.Conflict.Detect(ctx, req.Question, result.PreExpansion)
	if err != nil {
		s.Logger.Warn("ask: conflict detection failed, proceeding without it", zap.Error(err))
	}
	s.recordCost(c, conflictCost, "conflict_detect")

	candidates := make([]answer.Candidate, len(result.Candidates))
	for i, sc := range result.Candidates {
		candidates[i] = answer.Candidate{
			ChunkID:    sc.Chunk.ID,
			Page:       sc.Chunk.PageNumber,
			SourceType: precedenceLabel(sc.Chunk.PrecedenceLevel),
			Text:       sc.Chunk.ChunkText,
		}
	}

	genResult, err := s.Generator.Generate(ctx, req.Question, game.Name, req.Edition, candidates)
	if err != nil {
		respondError(c, err)
		return
	}
	s.recordCost(c, genResult.Cost, "ask_generate")

	topScore, scoreGap := scoreStats(result.Candidates)
	confidence, reason := answer.Grade(genResult.Verified, topScore, scoreGap, conflictResult.IsConflict)

	resp := askResponse{
		Verdict:    genResult.Payload.Verdict,
		Confidence: confidence,
		Notes:      genResult.Payload.Notes,
	}
	if reason != "" {
		resp.Notes = append(resp.Notes, "confidence reason: "+reason)
	}
	if conflictResult.IsConflict {
		resp.ConflictNote = conflictResult.Note
	}

	var historyCitations []store.Citation
	if genResult.Verified {
		resp.Citations = []citationWire{{
			ChunkID: genResult.VerifiedChunkID, Quote: genResult.Payload.QuoteExact,
			Page: genResult.Payload.Page, Verified: true,
		}}
		historyCitations = []store.Citation{{
			ChunkID: genResult.VerifiedChunkID, Quote: genResult.Payload.QuoteExact,
			Page: genResult.Payload.Page, Verified: true,
		}}
		if sr, err := s.supersededRuleFor(ctx, genResult.VerifiedChunkID, game.Name); err == nil && sr != nil {
			resp.SupersededRule = sr
		}
	} else {
		resp.Citations = []citationWire{}
		for i, sc := range result.Candidates {
			if i >= 3 {
				break
			}
			resp.RelevantSections = append(resp.RelevantSections, citationWire{
				ChunkID: sc.Chunk.ID, Quote: truncateRunes(sc.Chunk.ChunkText, 300), Page: sc.Chunk.PageNumber,
			})
		}
	}

	resp.ResponseTimeMS = time.Since(start).Milliseconds()

	historyID, err := s.Store.History.Insert(ctx, &store.AskHistory{
		GameID: req.GameID, Edition: optionalString(req.Edition), ExpansionsUsed: req.ExpansionIDs,
		Question: req.Question, NormalizedQuestion: normalizedQuestion,
		Verdict: resp.Verdict, Confidence: confidence, ConfidenceReason: reason,
		Citations: historyCitations, ResponseTimeMS: int(resp.ResponseTimeMS), ModelUsed: s.LLM.ChatModel,
	})
	if err != nil {
		s.Logger.Warn("ask: history insert failed", zap.Error(err))
	} else {
		resp.HistoryID = historyID
	}

	if s.AnswerCache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			_ = s.AnswerCache.Set(ctx, cacheKey, raw, s.AnswerCacheTTL)
		}
	}

	metrics.AskRequests.WithLabelValues(string(confidence)).Inc()
	metrics.AskLatency.WithLabelValues(string(confidence)).Observe(time.Since(start).Seconds())
	c.JSON(200, resp)
}

func (s *Server) sourcesNeedingIngestion(ctx context.Context, sources []store.Source) ([]store.Source, error) {
	var out []store.Source
	for _, src := range sources {
		if src.NeedsReingest || src.LastIngestedAt == nil {
			out = append(out, src)
			continue
		}
		n, err := s.Store.Chunks.CountForSource(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *Server) enqueueIndexing(ctx context.Context, sources []store.Source) ([]string, error) {
	jobIDs := make([]string, 0, len(sources))
	for _, src := range sources {
		jobID := uuid.NewString()
		job := queue.Job{
			ID: jobID, Kind: queue.JobIngest,
			Args:     mustJSON(ingest.Args{SourceID: src.ID}),
			TimeoutS: 1800,
		}
		if err := s.Queue.Enqueue(ctx, job); err != nil {
			return nil, err
		}
		_ = s.Progress.Update(ctx, jobID, queue.StateQueued, 0, "queued", nil, "")
		jobIDs = append(jobIDs, jobID)
	}
	return jobIDs, nil
}

func (s *Server) supersededRuleFor(ctx context.Context, verifiedChunkID int64, gameName string) (*supersededRuleWire, error) {
	chunk, err := s.Store.Chunks.Get(ctx, verifiedChunkID)
	if err != nil {
		return nil, err
	}
	if chunk.OverridesChunkID == nil {
		return nil, nil
	}
	expansionName := gameName
	if src, err := s.Store.Sources.Get(ctx, chunk.SourceID); err == nil && src.ExpansionID != nil {
		if exps, err := s.Store.Expansions.GetMany(ctx, []int64{*src.ExpansionID}); err == nil && len(exps) > 0 {
			expansionName = exps[0].Name
		}
	}
	base, err := s.Store.Chunks.Get(ctx, *chunk.OverridesChunkID)
	if err != nil {
		return nil, err
	}
	return &supersededRuleWire{
		Quote:      truncateRunes(base.ChunkText, 300),
		Page:       base.PageNumber,
		SourceType: precedenceLabel(base.PrecedenceLevel),
		Reason:     fmt.Sprintf("%s supersedes this base rule", expansionName),
	}, nil
}

// recordCost persists a non-zero API cost row under the request's
// correlation id, best-effort — a failed cost write must never block
// the response.
func (s *Server) recordCost(c *gin.Context, cost llm.ApiCost, endpoint string) {
	if cost.Model == "" && cost.CostUSD == 0 && cost.InputTokens == 0 {
		return
	}
	if err := s.Store.Costs.Insert(c.Request.Context(), &store.ApiCost{
		RequestID: requestIDFrom(c), Endpoint: endpoint, Model: cost.Model,
		InputTokens: cost.InputTokens, OutputTokens: cost.OutputTokens, CostUSD: cost.CostUSD,
	}); err != nil {
		s.Logger.Warn("ask: cost insert failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
}

func precedenceLabel(level store.PrecedenceLevel) string {
	switch level {
	case store.PrecedenceErrata:
		return "errata"
	case store.PrecedenceExpansion:
		return "expansion"
	default:
		return "rulebook"
	}
}

func scoreStats(candidates []retrieval.Scored) (topScore, gap float64) {
	if len(candidates) == 0 {
		return 0, 0
	}
	topScore = candidates[0].Score
	if len(candidates) > 1 {
		gap = topScore - candidates[1].Score
	} else {
		gap = topScore
	}
	return topScore, gap
}

func cacheKeyFor(gameID int64, edition string, expansionIDs []int64, normalizedQuestion string) string {
	return fmt.Sprintf("%d:%s:%v:%s", gameID, edition, expansionIDs, normalizedQuestion)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
