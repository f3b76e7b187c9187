package httpapi

import (
	"github.com/gin-gonic/gin"

	"ruleoracle/internal/apperr"
	"ruleoracle/internal/store"
)

type feedbackRequest struct {
	AskHistoryID    int64               `json:"ask_history_id" binding:"required"`
	FeedbackType    store.FeedbackType  `json:"feedback_type" binding:"required"`
	SelectedChunkID *int64              `json:"selected_chunk_id"`
	UserNote        *string             `json:"user_note"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("invalid_request", err.Error()))
		return
	}
	id, err := s.Store.Feedback.Insert(c.Request.Context(), &store.Feedback{
		AskHistoryID:    req.AskHistoryID,
		FeedbackType:    req.FeedbackType,
		SelectedChunkID: req.SelectedChunkID,
		UserNote:        req.UserNote,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"feedback_id": id})
}
