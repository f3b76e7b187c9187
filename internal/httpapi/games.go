package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ruleoracle/internal/apperr"
)

func (s *Server) listGames(c *gin.Context) {
	games, err := s.Store.Games.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"games": games})
}

func (s *Server) getGame(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("invalid_game_id", "game id must be an integer"))
		return
	}
	game, err := s.Store.Games.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, game)
}

func (s *Server) listExpansions(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("invalid_game_id", "game id must be an integer"))
		return
	}
	expansions, err := s.Store.Expansions.ListForGame(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"expansions": expansions})
}
