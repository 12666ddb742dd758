package matching

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fitmatch/fitmatch/internal/auth"
	"github.com/fitmatch/fitmatch/internal/db"
	svcErr "github.com/fitmatch/fitmatch/internal/errors"
)

type decisionRequest struct {
	TargetID uint64 `json:"target_id" binding:"required"`
	Kind     string `json:"kind" binding:"required,oneof=like pass"`
}

type likerResponse struct {
	ActorID       uint64 `json:"actor_id"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

func (s *Service) handleCandidates(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	candidates, err := s.NextCandidates(c.Request.Context(), userID, limit)
	if err != nil {
		s.fail(c, "NextCandidates", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (s *Service) handleDecision(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_id and kind (like|pass) are required"})
		return
	}

	result, err := s.RecordDecision(c.Request.Context(), userID, req.TargetID, db.DecisionKind(req.Kind))
	if err != nil {
		s.fail(c, "RecordDecision", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Service) handleListMatches(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	matches, err := s.ListMatches(c.Request.Context(), userID)
	if err != nil {
		s.fail(c, "ListMatches", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (s *Service) handleUnmatch(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	matchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "match id must be a valid uint64"})
		return
	}

	match, err := s.Unmatch(c.Request.Context(), matchID, userID)
	if err != nil {
		s.fail(c, "Unmatch", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": match})
}

func (s *Service) handleLikers(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}

	decisions, nextToken, err := s.ListLikers(c.Request.Context(), userID, token, limit)
	if err != nil {
		s.fail(c, "ListLikers", err)
		return
	}

	likers := make([]likerResponse, 0, len(decisions))
	for _, d := range decisions {
		likers = append(likers, likerResponse{
			ActorID:       d.ActorID,
			UnixTimestamp: d.CreatedAt.UnixMilli(),
		})
	}

	resp := gin.H{"likers": likers}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) fail(c *gin.Context, op string, err error) {
	status, msg := svcErr.Map(err)
	if status >= http.StatusInternalServerError {
		s.appCtx.Logger.Error(op+" failed", "err", err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
