package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/lumamail/backend/internal/usage/domain"
)

type CheckUsageRequest struct {
	Action    string `json:"action"`
	SendCount int    `json:"sendCount"`
	Cost      int64  `json:"cost"`
}

type TrackUsageRequest struct {
	Action    string `json:"action"`
	SendCount int    `json:"sendCount"`
	Cost      int64  `json:"cost"`
	Note      string `json:"note"`
}

func (s *Server) CheckUsage(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CheckUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.usageSvc.CheckLimit(c.Request.Context(), usagedomain.CheckLimitRequest{
		UserID:    userID,
		Action:    usagedomain.Action(req.Action),
		Count:     normalizeCount(req.SendCount),
		CostCents: req.Cost,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) TrackUsage(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req TrackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.usageSvc.Track(c.Request.Context(), usagedomain.TrackRequest{
		UserID:    userID,
		Action:    usagedomain.Action(req.Action),
		Count:     normalizeCount(req.SendCount),
		CostCents: req.Cost,
		Note:      req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) UsageStats(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	stats, err := s.usageSvc.Stats(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// normalizeCount defaults an omitted count to a single action.
func normalizeCount(n int) int {
	if n == 0 {
		return 1
	}
	return n
}
