package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	trendsdomain "github.com/scyra/scyra/internal/trends/domain"
)

type generateTrendsRequest struct {
	Niche string `json:"niche"`
}

func (s *Server) GenerateTrends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req generateTrendsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, trendsdomain.ErrInvalidNiche)
		return
	}

	report, err := s.trendsSvc.Generate(c.Request.Context(), trendsdomain.GenerateRequest{
		UserID: userID,
		Niche:  req.Niche,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) TrendHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	requests, err := s.trendsSvc.History(c.Request.Context(), trendsdomain.HistoryRequest{
		UserID: userID,
		Limit:  trendsdomain.DefaultHistoryLimit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
