package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) listUserCredits(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lots, err := s.creditSvc.GetUserCredits(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": lots})
}

func (s *Server) getCreditHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)

	lots, err := s.creditSvc.GetCreditHistory(c.Request.Context(), id, limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": lots, "limit": limit, "offset": offset})
}

type grantCreditsRequest struct {
	UserID  snowflake.ID `json:"user_id" binding:"required"`
	Amount  int64        `json:"amount" binding:"required"`
	AdminID int64        `json:"admin_id" binding:"required"`
	Reason  string       `json:"reason"`
}

func (s *Server) grantCredits(c *gin.Context) {
	var req grantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	lot, err := s.creditSvc.GrantAdminCredits(c.Request.Context(), req.UserID, req.Amount, req.AdminID, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credit": lot})
}

type transferCreditsRequest struct {
	FromUserID snowflake.ID `json:"from_user_id" binding:"required"`
	ToUserID   snowflake.ID `json:"to_user_id" binding:"required"`
	Amount     int64        `json:"amount" binding:"required"`
	Reason     string       `json:"reason"`
}

func (s *Server) transferCredits(c *gin.Context) {
	var req transferCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ok, err := s.creditSvc.TransferCredits(c.Request.Context(), req.FromUserID, req.ToUserID, req.Amount, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transferred": ok})
}

func (s *Server) expireCredits(c *gin.Context) {
	expired, err := s.creditSvc.ExpireOldCredits(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits_expired": expired})
}

func (s *Server) listExpiringCredits(c *gin.Context) {
	daysAhead := queryInt(c, "days_ahead", 7)

	lots, err := s.creditSvc.GetExpiringCredits(c.Request.Context(), daysAhead)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": lots, "days_ahead": daysAhead})
}

func (s *Server) getCreditStatistics(c *gin.Context) {
	stats, err := s.creditSvc.GetCreditStatistics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
