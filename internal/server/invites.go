package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invitedomain "github.com/swapforge/swapforge/internal/invite/domain"
)

type createInviteRequest struct {
	InviterUserID snowflake.ID `json:"inviter_user_id" binding:"required"`
	ExpiresInDays int          `json:"expires_in_days"`
}

func (s *Server) createInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	code, err := s.inviteSvc.CreateInvite(c.Request.Context(), req.InviterUserID, req.ExpiresInDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invite_code": code})
}

func (s *Server) validateInvite(c *gin.Context) {
	result, err := s.inviteSvc.ValidateInviteCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type acceptInviteRequest struct {
	InviteeUserID snowflake.ID `json:"invitee_user_id" binding:"required"`
}

func (s *Server) acceptInvite(c *gin.Context) {
	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.inviteSvc.ProcessInvite(c.Request.Context(), c.Param("code"), req.InviteeUserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type cancelInviteRequest struct {
	InviterUserID snowflake.ID `json:"inviter_user_id" binding:"required"`
}

func (s *Server) cancelInvite(c *gin.Context) {
	var req cancelInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	cancelled, err := s.inviteSvc.CancelInvite(c.Request.Context(), c.Param("code"), req.InviterUserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (s *Server) listUserInvites(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	status := invitedomain.InviteStatus(strings.ToUpper(c.Query("status")))
	invites, err := s.inviteSvc.GetUserInvites(c.Request.Context(), id, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites": invites})
}

func (s *Server) getUserInviteStats(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := s.inviteSvc.GetUserInviteStats(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) expireInvites(c *gin.Context) {
	expired, err := s.inviteSvc.ExpireOldInvites(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invites_expired": expired})
}

func (s *Server) getInviteStatistics(c *gin.Context) {
	stats, err := s.inviteSvc.GetInviteStatistics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
