package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	userdomain "github.com/swapforge/swapforge/internal/user/domain"
)

func (s *Server) getOrCreateUser(c *gin.Context) {
	var req userdomain.GetOrCreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	account, created, err := s.userSvc.GetOrCreateUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"user": account, "created": created})
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	account, err := s.userSvc.GetUser(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": account})
}

func (s *Server) getBalance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	balance, err := s.creditSvc.GetActiveCreditBalance(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": id.String(), "balance": balance})
}

func (s *Server) agreeToTerms(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.userSvc.AgreeToTerms(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agreed": true})
}

func (s *Server) searchUsers(c *gin.Context) {
	filter := userdomain.SearchFilter{
		Query:  strings.TrimSpace(c.Query("query")),
		Status: userdomain.UserStatus(strings.ToUpper(c.Query("status"))),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}

	users, err := s.userSvc.SearchUsers(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	total, err := s.userSvc.GetUserCount(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

func (s *Server) getUserStats(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := s.userSvc.GetUserStats(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) suspendUser(c *gin.Context) {
	s.setUserStatus(c, s.userSvc.SuspendUser)
}

func (s *Server) banUser(c *gin.Context) {
	s.setUserStatus(c, s.userSvc.BanUser)
}

func (s *Server) reactivateUser(c *gin.Context) {
	s.setUserStatus(c, s.userSvc.ReactivateUser)
}

func (s *Server) setUserStatus(c *gin.Context, apply func(ctx context.Context, id snowflake.ID) error) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	account, err := s.userSvc.GetUser(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": account})
}
