package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swapforge/swapforge/internal/session"
)

func (s *Server) setPendingUpload(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var upload session.PendingUpload
	if err := c.ShouldBindJSON(&upload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.sessions.Set(c.Request.Context(), id, upload); err != nil {
		AbortWithError(c, sessionError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored": true})
}

func (s *Server) getPendingUpload(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	upload, err := s.sessions.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, sessionError(err))
		return
	}
	if upload == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (s *Server) clearPendingUpload(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.sessions.Clear(c.Request.Context(), id); err != nil {
		AbortWithError(c, sessionError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrNotConfigured) {
		return ErrServiceUnavailable
	}
	return err
}
