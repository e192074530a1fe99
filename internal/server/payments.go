package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/swapforge/swapforge/internal/payment/domain"
)

func (s *Server) starsWebhook(c *gin.Context) {
	var payment paymentdomain.StarsPayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.paymentSvc.ProcessStarsPayment(c.Request.Context(), payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) upiWebhook(c *gin.Context) {
	var payment paymentdomain.UPIPayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.paymentSvc.ProcessUPIPayment(c.Request.Context(), payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getTransactionHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 20)
	transactions, err := s.paymentSvc.GetTransactionHistory(c.Request.Context(), id, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

func (s *Server) getPaymentStatistics(c *gin.Context) {
	stats, err := s.paymentSvc.GetPaymentStatistics(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
