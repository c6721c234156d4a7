package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/scyra/scyra/internal/billing/domain"
)

type checkoutRequest struct {
	PlanID    string `json:"planId"`
	ProductID string `json:"productId"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, billingdomain.ErrInvalidCheckout)
		return
	}

	checkout, err := s.billingSvc.CreateCheckout(c.Request.Context(), billingdomain.CheckoutRequest{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		PlanID:    req.PlanID,
		ProductID: req.ProductID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkout)
}
