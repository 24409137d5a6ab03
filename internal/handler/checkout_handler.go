package handler

import (
	"errors"
	"net/http"

	"epay/internal/middleware"
	"epay/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler serves the session-resume and delivery-capture steps.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// GetSession lets a returning client resume at its current step.
func (h *CheckoutHandler) GetSession(c *gin.Context) {
	sess, err := h.checkout.Session(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

type deliveryRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address" binding:"required"`
}

func (h *CheckoutHandler) SubmitDelivery(c *gin.Context) {
	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full name, phone and address are required"})
		return
	}
	sess, err := h.checkout.SubmitDelivery(middleware.GetUserID(c), req.FullName, req.Phone, req.Address)
	if err != nil {
		var stepErr *service.IncompleteStepError
		if errors.As(err, &stepErr) {
			c.JSON(http.StatusConflict, gin.H{"redirect_to": stepErr.Step})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}
