package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"epay/internal/domain"
	"epay/internal/middleware"
	"epay/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentHandler is the initiation boundary: it validates the request before
// any network call and returns the gateway-specific handoff descriptor.
type PaymentHandler struct {
	checkout *service.CheckoutService
}

func NewPaymentHandler(checkout *service.CheckoutService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout}
}

type initiateRequest struct {
	Method        string      `json:"method" binding:"required"`
	Amount        json.Number `json:"amount" binding:"required"`
	ProductName   string      `json:"productName" binding:"required"`
	TransactionID string      `json:"transactionId"`
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "missing required fields"})
		return
	}
	amountPaisa, err := domain.ParsePaisa(req.Amount.String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid amount"})
		return
	}
	result, err := h.checkout.Initiate(c.Request.Context(), middleware.GetUserID(c), service.InitiateRequest{
		Method:        domain.Gateway(req.Method),
		AmountPaisa:   amountPaisa,
		ProductName:   req.ProductName,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		var stepErr *service.IncompleteStepError
		switch {
		case errors.As(err, &stepErr):
			c.JSON(http.StatusConflict, gin.H{"status": "error", "redirect_to": stepErr.Step})
		case errors.Is(err, domain.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request"})
		case errors.Is(err, domain.ErrGatewayUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "payment initiation failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "payment initiation failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "method": result.Gateway, "result": result})
}
