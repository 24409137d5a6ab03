package handler

import (
	"net/http"
	"net/url"

	"epay/internal/domain"
	"epay/internal/service"
	"epay/pkg/gateway"

	"github.com/gin-gonic/gin"
)

// VerifyHandler is the callback boundary. The gateway redirect lands here
// carrying either a base64 blob (`data`) or a lookup handle (`pidx`); the
// outcome is a redirect to a landing page. The failure redirect never says
// which verification check failed; that stays in the server logs.
type VerifyHandler struct {
	checkout *service.CheckoutService
	baseURL  string
}

func NewVerifyHandler(checkout *service.CheckoutService, baseURL string) *VerifyHandler {
	return &VerifyHandler{checkout: checkout, baseURL: baseURL}
}

func (h *VerifyHandler) Verify(c *gin.Context) {
	method := domain.Gateway(c.Query("method"))
	if method == "" {
		h.fail(c, "invalid_method")
		return
	}
	if !method.Valid() {
		h.fail(c, "invalid_request")
		return
	}
	params := gateway.CallbackParams{
		Data: c.Query("data"),
		Pidx: c.Query("pidx"),
	}
	if params.Data == "" && params.Pidx == "" {
		h.fail(c, "invalid_request")
		return
	}

	res, err := h.checkout.CompleteFlow(c.Request.Context(), method, params)
	if err != nil {
		h.fail(c, "server_error")
		return
	}
	switch res.Outcome {
	case domain.OutcomeVerified:
		q := url.Values{}
		q.Set("payment", string(method))
		q.Set("verified", "true")
		q.Set("txn", res.Intent.TransactionID)
		if res.Intent.GatewayRef != "" {
			q.Set("pidx", res.Intent.GatewayRef)
		}
		c.Redirect(http.StatusFound, h.baseURL+"/checkout/success?"+q.Encode())
	case domain.OutcomeAmbiguousRetryable:
		// The gateway could not be reached; the intent is still awaiting
		// its callback and the client may retry.
		h.fail(c, "verification_error")
	default:
		h.fail(c, "verification_failed")
	}
}

func (h *VerifyHandler) fail(c *gin.Context, code string) {
	c.Redirect(http.StatusFound, h.baseURL+"/checkout/payment-options?error="+code)
}
