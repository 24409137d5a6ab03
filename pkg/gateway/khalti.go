package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"epay/config"
	"epay/internal/domain"
)

// Khalti implements the JSON-API gateway: initiation is a server-to-server
// POST returning a hosted payment URL plus a pidx lookup handle, and the
// callback is verified with a second server-to-server lookup POST. Khalti
// speaks paisa natively; the one rupee→paisa conversion for the whole system
// lives in this file.
type Khalti struct {
	cfg       config.KhaltiConfig
	returnURL string
	baseURL   string
	client    *http.Client
}

func NewKhalti(cfg config.KhaltiConfig, baseURL string) *Khalti {
	return &Khalti{
		cfg:       cfg,
		returnURL: baseURL + "/checkout/success?payment=khalti",
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (k *Khalti) Gateway() domain.Gateway {
	return domain.GatewayKhalti
}

type khaltiInitiateResp struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

// Initiate POSTs to the ePayment initiate endpoint. The call is not
// idempotent on Khalti's side; the caller treats every invocation as
// fallible. A non-2xx answer degrades to the client-side widget payload
// rather than failing the whole flow.
func (k *Khalti) Initiate(ctx context.Context, intent Intent) (*InitiateResult, error) {
	payload := map[string]any{
		"return_url":          k.returnURL,
		"website_url":         k.baseURL,
		"amount":              intent.AmountPaisa,
		"purchase_order_id":   intent.TransactionID,
		"purchase_order_name": intent.ProductName,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.InitiateURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+k.cfg.SecretKey)
	log.Printf("[Khalti] POST initiate order=%s amount_paisa=%d", intent.TransactionID, intent.AmountPaisa)
	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: initiate: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[Khalti] initiate order=%s http=%d body=%s, falling back to widget", intent.TransactionID, resp.StatusCode, string(respBody))
		return &InitiateResult{
			Gateway:   domain.GatewayKhalti,
			PublicKey: k.cfg.PublicKey,
			Payload:   payload,
			Fallback:  true,
		}, nil
	}
	var out khaltiInitiateResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: undecodable initiate response", domain.ErrGatewayUnavailable)
	}
	log.Printf("[Khalti] initiated order=%s pidx=%s", intent.TransactionID, out.Pidx)
	return &InitiateResult{
		Gateway:    domain.GatewayKhalti,
		PaymentURL: out.PaymentURL,
		Pidx:       out.Pidx,
		PublicKey:  k.cfg.PublicKey,
		Payload:    payload,
	}, nil
}

type khaltiLookupResp struct {
	Pidx        string `json:"pidx"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"`
	Refunded    bool   `json:"refunded"`
}

// ParseCallback resolves a pidx through the lookup endpoint. 4xx means the
// handle itself is bad (forged or stale, a hard failure); transport errors
// and 5xx stay retryable.
func (k *Khalti) ParseCallback(ctx context.Context, params CallbackParams) (*Callback, error) {
	if params.Pidx == "" {
		return nil, fmt.Errorf("%w: missing pidx", domain.ErrValidation)
	}
	body, _ := json.Marshal(map[string]string{"pidx": params.Pidx})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.LookupURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+k.cfg.SecretKey)
	resp, err := k.client.Do(req)
	if err != nil {
		log.Printf("[Khalti] lookup failed pidx=%s: %v", params.Pidx, err)
		return nil, fmt.Errorf("%w: lookup: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		log.Printf("[Khalti] lookup pidx=%s http=%d body=%s", params.Pidx, resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("%w: unknown pidx", domain.ErrValidation)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lookup returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	var out khaltiLookupResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: undecodable lookup response", domain.ErrGatewayUnavailable)
	}
	log.Printf("[Khalti] lookup pidx=%s status=%s total_amount=%d", out.Pidx, out.Status, out.TotalAmount)
	return &Callback{
		Gateway:     domain.GatewayKhalti,
		GatewayRef:  out.Pidx,
		AmountPaisa: out.TotalAmount,
		Status:      out.Status,
	}, nil
}
