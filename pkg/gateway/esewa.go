package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"epay/config"
	"epay/internal/domain"
)

// Esewa implements the redirect/form gateway: initiation is a signed
// hidden-field map the client POSTs to eSewa as a full page, the callback is
// a base64 JSON blob on the success redirect which we re-confirm against
// eSewa's transaction status endpoint before trusting anything in it.
type Esewa struct {
	cfg        config.EsewaConfig
	successURL string
	failureURL string
	client     *http.Client
}

func NewEsewa(cfg config.EsewaConfig, baseURL string) *Esewa {
	return &Esewa{
		cfg:        cfg,
		successURL: baseURL + "/checkout/success?payment=esewa",
		failureURL: baseURL + "/checkout/payment-options?payment=failed",
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Esewa) Gateway() domain.Gateway {
	return domain.GatewayEsewa
}

const esewaSignedFieldNames = "total_amount,transaction_uuid,product_code"

// Initiate builds the ePay v2 form description. No network call happens
// here; the client performs the full-page POST itself.
func (e *Esewa) Initiate(ctx context.Context, intent Intent) (*InitiateResult, error) {
	amount := domain.FormatRupees(intent.AmountPaisa)
	fields := map[string]string{
		"amount":                  amount,
		"tax_amount":              "0",
		"total_amount":            amount,
		"transaction_uuid":        intent.TransactionID,
		"product_code":            e.cfg.MerchantCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             e.successURL,
		"failure_url":             e.failureURL,
		"signed_field_names":      esewaSignedFieldNames,
	}
	fields["signature"] = Sign(e.cfg.SecretKey, []Field{
		{Name: "total_amount", Value: amount},
		{Name: "transaction_uuid", Value: intent.TransactionID},
		{Name: "product_code", Value: e.cfg.MerchantCode},
	})
	log.Printf("[eSewa] initiate txn=%s total_amount=%s", intent.TransactionID, amount)
	return &InitiateResult{
		Gateway:    domain.GatewayEsewa,
		FormURL:    e.cfg.FormURL,
		FormFields: fields,
	}, nil
}

// esewaCallbackData is the decoded success-redirect blob. Entirely
// client-supplied, so it is only used to address the status lookup.
type esewaCallbackData struct {
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     json.Number `json:"total_amount"`
	Status          string      `json:"status"`
	ProductCode     string      `json:"product_code"`
}

type esewaStatusResp struct {
	ProductCode     string      `json:"product_code"`
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     json.Number `json:"total_amount"`
	Status          string      `json:"status"`
	RefID           string      `json:"ref_id"`
}

// ParseCallback decodes the redirect blob and asks eSewa for the
// transaction's actual status. The returned Callback carries eSewa's answer,
// not the blob's claims.
func (e *Esewa) ParseCallback(ctx context.Context, params CallbackParams) (*Callback, error) {
	raw, err := decodeBase64(params.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed callback data", domain.ErrValidation)
	}
	var data esewaCallbackData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: callback data is not JSON", domain.ErrValidation)
	}
	if data.TransactionUUID == "" {
		return nil, fmt.Errorf("%w: callback missing transaction_uuid", domain.ErrValidation)
	}

	q := url.Values{}
	q.Set("product_code", e.cfg.MerchantCode)
	q.Set("total_amount", data.TotalAmount.String())
	q.Set("transaction_uuid", data.TransactionUUID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.StatusURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("[eSewa] status lookup failed txn=%s: %v", data.TransactionUUID, err)
		return nil, fmt.Errorf("%w: status lookup: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[eSewa] status lookup txn=%s http=%d", data.TransactionUUID, resp.StatusCode)
		return nil, fmt.Errorf("%w: status lookup returned %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
	var status esewaStatusResp
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: undecodable status response", domain.ErrGatewayUnavailable)
	}
	paisa, err := domain.ParsePaisa(status.TotalAmount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: status amount %q", domain.ErrGatewayUnavailable, status.TotalAmount)
	}
	log.Printf("[eSewa] status txn=%s status=%s amount=%s ref=%s", status.TransactionUUID, status.Status, status.TotalAmount, status.RefID)
	return &Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: status.TransactionUUID,
		AmountPaisa:   paisa,
		Status:        status.Status,
	}, nil
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not; the
// blob arrives via a query string and shows up in all four shapes.
func decodeBase64(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("not base64")
}
