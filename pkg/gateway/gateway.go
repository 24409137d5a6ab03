package gateway

import (
	"context"

	"epay/internal/domain"
)

// Intent is the adapter-facing view of a payment intent: just the fields a
// gateway needs to initiate or verify. Amounts are paisa; each adapter owns
// whatever unit conversion its gateway requires, call sites never convert.
type Intent struct {
	TransactionID string
	AmountPaisa   int64
	Currency      string
	ProductName   string
}

// InitiateResult describes how the client should hand control to the
// gateway. Exactly one shape is populated, tagged by Gateway: a form
// auto-submission (eSewa) or a hosted payment URL with a lookup handle
// (Khalti). Fallback marks Khalti's degraded client-side-widget mode after a
// failed server-side initiation; it is not a verified anything.
type InitiateResult struct {
	Gateway domain.Gateway `json:"gateway"`

	// Redirect/form gateway.
	FormURL    string            `json:"form_url,omitempty"`
	FormFields map[string]string `json:"form_fields,omitempty"`

	// JSON-API gateway.
	PaymentURL string         `json:"payment_url,omitempty"`
	Pidx       string         `json:"pidx,omitempty"`
	PublicKey  string         `json:"public_key,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Fallback   bool           `json:"fallback,omitempty"`
}

// CallbackParams is the raw, untrusted query material a gateway redirect
// carries back: a base64 JSON blob (eSewa `data`) or a lookup handle
// (Khalti `pidx`).
type CallbackParams struct {
	Data string
	Pidx string
}

// Callback is the gateway's asserted view of a transaction's outcome, after
// the adapter has confirmed it with the gateway itself. Still untrusted
// against the intent; the reconciler does that matching.
type Callback struct {
	Gateway       domain.Gateway
	TransactionID string
	GatewayRef    string
	AmountPaisa   int64
	Status        string
}

// Adapter is the per-gateway integration contract. Both methods perform
// outbound network calls; transport failures come back classified as
// domain.ErrGatewayUnavailable, malformed callback material as
// domain.ErrValidation. Raw errors do not escape.
type Adapter interface {
	Gateway() domain.Gateway
	Initiate(ctx context.Context, intent Intent) (*InitiateResult, error)
	ParseCallback(ctx context.Context, params CallbackParams) (*Callback, error)
}
