package domain

// Gateway identifies a payment gateway integration.
type Gateway string

const (
	GatewayEsewa  Gateway = "esewa"
	GatewayKhalti Gateway = "khalti"
)

func (g Gateway) Valid() bool {
	return g == GatewayEsewa || g == GatewayKhalti
}

// CompleteToken returns the gateway's own completion marker. Each gateway
// spells it differently; a token must never be checked against the wrong
// gateway.
func (g Gateway) CompleteToken() string {
	switch g {
	case GatewayEsewa:
		return "COMPLETE"
	case GatewayKhalti:
		return "Completed"
	}
	return ""
}

// IntentState is the lifecycle state of a payment intent.
type IntentState string

const (
	IntentCreated          IntentState = "CREATED"
	IntentAwaitingCallback IntentState = "AWAITING_CALLBACK"
	IntentVerified         IntentState = "VERIFIED"
	IntentRejected         IntentState = "REJECTED"
	IntentExpired          IntentState = "EXPIRED"
)

// Terminal reports whether the state admits no further transitions.
func (s IntentState) Terminal() bool {
	return s == IntentVerified || s == IntentRejected || s == IntentExpired
}

// Outcome is the reconciled result of a gateway callback.
type Outcome string

const (
	OutcomeVerified           Outcome = "VERIFIED"
	OutcomeFailed             Outcome = "FAILED"
	OutcomeAmbiguousRetryable Outcome = "AMBIGUOUS_RETRYABLE"
)

// Checkout flow steps, in order. A request for a later step with an earlier
// step's output missing is answered with the first missing step.
const (
	StepAuth          = "AUTH"
	StepDelivery      = "DELIVERY"
	StepPaymentMethod = "PAYMENT_METHOD_SELECT"
	StepInitiate      = "INITIATE"
	StepVerifying     = "VERIFYING"
	StepSuccess       = "TERMINAL_SUCCESS"
	StepFailure       = "TERMINAL_FAILURE"
)
