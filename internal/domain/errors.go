package domain

import "errors"

// Fault taxonomy. Everything the gateway adapters and the reconciler can
// produce is classified into one of these before it reaches a handler; raw
// transport or decode errors never escape the payment layer.
var (
	// ErrValidation covers bad or missing caller input (4xx-equivalent).
	ErrValidation = errors.New("validation failed")

	// Verification faults. All map to a FAILED outcome; which one fired is
	// logged server-side and never shown to the end user.
	ErrUnknownTransaction  = errors.New("unknown transaction")
	ErrReplayedTransaction = errors.New("transaction replayed or stale")
	ErrAmountMismatch      = errors.New("amount mismatch")
	ErrStatusMismatch      = errors.New("gateway status mismatch")

	// ErrGatewayUnavailable marks a transport-level failure (timeout,
	// refused connection, garbage body) talking to a gateway. It is
	// retryable and must not be conflated with a verification failure.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrInternal is the opaque fallback for unexpected faults.
	ErrInternal = errors.New("internal error")
)
