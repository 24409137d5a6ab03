// Package reconcile matches gateway callbacks to their original intents and
// decides whether a claimed payment actually happened.
package reconcile

import (
	"context"
	"errors"
	"log"

	"epay/internal/domain"
	"epay/internal/models"
	"epay/internal/registry"
	"epay/pkg/gateway"
)

// Result is the reconciled outcome. Reason records which check failed; it is
// for logs and the audit trail, never for the end user.
type Result struct {
	Outcome domain.Outcome
	Intent  *models.PaymentIntent
	Reason  error
}

type Reconciler struct {
	reg registry.Registry
}

func New(reg registry.Registry) *Reconciler {
	return &Reconciler{reg: reg}
}

// Reconcile validates a callback against its intent and applies the
// resulting state transition. The checks, in order: the transaction must be
// known, the intent must still be awaiting its callback, the gateway's
// status must be that gateway's exact completion token, the callback's
// identity (transaction id or gateway ref) must match the intent's, and the
// amounts must be equal in paisa. All five pass → VERIFIED; any failure
// → FAILED with the intent rejected, except that an unknown or already
// settled transaction leaves every stored intent untouched.
func (r *Reconciler) Reconcile(ctx context.Context, cb *gateway.Callback) (*Result, error) {
	intent, err := r.lookup(ctx, cb)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			log.Printf("[Reconcile] unknown transaction txn=%q ref=%q gateway=%s", cb.TransactionID, cb.GatewayRef, cb.Gateway)
			return &Result{Outcome: domain.OutcomeFailed, Reason: domain.ErrUnknownTransaction}, nil
		}
		return nil, err
	}

	if intent.State != domain.IntentAwaitingCallback {
		// Replay of a settled transaction or a stale/expired intent. The
		// stored intent is terminal (or Created, never initiated) and must
		// not be touched again.
		log.Printf("[Reconcile] replay or stale txn=%s state=%s", intent.TransactionID, intent.State)
		return &Result{Outcome: domain.OutcomeFailed, Intent: intent, Reason: domain.ErrReplayedTransaction}, nil
	}

	if reason := r.check(intent, cb); reason != nil {
		log.Printf("[Reconcile] rejected txn=%s: %v", intent.TransactionID, reason)
		if err := r.reg.Transition(ctx, intent.TransactionID, domain.IntentRejected); err != nil {
			return nil, err
		}
		intent.State = domain.IntentRejected
		return &Result{Outcome: domain.OutcomeFailed, Intent: intent, Reason: reason}, nil
	}

	if err := r.reg.Transition(ctx, intent.TransactionID, domain.IntentVerified); err != nil {
		if errors.Is(err, registry.ErrIllegalTransition) {
			// Lost a race against a concurrent callback for the same id.
			return &Result{Outcome: domain.OutcomeFailed, Intent: intent, Reason: domain.ErrReplayedTransaction}, nil
		}
		return nil, err
	}
	intent.State = domain.IntentVerified
	log.Printf("[Reconcile] verified txn=%s gateway=%s amount_paisa=%d", intent.TransactionID, intent.Gateway, intent.AmountPaisa)
	return &Result{Outcome: domain.OutcomeVerified, Intent: intent}, nil
}

func (r *Reconciler) lookup(ctx context.Context, cb *gateway.Callback) (*models.PaymentIntent, error) {
	if cb.TransactionID != "" {
		return r.reg.Get(ctx, cb.TransactionID)
	}
	if cb.GatewayRef != "" {
		return r.reg.FindByRef(ctx, cb.GatewayRef)
	}
	return nil, registry.ErrNotFound
}

// check runs the field-level validations. Status tokens are per-gateway and
// compared by exact string equality; amounts are compared as paisa, never
// coerced or rounded.
func (r *Reconciler) check(intent *models.PaymentIntent, cb *gateway.Callback) error {
	if cb.Gateway != intent.Gateway {
		return domain.ErrStatusMismatch
	}
	if cb.Status != intent.Gateway.CompleteToken() {
		return domain.ErrStatusMismatch
	}
	if cb.TransactionID != "" && cb.TransactionID != intent.TransactionID {
		return domain.ErrReplayedTransaction
	}
	if cb.GatewayRef != "" && cb.GatewayRef != intent.GatewayRef {
		return domain.ErrReplayedTransaction
	}
	if cb.AmountPaisa != intent.AmountPaisa {
		return domain.ErrAmountMismatch
	}
	return nil
}
