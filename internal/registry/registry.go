// Package registry owns payment intent state. All state changes go through
// Transition, which enforces the legal edges; nothing else mutates an
// intent's state, and intents are never deleted.
package registry

import (
	"context"
	"errors"
	"time"

	"epay/internal/domain"
	"epay/internal/models"
)

var (
	ErrDuplicateKey      = errors.New("transaction id already registered")
	ErrNotFound          = errors.New("intent not found")
	ErrIllegalTransition = errors.New("illegal state transition")
)

// Registry is the keyed store of payment intents. Implementations must
// support concurrent Create/Transition across distinct transaction ids; the
// required discipline is per-key mutual exclusion, not a global lock.
type Registry interface {
	// Create registers a new intent. ErrDuplicateKey if the transaction id
	// is already taken.
	Create(ctx context.Context, intent *models.PaymentIntent) error

	// Get returns the intent for a transaction id, lazily expiring it if
	// its TTL has passed. ErrNotFound if absent.
	Get(ctx context.Context, transactionID string) (*models.PaymentIntent, error)

	// FindByRef returns the intent carrying the given gateway handle
	// (Khalti pidx). ErrNotFound if absent.
	FindByRef(ctx context.Context, ref string) (*models.PaymentIntent, error)

	// AttachRef records the gateway's handle on an intent after initiation.
	AttachRef(ctx context.Context, transactionID, ref string) error

	// Transition moves an intent along a legal edge. ErrIllegalTransition
	// for anything else, including transitions out of a terminal state.
	Transition(ctx context.Context, transactionID string, to domain.IntentState) error

	// SweepExpired moves every non-terminal intent past its TTL to EXPIRED
	// and returns how many it moved.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// legalTransition is the edge table:
// Created → AwaitingCallback → {Verified, Rejected}, and any non-terminal
// state → Expired on TTL.
func legalTransition(from, to domain.IntentState) bool {
	switch to {
	case domain.IntentAwaitingCallback:
		return from == domain.IntentCreated
	case domain.IntentVerified, domain.IntentRejected:
		return from == domain.IntentAwaitingCallback
	case domain.IntentExpired:
		return !from.Terminal()
	}
	return false
}

// expire applies lazy TTL expiry to an intent loaded by Get. Returns true if
// the state was changed.
func expire(intent *models.PaymentIntent, now time.Time) bool {
	if intent.State.Terminal() || now.Before(intent.ExpiresAt) {
		return false
	}
	intent.State = domain.IntentExpired
	return true
}
