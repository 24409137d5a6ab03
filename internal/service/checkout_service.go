package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"epay/config"
	"epay/internal/domain"
	"epay/internal/models"
	"epay/internal/reconcile"
	"epay/internal/registry"
	"epay/pkg/gateway"

	"github.com/google/uuid"
)

// SessionStore and OrderStore are the slices of the repositories the
// checkout flow needs; the GORM repositories satisfy them.
type SessionStore interface {
	GetOrCreate(userID uint) (*models.CheckoutSession, error)
	GetByTransactionID(txnID string) (*models.CheckoutSession, error)
	Save(s *models.CheckoutSession) error
}

type OrderStore interface {
	Create(o *models.Order) error
}

// IncompleteStepError reports that an earlier checkout step's output is
// missing. The flow never hard-errors on ordering; it points the client back
// to the first missing step.
type IncompleteStepError struct {
	Step string
}

func (e *IncompleteStepError) Error() string {
	return fmt.Sprintf("checkout step %s not completed", e.Step)
}

// InitiateRequest is the validated "proceed to payment" input. AmountPaisa
// has already been through domain.ParsePaisa at the HTTP boundary.
type InitiateRequest struct {
	Method        domain.Gateway
	AmountPaisa   int64
	ProductName   string
	TransactionID string
}

// CheckoutService sequences the user-facing flow: auth → delivery → method
// select → initiate → verifying → terminal. It owns no payment math; that
// lives in the adapters, the registry and the reconciler.
type CheckoutService struct {
	cfg        *config.Config
	sessions   SessionStore
	orders     OrderStore
	reg        registry.Registry
	reconciler *reconcile.Reconciler
	adapters   map[domain.Gateway]gateway.Adapter
}

func NewCheckoutService(cfg *config.Config, sessions SessionStore, orders OrderStore, reg registry.Registry, adapters ...gateway.Adapter) *CheckoutService {
	byGateway := make(map[domain.Gateway]gateway.Adapter, len(adapters))
	for _, a := range adapters {
		byGateway[a.Gateway()] = a
	}
	return &CheckoutService{
		cfg:        cfg,
		sessions:   sessions,
		orders:     orders,
		reg:        reg,
		reconciler: reconcile.New(reg),
		adapters:   byGateway,
	}
}

// Session returns the user's current checkout session, creating one at the
// delivery step on first touch.
func (s *CheckoutService) Session(userID uint) (*models.CheckoutSession, error) {
	return s.sessions.GetOrCreate(userID)
}

// SubmitDelivery captures the delivery details and advances to method
// selection.
func (s *CheckoutService) SubmitDelivery(userID uint, fullName, phone, address string) (*models.CheckoutSession, error) {
	if fullName == "" || phone == "" || address == "" {
		return nil, fmt.Errorf("%w: full name, phone and address are required", domain.ErrValidation)
	}
	sess, err := s.sessions.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	sess.FullName = fullName
	sess.Phone = phone
	sess.Address = address
	sess.Step = domain.StepPaymentMethod
	if err := s.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Initiate creates the payment intent and produces the gateway handoff. The
// intent is registered before any network call and only moves to
// AWAITING_CALLBACK once the gateway handoff exists.
func (s *CheckoutService) Initiate(ctx context.Context, userID uint, req InitiateRequest) (*gateway.InitiateResult, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method", domain.ErrValidation)
	}
	if req.AmountPaisa <= 0 || req.ProductName == "" {
		return nil, fmt.Errorf("%w: missing required fields", domain.ErrValidation)
	}
	adapter := s.adapters[req.Method]
	if adapter == nil {
		return nil, fmt.Errorf("%w: gateway %s not configured", domain.ErrValidation, req.Method)
	}

	sess, err := s.sessions.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	if !sess.HasDelivery() {
		return nil, &IncompleteStepError{Step: domain.StepDelivery}
	}

	txnID := req.TransactionID
	if txnID == "" {
		txnID = uuid.NewString()
	}
	intent := &models.PaymentIntent{
		TransactionID: txnID,
		UserID:        userID,
		AmountPaisa:   req.AmountPaisa,
		Currency:      s.cfg.Product.Currency,
		ProductName:   req.ProductName,
		Gateway:       req.Method,
		State:         domain.IntentCreated,
		ExpiresAt:     time.Now().Add(s.cfg.Payment.IntentTTL),
	}
	if err := s.reg.Create(ctx, intent); err != nil {
		if errors.Is(err, registry.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: transaction id already used", domain.ErrValidation)
		}
		return nil, err
	}

	result, err := adapter.Initiate(ctx, gateway.Intent{
		TransactionID: txnID,
		AmountPaisa:   req.AmountPaisa,
		Currency:      intent.Currency,
		ProductName:   req.ProductName,
	})
	if err != nil {
		// The intent stays CREATED; the sweeper expires it.
		return nil, err
	}
	if result.Pidx != "" {
		if err := s.reg.AttachRef(ctx, txnID, result.Pidx); err != nil {
			return nil, err
		}
	}
	if err := s.reg.Transition(ctx, txnID, domain.IntentAwaitingCallback); err != nil {
		return nil, err
	}

	sess.Method = string(req.Method)
	sess.TransactionID = txnID
	sess.Step = domain.StepVerifying
	if err := s.sessions.Save(sess); err != nil {
		return nil, err
	}
	log.Printf("[Checkout] initiated txn=%s user=%d gateway=%s amount_paisa=%d", txnID, userID, req.Method, req.AmountPaisa)
	return result, nil
}

// CompleteFlow resolves a gateway callback into a terminal verification
// result: Verified, Failed, or AmbiguousRetryable when the gateway itself
// could not be reached (the intent then stays AWAITING_CALLBACK for a
// later re-check).
func (s *CheckoutService) CompleteFlow(ctx context.Context, method domain.Gateway, params gateway.CallbackParams) (*reconcile.Result, error) {
	adapter := s.adapters[method]
	if adapter == nil {
		return nil, fmt.Errorf("%w: unknown payment method", domain.ErrValidation)
	}
	cb, err := adapter.ParseCallback(ctx, params)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			log.Printf("[Checkout] %s callback ambiguous: %v", method, err)
			return &reconcile.Result{Outcome: domain.OutcomeAmbiguousRetryable, Reason: err}, nil
		}
		if errors.Is(err, domain.ErrValidation) {
			log.Printf("[Checkout] %s callback invalid: %v", method, err)
			return &reconcile.Result{Outcome: domain.OutcomeFailed, Reason: err}, nil
		}
		return nil, err
	}
	res, err := s.reconciler.Reconcile(ctx, cb)
	if err != nil {
		return nil, err
	}
	if res.Intent != nil {
		s.settleSession(res)
	}
	return res, nil
}

// settleSession records the terminal outcome on the owning session and, on a
// verified payment, writes the durable order row.
func (s *CheckoutService) settleSession(res *reconcile.Result) {
	sess, err := s.sessions.GetByTransactionID(res.Intent.TransactionID)
	if err != nil {
		log.Printf("[Checkout] no session for txn=%s: %v", res.Intent.TransactionID, err)
		sess = nil
	}
	switch res.Outcome {
	case domain.OutcomeVerified:
		order := &models.Order{
			UserID:        res.Intent.UserID,
			TransactionID: res.Intent.TransactionID,
			ProductName:   res.Intent.ProductName,
			AmountPaisa:   res.Intent.AmountPaisa,
			Currency:      res.Intent.Currency,
			Gateway:       res.Intent.Gateway,
		}
		if sess != nil {
			order.FullName = sess.FullName
			order.Phone = sess.Phone
			order.Address = sess.Address
		}
		if err := s.orders.Create(order); err != nil {
			log.Printf("[Checkout] order write failed txn=%s: %v", res.Intent.TransactionID, err)
		}
		if sess != nil {
			sess.Step = domain.StepSuccess
			sess.Outcome = string(domain.OutcomeVerified)
		}
	case domain.OutcomeFailed:
		if sess != nil {
			sess.Step = domain.StepFailure
			sess.Outcome = string(domain.OutcomeFailed)
		}
	}
	if sess != nil {
		if err := s.sessions.Save(sess); err != nil {
			log.Printf("[Checkout] session save failed txn=%s: %v", res.Intent.TransactionID, err)
		}
	}
}
