package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"epay/config"
	"epay/internal/domain"
	"epay/internal/models"
	"epay/internal/registry"
	"epay/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory stores standing in for the GORM repositories.

type fakeSessionStore struct {
	byUser map[uint]*models.CheckoutSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byUser: make(map[uint]*models.CheckoutSession)}
}

func (f *fakeSessionStore) GetOrCreate(userID uint) (*models.CheckoutSession, error) {
	if s, ok := f.byUser[userID]; ok {
		return s, nil
	}
	s := &models.CheckoutSession{UserID: userID, Step: domain.StepDelivery}
	f.byUser[userID] = s
	return s, nil
}

func (f *fakeSessionStore) GetByTransactionID(txnID string) (*models.CheckoutSession, error) {
	for _, s := range f.byUser {
		if s.TransactionID == txnID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("session not found")
}

func (f *fakeSessionStore) Save(s *models.CheckoutSession) error {
	f.byUser[s.UserID] = s
	return nil
}

type fakeOrderStore struct {
	orders []*models.Order
}

func (f *fakeOrderStore) Create(o *models.Order) error {
	f.orders = append(f.orders, o)
	return nil
}

// fakeAdapter scripts gateway behavior per test.

type fakeAdapter struct {
	gw          domain.Gateway
	initiateErr error
	pidx        string
	callback    *gateway.Callback
	callbackErr error
}

func (f *fakeAdapter) Gateway() domain.Gateway { return f.gw }

func (f *fakeAdapter) Initiate(ctx context.Context, intent gateway.Intent) (*gateway.InitiateResult, error) {
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	return &gateway.InitiateResult{Gateway: f.gw, Pidx: f.pidx, PaymentURL: "https://gw/pay"}, nil
}

func (f *fakeAdapter) ParseCallback(ctx context.Context, params gateway.CallbackParams) (*gateway.Callback, error) {
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	return f.callback, nil
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Product.AmountPaisa = 12000
	return cfg
}

func newCheckout(adapters ...gateway.Adapter) (*CheckoutService, *fakeSessionStore, *fakeOrderStore, registry.Registry) {
	sessions := newFakeSessionStore()
	orders := &fakeOrderStore{}
	reg := registry.NewMemory()
	svc := NewCheckoutService(testConfig(), sessions, orders, reg, adapters...)
	return svc, sessions, orders, reg
}

func withDelivery(t *testing.T, svc *CheckoutService, userID uint) {
	t.Helper()
	_, err := svc.SubmitDelivery(userID, "Asha Shrestha", "9801234567", "Kathmandu")
	require.NoError(t, err)
}

func TestSubmitDelivery_AdvancesStep(t *testing.T) {
	svc, sessions, _, _ := newCheckout()
	sess, err := svc.SubmitDelivery(7, "Asha Shrestha", "9801234567", "Kathmandu")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPaymentMethod, sess.Step)
	assert.True(t, sessions.byUser[7].HasDelivery())
}

func TestSubmitDelivery_MissingFields(t *testing.T) {
	svc, _, _, _ := newCheckout()
	_, err := svc.SubmitDelivery(7, "", "9801234567", "Kathmandu")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitiate_RequiresDelivery(t *testing.T) {
	svc, _, _, _ := newCheckout(&fakeAdapter{gw: domain.GatewayEsewa})
	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:      domain.GatewayEsewa,
		AmountPaisa: 12000,
		ProductName: "Harpic",
	})
	var stepErr *IncompleteStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, domain.StepDelivery, stepErr.Step)
}

func TestInitiate_ValidationBeforeNetwork(t *testing.T) {
	boom := &fakeAdapter{gw: domain.GatewayEsewa, initiateErr: errors.New("must not be called")}
	svc, _, _, _ := newCheckout(boom)
	withDelivery(t, svc, 7)

	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{Method: "visa", AmountPaisa: 12000, ProductName: "Harpic"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Initiate(context.Background(), 7, InitiateRequest{Method: domain.GatewayEsewa, AmountPaisa: 0, ProductName: "Harpic"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Initiate(context.Background(), 7, InitiateRequest{Method: domain.GatewayEsewa, AmountPaisa: 12000, ProductName: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitiate_RegistersIntentAndAdvances(t *testing.T) {
	svc, sessions, _, reg := newCheckout(&fakeAdapter{gw: domain.GatewayKhalti, pidx: "pidx-1"})
	withDelivery(t, svc, 7)

	res, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:        domain.GatewayKhalti,
		AmountPaisa:   12000,
		ProductName:   "Harpic",
		TransactionID: "T1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pidx-1", res.Pidx)

	intent, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentAwaitingCallback, intent.State)
	assert.Equal(t, "pidx-1", intent.GatewayRef)
	assert.Equal(t, int64(12000), intent.AmountPaisa)

	sess := sessions.byUser[7]
	assert.Equal(t, domain.StepVerifying, sess.Step)
	assert.Equal(t, "T1", sess.TransactionID)
}

func TestInitiate_GeneratesTransactionID(t *testing.T) {
	svc, sessions, _, reg := newCheckout(&fakeAdapter{gw: domain.GatewayEsewa})
	withDelivery(t, svc, 7)

	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:      domain.GatewayEsewa,
		AmountPaisa: 12000,
		ProductName: "Harpic",
	})
	require.NoError(t, err)
	txnID := sessions.byUser[7].TransactionID
	require.NotEmpty(t, txnID)
	_, err = reg.Get(context.Background(), txnID)
	assert.NoError(t, err)
}

func TestInitiate_DuplicateTransactionID(t *testing.T) {
	svc, _, _, _ := newCheckout(&fakeAdapter{gw: domain.GatewayEsewa})
	withDelivery(t, svc, 7)

	req := InitiateRequest{Method: domain.GatewayEsewa, AmountPaisa: 12000, ProductName: "Harpic", TransactionID: "T1"}
	_, err := svc.Initiate(context.Background(), 7, req)
	require.NoError(t, err)
	_, err = svc.Initiate(context.Background(), 7, req)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitiate_GatewayDown_IntentStaysCreated(t *testing.T) {
	svc, _, _, reg := newCheckout(&fakeAdapter{gw: domain.GatewayKhalti, initiateErr: domain.ErrGatewayUnavailable})
	withDelivery(t, svc, 7)

	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:        domain.GatewayKhalti,
		AmountPaisa:   12000,
		ProductName:   "Harpic",
		TransactionID: "T1",
	})
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)

	intent, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentCreated, intent.State)
}

func TestCompleteFlow_VerifiedWritesOrder(t *testing.T) {
	adapter := &fakeAdapter{gw: domain.GatewayEsewa}
	svc, sessions, orders, _ := newCheckout(adapter)
	withDelivery(t, svc, 7)
	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:        domain.GatewayEsewa,
		AmountPaisa:   12000,
		ProductName:   "Harpic",
		TransactionID: "T1",
	})
	require.NoError(t, err)

	adapter.callback = &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		AmountPaisa:   12000,
		Status:        "COMPLETE",
	}
	res, err := svc.CompleteFlow(context.Background(), domain.GatewayEsewa, gateway.CallbackParams{Data: "blob"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeVerified, res.Outcome)

	require.Len(t, orders.orders, 1)
	order := orders.orders[0]
	assert.Equal(t, "T1", order.TransactionID)
	assert.Equal(t, uint(7), order.UserID)
	assert.Equal(t, int64(12000), order.AmountPaisa)
	assert.Equal(t, "Asha Shrestha", order.FullName)

	assert.Equal(t, domain.StepSuccess, sessions.byUser[7].Step)
}

func TestCompleteFlow_GatewayUnreachable_Ambiguous(t *testing.T) {
	adapter := &fakeAdapter{gw: domain.GatewayKhalti, pidx: "pidx-1"}
	svc, _, orders, reg := newCheckout(adapter)
	withDelivery(t, svc, 7)
	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:        domain.GatewayKhalti,
		AmountPaisa:   12000,
		ProductName:   "Harpic",
		TransactionID: "T1",
	})
	require.NoError(t, err)

	adapter.callbackErr = fmt.Errorf("%w: lookup timed out", domain.ErrGatewayUnavailable)
	res, err := svc.CompleteFlow(context.Background(), domain.GatewayKhalti, gateway.CallbackParams{Pidx: "pidx-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAmbiguousRetryable, res.Outcome)

	// Intent not terminalized by a transport blip.
	intent, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentAwaitingCallback, intent.State)
	assert.Empty(t, orders.orders)
}

func TestCompleteFlow_InvalidCallback_Failed(t *testing.T) {
	adapter := &fakeAdapter{gw: domain.GatewayEsewa}
	svc, _, orders, _ := newCheckout(adapter)

	adapter.callbackErr = fmt.Errorf("%w: malformed callback data", domain.ErrValidation)
	res, err := svc.CompleteFlow(context.Background(), domain.GatewayEsewa, gateway.CallbackParams{Data: "garbage"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Empty(t, orders.orders)
}

func TestCompleteFlow_UnknownMethod(t *testing.T) {
	svc, _, _, _ := newCheckout()
	_, err := svc.CompleteFlow(context.Background(), "visa", gateway.CallbackParams{Data: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCompleteFlow_FailureSettlesSession(t *testing.T) {
	adapter := &fakeAdapter{gw: domain.GatewayEsewa}
	svc, sessions, orders, _ := newCheckout(adapter)
	withDelivery(t, svc, 7)
	_, err := svc.Initiate(context.Background(), 7, InitiateRequest{
		Method:        domain.GatewayEsewa,
		AmountPaisa:   12000,
		ProductName:   "Harpic",
		TransactionID: "T1",
	})
	require.NoError(t, err)

	adapter.callback = &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		AmountPaisa:   10000, // tampered
		Status:        "COMPLETE",
	}
	res, err := svc.CompleteFlow(context.Background(), domain.GatewayEsewa, gateway.CallbackParams{Data: "blob"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Empty(t, orders.orders)
	assert.Equal(t, domain.StepFailure, sessions.byUser[7].Step)
}
