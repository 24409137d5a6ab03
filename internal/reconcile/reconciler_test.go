package reconcile

import (
	"context"
	"testing"
	"time"

	"epay/internal/domain"
	"epay/internal/models"
	"epay/internal/registry"
	"epay/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awaitingIntent(t *testing.T, reg registry.Registry, txnID string, amountPaisa int64, gw domain.Gateway) {
	t.Helper()
	err := reg.Create(context.Background(), &models.PaymentIntent{
		TransactionID: txnID,
		UserID:        1,
		AmountPaisa:   amountPaisa,
		Currency:      "NPR",
		ProductName:   "Harpic",
		Gateway:       gw,
		State:         domain.IntentAwaitingCallback,
		ExpiresAt:     time.Now().Add(20 * time.Minute),
	})
	require.NoError(t, err)
}

func TestReconcile_Verified(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayEsewa)
	r := New(reg)

	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		AmountPaisa:   12000,
		Status:        "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeVerified, res.Outcome)
	assert.Equal(t, domain.IntentVerified, res.Intent.State)

	stored, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentVerified, stored.State)
}

func TestReconcile_AmountMismatch(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayEsewa)
	r := New(reg)

	// Status token is the success token, amount is short: still failed.
	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		AmountPaisa:   10000,
		Status:        "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Reason, domain.ErrAmountMismatch)

	stored, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRejected, stored.State)
}

func TestReconcile_UnknownTransaction(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayEsewa)
	r := New(reg)

	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T-forged",
		AmountPaisa:   12000,
		Status:        "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Reason, domain.ErrUnknownTransaction)
	assert.Nil(t, res.Intent)

	// No side effect on any existing intent.
	stored, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentAwaitingCallback, stored.State)
}

func TestReconcile_ReplayAfterVerified(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayEsewa)
	r := New(reg)

	cb := &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		AmountPaisa:   12000,
		Status:        "COMPLETE",
	}
	first, err := r.Reconcile(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeVerified, first.Outcome)

	second, err := r.Reconcile(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, second.Outcome)
	assert.ErrorIs(t, second.Reason, domain.ErrReplayedTransaction)

	// Original intent untouched by the replay.
	stored, err := reg.Get(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentVerified, stored.State)
}

func TestReconcile_WrongStatusToken(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayEsewa)
	r := New(reg)

	for _, status := range []string{"PENDING", "complete", "COMPLETED", "COMPLETE ", ""} {
		t.Run("status_"+status, func(t *testing.T) {
			res, err := r.Reconcile(context.Background(), &gateway.Callback{
				Gateway:       domain.GatewayEsewa,
				TransactionID: "T1",
				AmountPaisa:   12000,
				Status:        status,
			})
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeFailed, res.Outcome)
		})
	}
}

func TestReconcile_TokenNotCrossGateway(t *testing.T) {
	reg := registry.NewMemory()
	// Khalti intent answered with eSewa's token must not verify.
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayKhalti)
	require.NoError(t, reg.AttachRef(context.Background(), "T1", "pidx-1"))
	r := New(reg)

	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:     domain.GatewayKhalti,
		GatewayRef:  "pidx-1",
		AmountPaisa: 12000,
		Status:      "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Reason, domain.ErrStatusMismatch)
}

func TestReconcile_KhaltiByRef(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayKhalti)
	require.NoError(t, reg.AttachRef(context.Background(), "T1", "pidx-1"))
	r := New(reg)

	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:     domain.GatewayKhalti,
		GatewayRef:  "pidx-1",
		AmountPaisa: 12000,
		Status:      "Completed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeVerified, res.Outcome)
	assert.Equal(t, "T1", res.Intent.TransactionID)
}

func TestReconcile_MismatchedGatewayRef(t *testing.T) {
	reg := registry.NewMemory()
	awaitingIntent(t, reg, "T1", 12000, domain.GatewayEsewa)
	r := New(reg)

	// A callback naming T1 but claiming a ref T1 never had.
	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		GatewayRef:    "someone-elses-ref",
		AmountPaisa:   12000,
		Status:        "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Reason, domain.ErrReplayedTransaction)
}

func TestReconcile_ExpiredIntent(t *testing.T) {
	reg := registry.NewMemory()
	err := reg.Create(context.Background(), &models.PaymentIntent{
		TransactionID: "T1",
		AmountPaisa:   12000,
		Gateway:       domain.GatewayEsewa,
		State:         domain.IntentAwaitingCallback,
		ExpiresAt:     time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	r := New(reg)

	res, err := r.Reconcile(context.Background(), &gateway.Callback{
		Gateway:       domain.GatewayEsewa,
		TransactionID: "T1",
		AmountPaisa:   12000,
		Status:        "COMPLETE",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Reason, domain.ErrReplayedTransaction)
}
