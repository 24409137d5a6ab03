package registry

import (
	"context"
	"errors"
	"time"

	"epay/internal/domain"
	"epay/internal/models"

	"gorm.io/gorm"
)

// Gorm is the durable registry. Per-key exclusion comes from the database:
// transitions are state-guarded UPDATEs, so a lost race surfaces as zero
// rows affected rather than a clobbered state.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Create(ctx context.Context, intent *models.PaymentIntent) error {
	err := g.db.WithContext(ctx).Create(intent).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (g *Gorm) Get(ctx context.Context, transactionID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := g.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expire(&intent, time.Now()) {
		// Guarded like Transition; a concurrent sweep landing first is fine.
		g.db.WithContext(ctx).Model(&models.PaymentIntent{}).
			Where("transaction_id = ? AND state NOT IN ?", transactionID, terminalStates()).
			Update("state", domain.IntentExpired)
	}
	return &intent, nil
}

func (g *Gorm) FindByRef(ctx context.Context, ref string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := g.db.WithContext(ctx).Where("gateway_ref = ?", ref).First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return g.Get(ctx, intent.TransactionID)
}

func (g *Gorm) AttachRef(ctx context.Context, transactionID, ref string) error {
	res := g.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("transaction_id = ?", transactionID).
		Update("gateway_ref", ref)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *Gorm) Transition(ctx context.Context, transactionID string, to domain.IntentState) error {
	intent, err := g.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if !legalTransition(intent.State, to) {
		return ErrIllegalTransition
	}
	res := g.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("transaction_id = ? AND state = ?", transactionID, intent.State).
		Update("state", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Someone else moved it between the read and the update.
		return ErrIllegalTransition
	}
	return nil
}

func (g *Gorm) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	res := g.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("state NOT IN ? AND expires_at <= ?", terminalStates(), now).
		Update("state", domain.IntentExpired)
	return int(res.RowsAffected), res.Error
}

func terminalStates() []domain.IntentState {
	return []domain.IntentState{domain.IntentVerified, domain.IntentRejected, domain.IntentExpired}
}
