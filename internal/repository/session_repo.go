package repository

import (
	"errors"

	"epay/internal/domain"
	"epay/internal/models"

	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetOrCreate returns the user's checkout session, creating one at the
// DELIVERY step for a freshly authenticated user.
func (r *SessionRepository) GetOrCreate(userID uint) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	err := r.db.Where("user_id = ?", userID).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	s = models.CheckoutSession{UserID: userID, Step: domain.StepDelivery}
	if err := r.db.Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) GetByTransactionID(txnID string) (*models.CheckoutSession, error) {
	var s models.CheckoutSession
	err := r.db.Where("transaction_id = ?", txnID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Save(s *models.CheckoutSession) error {
	return r.db.Save(s).Error
}
