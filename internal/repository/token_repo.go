package repository

import (
	"time"

	"epay/internal/models"

	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(t *models.VerificationToken) error {
	return r.db.Create(t).Error
}

// FindValid returns the unexpired token matching email and code.
func (r *TokenRepository) FindValid(email, code string, now time.Time) (*models.VerificationToken, error) {
	var t models.VerificationToken
	err := r.db.Where("email = ? AND code = ? AND expires_at > ?", email, code, now).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) Delete(id uint) error {
	return r.db.Delete(&models.VerificationToken{}, id).Error
}

// DeleteForEmail discards any outstanding codes before issuing a new one.
func (r *TokenRepository) DeleteForEmail(email string) error {
	return r.db.Where("email = ?", email).Delete(&models.VerificationToken{}).Error
}
