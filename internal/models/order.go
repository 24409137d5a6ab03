package models

import (
	"time"

	"epay/internal/domain"
)

// Order is written once, when an intent reaches VERIFIED.
type Order struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	TransactionID string         `gorm:"size:64;uniqueIndex;not null" json:"transaction_id"`
	ProductName   string         `gorm:"size:128;not null" json:"product_name"`
	AmountPaisa   int64          `gorm:"not null" json:"amount_paisa"`
	Currency      string         `gorm:"size:3;default:'NPR'" json:"currency"`
	Gateway       domain.Gateway `gorm:"size:16;not null" json:"gateway"`
	FullName      string         `gorm:"size:128" json:"full_name"`
	Phone         string         `gorm:"size:32" json:"phone"`
	Address       string         `gorm:"size:512" json:"address"`
	CreatedAt     time.Time      `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}
