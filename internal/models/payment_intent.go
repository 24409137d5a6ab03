package models

import (
	"time"

	"epay/internal/domain"
)

// PaymentIntent records one attempt to pay for one order. TransactionID and
// AmountPaisa are immutable after creation; only State and GatewayRef change,
// and State only through the registry's transition rules. Intents are never
// deleted; terminal rows stay as the audit trail.
type PaymentIntent struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	TransactionID string             `gorm:"size:64;uniqueIndex;not null" json:"transaction_id"`
	UserID        uint               `gorm:"not null;index" json:"user_id"`
	AmountPaisa   int64              `gorm:"not null" json:"amount_paisa"`
	Currency      string             `gorm:"size:3;default:'NPR'" json:"currency"`
	ProductName   string             `gorm:"size:128" json:"product_name"`
	Gateway       domain.Gateway     `gorm:"size:16;not null" json:"gateway"`
	State         domain.IntentState `gorm:"size:24;not null;index" json:"state"`
	// GatewayRef is the gateway's own handle for this intent (Khalti pidx);
	// empty for gateways that key callbacks by transaction id alone.
	GatewayRef string    `gorm:"size:128;index" json:"gateway_ref"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
}

func (PaymentIntent) TableName() string {
	return "payment_intents"
}
