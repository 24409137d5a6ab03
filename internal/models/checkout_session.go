package models

import "time"

// CheckoutSession tracks one user's progress through the checkout steps.
// Delivery fields are empty until the DELIVERY step has been submitted.
type CheckoutSession struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Step          string    `gorm:"size:32;not null" json:"step"`
	FullName      string    `gorm:"size:128" json:"full_name"`
	Phone         string    `gorm:"size:32" json:"phone"`
	Address       string    `gorm:"size:512" json:"address"`
	Method        string    `gorm:"size:16" json:"method"`
	TransactionID string    `gorm:"size:64;index" json:"transaction_id"`
	Outcome       string    `gorm:"size:24" json:"outcome"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}

// HasDelivery reports whether the delivery step output is present.
func (s *CheckoutSession) HasDelivery() bool {
	return s.FullName != "" && s.Phone != "" && s.Address != ""
}
