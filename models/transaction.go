package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

// Transaction is a one-time payment record (card or BNPL). Rows are
// written once and never updated; payment_id carries the uniqueness
// constraint that makes redelivered webhooks safe.
type Transaction struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        string    `gorm:"type:varchar(255);index" json:"user_id"`
	OrderID       string    `gorm:"type:varchar(255);not null" json:"order_id"`
	PaymentID     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"payment_id"`
	PaymentMethod string    `gorm:"type:varchar(50)" json:"payment_method"`
	AmountPaid    float64   `gorm:"type:numeric(12,2)" json:"amount_paid"` // major currency units
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	UserEmail     string    `gorm:"type:varchar(255)" json:"user_email,omitempty"`
	Metadata      *string   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "bnpl_transactions" }

// JSONText marshals v for storage in a jsonb column. Returns nil when
// marshaling fails so a bad metadata blob never blocks the main write.
func JSONText(v interface{}) *string {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}
