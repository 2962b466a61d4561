package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPaused   = "paused"
)

// Subscription is the recurring billing state for a weekly plan,
// upserted keyed on subscription_id by every lifecycle webhook.
type Subscription struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubscriptionID   string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"subscription_id"`
	UserID           string     `gorm:"type:varchar(255);index" json:"user_id"`
	StripeCustomerID string     `gorm:"type:varchar(255);index" json:"stripe_customer_id"`
	Status           string     `gorm:"type:varchar(30);not null" json:"status"`
	StartDate        *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	NextBillingDate  *time.Time `gorm:"type:date" json:"next_billing_date,omitempty"`
	Amount           float64    `gorm:"type:numeric(12,2)" json:"amount"`
	Currency         string     `gorm:"type:varchar(10)" json:"currency"`
	UserEmail        string     `gorm:"type:varchar(255)" json:"user_email,omitempty"`
	Metadata         *string    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Subscription) TableName() string { return "weekly_subscriptions" }
