package models

import "time"

// BillingEvent is the normalized message published to Kafka after a
// webhook event has been fully recorded, for downstream consumers
// (dashboards, notifications). Delivery is best-effort.
type BillingEvent struct {
	Type           string    `json:"type"` // e.g. "payment_success", "subscription_past_due"
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id,omitempty"`
	PaymentID      string    `json:"payment_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Amount         float64   `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
