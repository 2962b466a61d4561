package models

import "time"

// User holds the per-user access lock flipped when billing enters a
// blocked state. Unlocking is an administrative action handled outside
// this service.
type User struct {
	ID                 string     `gorm:"type:varchar(255);primaryKey" json:"id"`
	Email              string     `gorm:"type:varchar(255)" json:"email,omitempty"`
	SubscriptionLocked bool       `gorm:"not null;default:false" json:"subscription_locked"`
	LockReason         string     `gorm:"type:varchar(100)" json:"lock_reason,omitempty"`
	LockedAt           *time.Time `json:"locked_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
