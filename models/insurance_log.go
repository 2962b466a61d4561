package models

import (
	"time"

	"github.com/google/uuid"
)

// InsuranceLog is an append-only audit record of NFT insurance
// activity. There is no update path.
type InsuranceLog struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	NFTID          string    `gorm:"column:nft_id;type:varchar(255);index" json:"nft_id"`
	UserID         string    `gorm:"type:varchar(255);index" json:"user_id"`
	PolicyID       string    `gorm:"type:varchar(255)" json:"policy_id"`
	Status         string    `gorm:"type:varchar(30)" json:"status"`
	CoverageAmount float64   `gorm:"type:numeric(12,2)" json:"coverage_amount"`
	PremiumPaid    float64   `gorm:"type:numeric(12,2)" json:"premium_paid"`
	Metadata       *string   `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (InsuranceLog) TableName() string { return "nft_insurance_logs" }
