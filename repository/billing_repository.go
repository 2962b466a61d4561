package repository

import (
	"context"
	"time"

	"webhook-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillingRepository is the persistence surface the webhook pipeline
// writes through. All mutations are keyed inserts or upserts so they
// are safe under redelivery.
type BillingRepository interface {
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	TransactionExists(ctx context.Context, paymentID string) (bool, error)
	UpsertSubscription(ctx context.Context, sub *models.Subscription, columns []string) error
	InsertInsuranceLog(ctx context.Context, entry *models.InsuranceLog) error
	LockUser(ctx context.Context, userID, reason string, lockedAt time.Time) error
	Ping(ctx context.Context) error
}

type gormBillingRepo struct {
	db *gorm.DB
}

func NewGormBillingRepo(db *gorm.DB) BillingRepository {
	return &gormBillingRepo{db: db}
}

// InsertTransaction writes a one-time payment record. A conflicting
// payment_id makes the insert a no-op, so re-applying the same
// physical write (or a redelivered event) never creates a second row.
func (r *gormBillingRepo) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}},
			DoNothing: true,
		}).
		Create(tx).Error
}

func (r *gormBillingRepo) TransactionExists(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertSubscription inserts or updates a subscription keyed on
// subscription_id. Only the given columns are written on conflict, so
// fields an event does not supply are left untouched. The update is
// guarded against rows already in the canceled state: canceled is
// terminal and no later event may resurrect it.
func (r *gormBillingRepo) UpsertSubscription(ctx context.Context, sub *models.Subscription, columns []string) error {
	assigned := append([]string{}, columns...)
	assigned = append(assigned, "updated_at")
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}},
			DoUpdates: clause.AssignmentColumns(assigned),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Neq{
					Column: clause.Column{Table: "weekly_subscriptions", Name: "status"},
					Value:  models.SubscriptionStatusCanceled,
				},
			}},
		}).
		Create(sub).Error
}

func (r *gormBillingRepo) InsertInsuranceLog(ctx context.Context, entry *models.InsuranceLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// LockUser applies a partial update to the user row. Updating a user
// that does not exist affects zero rows and is not an error.
func (r *gormBillingRepo) LockUser(ctx context.Context, userID, reason string, lockedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"subscription_locked": true,
			"lock_reason":         reason,
			"locked_at":           lockedAt,
		}).Error
}

// Ping performs a lightweight read for the health endpoint.
func (r *gormBillingRepo) Ping(ctx context.Context) error {
	var ids []string
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Limit(1).
		Pluck("id", &ids).Error
}
