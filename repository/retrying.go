package repository

import (
	"context"
	"time"

	"webhook-service/models"
	"webhook-service/retry"
)

// retryingRepo decorates a BillingRepository so that every write goes
// through the retrier's exponential backoff. Reads are passed through
// untouched: the idempotency lookup must answer fast and its errors
// are handled conservatively by the caller.
type retryingRepo struct {
	base    BillingRepository
	retrier *retry.Retrier
}

func NewRetrying(base BillingRepository, retrier *retry.Retrier) BillingRepository {
	return &retryingRepo{base: base, retrier: retrier}
}

func (r *retryingRepo) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.retrier.Do(ctx, "insert transaction", func() error {
		return r.base.InsertTransaction(ctx, tx)
	})
}

func (r *retryingRepo) TransactionExists(ctx context.Context, paymentID string) (bool, error) {
	return r.base.TransactionExists(ctx, paymentID)
}

func (r *retryingRepo) UpsertSubscription(ctx context.Context, sub *models.Subscription, columns []string) error {
	return r.retrier.Do(ctx, "upsert subscription", func() error {
		return r.base.UpsertSubscription(ctx, sub, columns)
	})
}

func (r *retryingRepo) InsertInsuranceLog(ctx context.Context, entry *models.InsuranceLog) error {
	return r.retrier.Do(ctx, "insert insurance log", func() error {
		return r.base.InsertInsuranceLog(ctx, entry)
	})
}

func (r *retryingRepo) LockUser(ctx context.Context, userID, reason string, lockedAt time.Time) error {
	return r.retrier.Do(ctx, "lock user", func() error {
		return r.base.LockUser(ctx, userID, reason, lockedAt)
	})
}

func (r *retryingRepo) Ping(ctx context.Context) error {
	return r.base.Ping(ctx)
}
