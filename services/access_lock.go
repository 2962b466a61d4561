package services

import (
	"context"
	"time"

	"webhook-service/repository"

	"go.uber.org/zap"
)

// AccessLockManager flips the per-user access flag when billing enters
// a blocked state. Lock writes are best-effort: the error is returned
// for observability but callers log and swallow it, so a failed lock
// never turns an otherwise processed webhook into a redelivery.
// Locking is idempotent and is retried on the next related event.
type AccessLockManager struct {
	repo   repository.BillingRepository
	logger *zap.Logger
}

func NewAccessLockManager(repo repository.BillingRepository, logger *zap.Logger) *AccessLockManager {
	return &AccessLockManager{repo: repo, logger: logger}
}

func (m *AccessLockManager) Lock(ctx context.Context, userID, reason string) error {
	if userID == "" {
		m.logger.Warn("Skipping access lock: no user id on event", zap.String("reason", reason))
		return nil
	}

	if err := m.repo.LockUser(ctx, userID, reason, time.Now().UTC()); err != nil {
		m.logger.Error("Failed to lock user access",
			zap.String("user_id", userID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return err
	}

	m.logger.Info("User access locked",
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
	return nil
}
