package controllers

import (
	"webhook-service/models"

	"go.uber.org/zap"
)

// publishBillingEvent sends a normalized event to Kafka, best-effort.
// Publishing failures are logged, never surfaced to the provider.
func (wc *WebhookController) publishBillingEvent(event models.BillingEvent) {
	if wc.Events == nil {
		return
	}
	if err := wc.Events.SendBillingEvent(event); err != nil {
		wc.Logger.Error("Failed to publish billing event",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}
	wc.Logger.Info("Billing event published",
		zap.String("event_type", event.Type),
		zap.String("event_id", event.EventID),
	)
}
