package controllers

import (
	"context"
	"net/http"
	"time"

	"webhook-service/apperrors"
	"webhook-service/kafka"
	"webhook-service/models"
	"webhook-service/repository"
	"webhook-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

type WebhookController struct {
	Stripe *services.StripeService
	Repo   repository.BillingRepository
	Locks  *services.AccessLockManager
	Events kafka.Publisher // optional; nil disables publishing
	Logger *zap.Logger
}

// StripeWebhook receives, verifies and dispatches Stripe webhook
// events. A verification failure never reaches dispatch; a handler
// failure asks the provider to redeliver by answering non-2xx.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Webhook signature verification failed",
			"message": err.Error(),
		})
		return
	}

	wc.Logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	if err := wc.dispatch(c.Request.Context(), event); err != nil {
		wc.Logger.Error("Webhook processing failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		c.JSON(apperrors.StatusForProcessing(err), gin.H{
			"error":   "Webhook processing failed",
			"message": err.Error(),
			"event":   string(event.Type),
			"id":      event.ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":  true,
		"event":     string(event.Type),
		"id":        event.ID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// dispatch routes a verified event to its handler. Unrecognized types
// are acknowledged with no side effect so new provider event types
// never bounce.
func (wc *WebhookController) dispatch(ctx context.Context, event stripe.Event) error {
	var err error
	switch event.Type {
	case "checkout.session.completed":
		err = wc.handleCheckoutCompleted(ctx, event)
	case "invoice.payment_succeeded":
		err = wc.handleInvoicePaymentSucceeded(ctx, event)
	case "invoice.payment_failed":
		err = wc.handleInvoicePaymentFailed(ctx, event)
	case "customer.subscription.created":
		err = wc.handleSubscriptionCreated(ctx, event)
	case "customer.subscription.updated":
		err = wc.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = wc.handleSubscriptionDeleted(ctx, event)
	case "payment_intent.succeeded":
		err = wc.handlePaymentIntentStatus(ctx, event, models.TransactionStatusSuccess)
	case "payment_intent.payment_failed":
		err = wc.handlePaymentIntentStatus(ctx, event, models.TransactionStatusFailed)
	default:
		wc.Logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
		return nil
	}

	if err != nil {
		return apperrors.NewProcessing(event.ID, string(event.Type), err)
	}
	return nil
}
