package controllers

import (
	"context"
	"encoding/json"
	"time"

	"webhook-service/apperrors"
	"webhook-service/models"
	"webhook-service/services"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

func (wc *WebhookController) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return apperrors.NewValidation("invalid checkout session payload", err)
	}

	paymentMethod := "card"
	if len(sess.PaymentMethodTypes) > 0 {
		paymentMethod = sess.PaymentMethodTypes[0]
	}

	if services.IsBNPL(paymentMethod) || sess.Mode == stripe.CheckoutSessionModePayment {
		tx := services.TransactionFromCheckout(&sess)
		if err := wc.Repo.InsertTransaction(ctx, &tx); err != nil {
			return err
		}
		wc.Logger.Info("Transaction recorded",
			zap.String("order_id", tx.OrderID),
			zap.String("payment_id", tx.PaymentID),
			zap.String("payment_method", tx.PaymentMethod),
		)
		wc.publishBillingEvent(models.BillingEvent{
			Type:      "payment_" + tx.Status,
			EventID:   event.ID,
			UserID:    tx.UserID,
			PaymentID: tx.PaymentID,
			Status:    tx.Status,
			Amount:    tx.AmountPaid,
			Currency:  string(sess.Currency),
			Timestamp: time.Now().UTC(),
		})
	}

	if sess.Mode == stripe.CheckoutSessionModeSubscription && sess.Subscription != nil {
		change := services.SubscriptionFromCheckout(&sess, time.Now().UTC())
		if err := wc.Repo.UpsertSubscription(ctx, &change.Record, change.Columns); err != nil {
			return err
		}
		wc.Logger.Info("Subscription activated",
			zap.String("subscription_id", change.Record.SubscriptionID),
			zap.String("customer_id", change.Record.StripeCustomerID),
		)
		wc.publishBillingEvent(models.BillingEvent{
			Type:           "subscription_active",
			EventID:        event.ID,
			UserID:         change.Record.UserID,
			SubscriptionID: change.Record.SubscriptionID,
			Status:         change.Record.Status,
			Amount:         change.Record.Amount,
			Currency:       change.Record.Currency,
			Timestamp:      time.Now().UTC(),
		})
	}

	return nil
}

func (wc *WebhookController) handleInvoicePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return apperrors.NewValidation("invalid invoice payload", err)
	}
	if inv.Subscription == nil {
		wc.Logger.Info("Invoice has no subscription, skipping", zap.String("invoice_id", inv.ID))
		return nil
	}

	change := services.SubscriptionFromInvoicePaid(&inv, time.Now().UTC())
	if err := wc.Repo.UpsertSubscription(ctx, &change.Record, change.Columns); err != nil {
		return err
	}
	wc.Logger.Info("Subscription billing refreshed",
		zap.String("subscription_id", change.Record.SubscriptionID),
		zap.String("invoice_id", inv.ID),
	)
	wc.publishBillingEvent(models.BillingEvent{
		Type:           "subscription_payment_succeeded",
		EventID:        event.ID,
		UserID:         change.Record.UserID,
		SubscriptionID: change.Record.SubscriptionID,
		Status:         change.Record.Status,
		Amount:         change.Record.Amount,
		Currency:       change.Record.Currency,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

func (wc *WebhookController) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return apperrors.NewValidation("invalid invoice payload", err)
	}
	if inv.Subscription == nil {
		wc.Logger.Info("Invoice has no subscription, skipping", zap.String("invoice_id", inv.ID))
		return nil
	}

	change := services.SubscriptionFromInvoiceFailed(&inv, time.Now().UTC())
	if err := wc.Repo.UpsertSubscription(ctx, &change.Record, change.Columns); err != nil {
		return err
	}

	// Best-effort: a failed lock write must not turn a recorded event
	// into a provider redelivery.
	_ = wc.Locks.Lock(ctx, change.Record.UserID, services.LockReasonPaymentFail)

	wc.publishBillingEvent(models.BillingEvent{
		Type:           "subscription_payment_failed",
		EventID:        event.ID,
		UserID:         change.Record.UserID,
		SubscriptionID: change.Record.SubscriptionID,
		Status:         change.Record.Status,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

func (wc *WebhookController) handleSubscriptionCreated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewValidation("invalid subscription payload", err)
	}

	change := services.SubscriptionFromCreated(&sub)
	if err := wc.Repo.UpsertSubscription(ctx, &change.Record, change.Columns); err != nil {
		return err
	}
	wc.Logger.Info("Subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("status", change.Record.Status),
	)
	return nil
}

func (wc *WebhookController) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewValidation("invalid subscription payload", err)
	}

	change := services.SubscriptionFromUpdated(&sub)
	if err := wc.Repo.UpsertSubscription(ctx, &change.Record, change.Columns); err != nil {
		return err
	}
	wc.Logger.Info("Subscription updated",
		zap.String("subscription_id", sub.ID),
		zap.String("status", change.Record.Status),
	)
	return nil
}

func (wc *WebhookController) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return apperrors.NewValidation("invalid subscription payload", err)
	}

	change := services.SubscriptionFromDeleted(&sub, time.Now().UTC())
	if err := wc.Repo.UpsertSubscription(ctx, &change.Record, change.Columns); err != nil {
		return err
	}

	_ = wc.Locks.Lock(ctx, change.Record.UserID, services.LockReasonCanceled)

	wc.Logger.Info("Subscription canceled",
		zap.String("subscription_id", sub.ID),
	)
	wc.publishBillingEvent(models.BillingEvent{
		Type:           "subscription_canceled",
		EventID:        event.ID,
		UserID:         change.Record.UserID,
		SubscriptionID: change.Record.SubscriptionID,
		Status:         change.Record.Status,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

func (wc *WebhookController) handlePaymentIntentStatus(ctx context.Context, event stripe.Event, status string) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return apperrors.NewValidation("invalid payment intent payload", err)
	}

	// The checkout-completed path may already have recorded this
	// payment. A lookup failure proceeds to the write: the unique key
	// on payment_id is the final backstop, and a duplicate write is
	// preferred over a lost event.
	exists, err := wc.Repo.TransactionExists(ctx, pi.ID)
	if err != nil {
		wc.Logger.Warn("Transaction lookup failed, proceeding with insert",
			zap.String("payment_id", pi.ID),
			zap.Error(err),
		)
	}
	if exists {
		wc.Logger.Info("Skipping duplicate payment intent",
			zap.String("payment_id", pi.ID),
			zap.String("status", status),
		)
		return nil
	}

	tx := services.TransactionFromPaymentIntent(&pi, status)
	if err := wc.Repo.InsertTransaction(ctx, &tx); err != nil {
		return err
	}
	wc.Logger.Info("Payment intent recorded",
		zap.String("payment_id", tx.PaymentID),
		zap.String("status", status),
	)
	wc.publishBillingEvent(models.BillingEvent{
		Type:      "payment_" + status,
		EventID:   event.ID,
		UserID:    tx.UserID,
		PaymentID: tx.PaymentID,
		Status:    status,
		Amount:    tx.AmountPaid,
		Currency:  string(pi.Currency),
		Timestamp: time.Now().UTC(),
	})
	return nil
}
