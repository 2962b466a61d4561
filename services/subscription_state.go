package services

import (
	"time"

	"webhook-service/models"

	"github.com/stripe/stripe-go/v80"
)

const (
	// Weekly plan defaults used when a checkout session does not carry
	// line-item pricing.
	defaultWeeklyAmount   = 5.00
	defaultCurrency       = "aud"
	billingPeriod         = 7 * 24 * time.Hour
	LockReasonPaymentFail = "subscription_payment_failed"
	LockReasonCanceled    = "subscription_canceled"
)

// SubscriptionChange is the outcome of applying one webhook event to
// the subscription state machine: the row to upsert plus the exact
// set of columns the event supplies. Columns an event does not name
// are left untouched on conflict.
type SubscriptionChange struct {
	Record  models.Subscription
	Columns []string
}

// providerStatusMap normalizes Stripe subscription statuses to the
// recorded set. Unrecognized statuses pass through verbatim so new
// provider states are stored rather than dropped.
var providerStatusMap = map[stripe.SubscriptionStatus]string{
	stripe.SubscriptionStatusActive:   models.SubscriptionStatusActive,
	stripe.SubscriptionStatusPastDue:  models.SubscriptionStatusPastDue,
	stripe.SubscriptionStatusCanceled: models.SubscriptionStatusCanceled,
	stripe.SubscriptionStatusUnpaid:   models.SubscriptionStatusCanceled,
	stripe.SubscriptionStatusPaused:   models.SubscriptionStatusPaused,
}

func MapProviderStatus(s stripe.SubscriptionStatus) string {
	if mapped, ok := providerStatusMap[s]; ok {
		return mapped
	}
	return string(s)
}

// NextBillingDate returns the date of the next weekly charge,
// truncated to a calendar day.
func NextBillingDate(now time.Time) time.Time {
	return dateOnly(now.Add(billingPeriod))
}

// SubscriptionFromCheckout derives the initial active subscription
// from a subscription-mode checkout session.
func SubscriptionFromCheckout(sess *stripe.CheckoutSession, now time.Time) SubscriptionChange {
	start := dateOnly(now)
	next := NextBillingDate(now)

	currency := string(sess.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	var email string
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}

	userID := sess.ClientReferenceID
	if userID == "" {
		userID = customerID(sess.Customer)
	}

	return SubscriptionChange{
		Record: models.Subscription{
			SubscriptionID:   subscriptionID(sess.Subscription),
			UserID:           userID,
			StripeCustomerID: customerID(sess.Customer),
			Status:           models.SubscriptionStatusActive,
			StartDate:        &start,
			NextBillingDate:  &next,
			Amount:           defaultWeeklyAmount,
			Currency:         currency,
			UserEmail:        email,
			Metadata: models.JSONText(map[string]interface{}{
				"stripe_session": sess.ID,
				"customer_email": email,
			}),
		},
		Columns: []string{
			"user_id", "stripe_customer_id", "status", "start_date",
			"next_billing_date", "amount", "currency", "user_email", "metadata",
		},
	}
}

// SubscriptionFromInvoicePaid refreshes a subscription after a
// successful recurring charge.
func SubscriptionFromInvoicePaid(inv *stripe.Invoice, now time.Time) SubscriptionChange {
	start := dateOnly(time.Unix(inv.Created, 0).UTC())
	next := NextBillingDate(now)

	currency := string(inv.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	return SubscriptionChange{
		Record: models.Subscription{
			SubscriptionID:   subscriptionID(inv.Subscription),
			UserID:           customerID(inv.Customer),
			StripeCustomerID: customerID(inv.Customer),
			Status:           models.SubscriptionStatusActive,
			StartDate:        &start,
			NextBillingDate:  &next,
			Amount:           float64(inv.Total) / 100,
			Currency:         currency,
			Metadata: models.JSONText(map[string]interface{}{
				"last_invoice":      inv.ID,
				"last_payment_date": now.Format(time.RFC3339),
			}),
		},
		Columns: []string{
			"user_id", "stripe_customer_id", "status", "start_date",
			"next_billing_date", "amount", "currency", "metadata",
		},
	}
}

// SubscriptionFromInvoiceFailed marks a subscription past_due after a
// failed recurring charge. Billing dates and amount are untouched.
func SubscriptionFromInvoiceFailed(inv *stripe.Invoice, now time.Time) SubscriptionChange {
	reason := "Payment failed"
	if inv.LastFinalizationError != nil && inv.LastFinalizationError.Msg != "" {
		reason = inv.LastFinalizationError.Msg
	}

	return SubscriptionChange{
		Record: models.Subscription{
			SubscriptionID:   subscriptionID(inv.Subscription),
			UserID:           customerID(inv.Customer),
			StripeCustomerID: customerID(inv.Customer),
			Status:           models.SubscriptionStatusPastDue,
			Metadata: models.JSONText(map[string]interface{}{
				"last_failed_invoice": inv.ID,
				"failure_reason":      reason,
				"failed_at":           now.Format(time.RFC3339),
			}),
		},
		Columns: []string{"user_id", "stripe_customer_id", "status", "metadata"},
	}
}

// SubscriptionFromCreated records a new subscription with the
// provider's own status and billing period.
func SubscriptionFromCreated(sub *stripe.Subscription) SubscriptionChange {
	start := dateOnly(time.Unix(sub.Created, 0).UTC())

	amount := defaultWeeklyAmount
	var planID string
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		planID = sub.Items.Data[0].Price.ID
		if sub.Items.Data[0].Price.UnitAmount > 0 {
			amount = float64(sub.Items.Data[0].Price.UnitAmount) / 100
		}
	}

	currency := string(sub.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	var trialEnd string
	if sub.TrialEnd > 0 {
		trialEnd = time.Unix(sub.TrialEnd, 0).UTC().Format(time.RFC3339)
	}

	change := SubscriptionChange{
		Record: models.Subscription{
			SubscriptionID:   sub.ID,
			UserID:           customerID(sub.Customer),
			StripeCustomerID: customerID(sub.Customer),
			Status:           MapProviderStatus(sub.Status),
			StartDate:        &start,
			Amount:           amount,
			Currency:         currency,
			Metadata: models.JSONText(map[string]interface{}{
				"plan_id":   planID,
				"trial_end": trialEnd,
			}),
		},
		Columns: []string{
			"user_id", "stripe_customer_id", "status", "start_date",
			"next_billing_date", "amount", "currency", "metadata",
		},
	}
	if sub.CurrentPeriodEnd > 0 {
		next := dateOnly(time.Unix(sub.CurrentPeriodEnd, 0).UTC())
		change.Record.NextBillingDate = &next
	}
	return change
}

// SubscriptionFromUpdated applies a provider-side status change.
func SubscriptionFromUpdated(sub *stripe.Subscription) SubscriptionChange {
	var canceledAt string
	if sub.CanceledAt > 0 {
		canceledAt = time.Unix(sub.CanceledAt, 0).UTC().Format(time.RFC3339)
	}

	change := SubscriptionChange{
		Record: models.Subscription{
			SubscriptionID:   sub.ID,
			StripeCustomerID: customerID(sub.Customer),
			Status:           MapProviderStatus(sub.Status),
			Metadata: models.JSONText(map[string]interface{}{
				"cancel_at_period_end": sub.CancelAtPeriodEnd,
				"canceled_at":          canceledAt,
			}),
		},
		Columns: []string{"stripe_customer_id", "status", "next_billing_date", "metadata"},
	}
	if sub.CurrentPeriodEnd > 0 {
		next := dateOnly(time.Unix(sub.CurrentPeriodEnd, 0).UTC())
		change.Record.NextBillingDate = &next
	}
	return change
}

// SubscriptionFromDeleted records the terminal canceled state and
// clears the next billing date.
func SubscriptionFromDeleted(sub *stripe.Subscription, now time.Time) SubscriptionChange {
	reason := "user_canceled"
	if sub.CancellationDetails != nil && sub.CancellationDetails.Reason != "" {
		reason = string(sub.CancellationDetails.Reason)
	}

	return SubscriptionChange{
		Record: models.Subscription{
			SubscriptionID:   sub.ID,
			UserID:           customerID(sub.Customer),
			StripeCustomerID: customerID(sub.Customer),
			Status:           models.SubscriptionStatusCanceled,
			NextBillingDate:  nil,
			Metadata: models.JSONText(map[string]interface{}{
				"canceled_at":         now.Format(time.RFC3339),
				"cancellation_reason": reason,
			}),
		},
		Columns: []string{
			"user_id", "stripe_customer_id", "status", "next_billing_date", "metadata",
		},
	}
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
