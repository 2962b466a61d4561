package services

import (
	"webhook-service/models"

	"github.com/stripe/stripe-go/v80"
)

// bnplMethods are the payment method types classified as
// buy-now-pay-later.
var bnplMethods = map[string]bool{
	"afterpay_clearpay": true,
	"klarna":            true,
}

func IsBNPL(paymentMethod string) bool { return bnplMethods[paymentMethod] }

func firstPaymentMethod(types []string) string {
	if len(types) > 0 {
		return types[0]
	}
	return "card"
}

// TransactionFromCheckout builds the one-time payment record for a
// completed checkout session. The session ID doubles as the order ID;
// the payment intent carries the unique payment key.
func TransactionFromCheckout(sess *stripe.CheckoutSession) models.Transaction {
	paymentID := sess.ID
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}

	userID := sess.ClientReferenceID
	if userID == "" {
		userID = customerID(sess.Customer)
	}

	var email string
	if sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}

	return models.Transaction{
		UserID:        userID,
		OrderID:       sess.ID,
		PaymentID:     paymentID,
		PaymentMethod: firstPaymentMethod(sess.PaymentMethodTypes),
		AmountPaid:    float64(sess.AmountTotal) / 100,
		Status:        models.TransactionStatusSuccess,
		UserEmail:     email,
		Metadata: models.JSONText(map[string]interface{}{
			"stripe_session": sess.ID,
			"currency":       string(sess.Currency),
			"customer_email": email,
		}),
	}
}

// TransactionFromPaymentIntent builds a payment record directly from a
// payment intent, for intents observed outside a checkout session.
func TransactionFromPaymentIntent(pi *stripe.PaymentIntent, status string) models.Transaction {
	userID := customerID(pi.Customer)
	if userID == "" {
		userID = pi.Metadata["user_id"]
	}

	orderID := pi.Metadata["order_id"]
	if orderID == "" {
		orderID = pi.ID
	}

	metadata := map[string]interface{}{
		"currency":      string(pi.Currency),
		"receipt_email": pi.ReceiptEmail,
	}
	if status == models.TransactionStatusFailed && pi.LastPaymentError != nil {
		metadata["error_code"] = string(pi.LastPaymentError.Code)
		metadata["error_message"] = pi.LastPaymentError.Msg
		metadata["decline_code"] = string(pi.LastPaymentError.DeclineCode)
	}

	return models.Transaction{
		UserID:        userID,
		OrderID:       orderID,
		PaymentID:     pi.ID,
		PaymentMethod: firstPaymentMethod(pi.PaymentMethodTypes),
		AmountPaid:    float64(pi.Amount) / 100,
		Status:        status,
		Metadata:      models.JSONText(metadata),
	}
}
