package services

import (
	"bytes"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

type StripeService struct {
	SecretKey     string
	WebhookSecret string
}

func NewStripeService(secretKey, webhookSecret string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{SecretKey: secretKey, WebhookSecret: webhookSecret}
}

// ParseWebhook verifies the Stripe-Signature header against the exact
// raw request bytes and returns the typed event. The signature is an
// HMAC over the unmodified body, so it must be checked before any
// JSON parsing; ConstructEvent also rejects signatures older than the
// provider's tolerance window.
func (s *StripeService) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, s.WebhookSecret)
}
