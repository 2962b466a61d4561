package controllers_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"webhook-service/controllers"
	"webhook-service/models"
	"webhook-service/routes"
	"webhook-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

// mockBillingRepo records every write so tests can assert exactly
// what the pipeline persisted and in what order.
type mockBillingRepo struct {
	insertErr error
	upsertErr error
	lockErr   error
	pingErr   error
	existsRes bool
	existsErr error

	transactions  []models.Transaction
	subscriptions []models.Subscription
	columns       [][]string
	lockedUsers   []string
	lockReasons   []string
	callOrder     []string
}

func (m *mockBillingRepo) InsertTransaction(_ context.Context, tx *models.Transaction) error {
	m.callOrder = append(m.callOrder, "insert_transaction")
	if m.insertErr != nil {
		return m.insertErr
	}
	m.transactions = append(m.transactions, *tx)
	return nil
}

func (m *mockBillingRepo) TransactionExists(_ context.Context, _ string) (bool, error) {
	m.callOrder = append(m.callOrder, "transaction_exists")
	return m.existsRes, m.existsErr
}

func (m *mockBillingRepo) UpsertSubscription(_ context.Context, sub *models.Subscription, columns []string) error {
	m.callOrder = append(m.callOrder, "upsert_subscription")
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.subscriptions = append(m.subscriptions, *sub)
	m.columns = append(m.columns, columns)
	return nil
}

func (m *mockBillingRepo) InsertInsuranceLog(_ context.Context, _ *models.InsuranceLog) error {
	m.callOrder = append(m.callOrder, "insert_insurance_log")
	return nil
}

func (m *mockBillingRepo) LockUser(_ context.Context, userID, reason string, _ time.Time) error {
	m.callOrder = append(m.callOrder, "lock_user")
	if m.lockErr != nil {
		return m.lockErr
	}
	m.lockedUsers = append(m.lockedUsers, userID)
	m.lockReasons = append(m.lockReasons, reason)
	return nil
}

func (m *mockBillingRepo) Ping(_ context.Context) error { return m.pingErr }

type mockPublisher struct {
	events []models.BillingEvent
}

func (m *mockPublisher) SendBillingEvent(event models.BillingEvent) error {
	m.events = append(m.events, event)
	return nil
}

func newTestRouter(repo *mockBillingRepo, pub *mockPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	wc := &controllers.WebhookController{
		Stripe: services.NewStripeService("sk_test_key", testWebhookSecret),
		Repo:   repo,
		Locks:  services.NewAccessLockManager(repo, logger),
		Events: pub,
		Logger: logger,
	}
	hc := controllers.NewHealthController(repo, "test")
	tc := &controllers.TestController{Repo: repo}

	r := gin.New()
	routes.Register(r, wc, hc, tc, false)
	return r
}

func signedRequest(t *testing.T, eventID, eventType string, object map[string]interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          eventID,
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]interface{}{"object": object},
	})
	require.NoError(t, err)

	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestStripeWebhook_RejectsBadSignature(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	body := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, repo.callOrder) // verification failure never reaches dispatch
}

func TestStripeWebhook_AcksUnknownEventType(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_unknown", "customer.created", map[string]interface{}{"id": "cus_1"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, repo.callOrder)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["received"])
	assert.Equal(t, "customer.created", resp["event"])
	assert.Equal(t, "evt_unknown", resp["id"])
}

func TestStripeWebhook_CheckoutSubscriptionMode(t *testing.T) {
	repo := &mockBillingRepo{}
	pub := &mockPublisher{}
	r := newTestRouter(repo, pub)

	req := signedRequest(t, "evt_1", "checkout.session.completed", map[string]interface{}{
		"id":           "cs_1",
		"mode":         "subscription",
		"subscription": "sub_1",
		"customer":     "cus_1",
		"amount_total": 500,
		"currency":     "aud",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.subscriptions, 1)

	sub := repo.subscriptions[0]
	assert.Equal(t, "sub_1", sub.SubscriptionID)
	assert.Equal(t, "cus_1", sub.StripeCustomerID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, 5.00, sub.Amount)
	require.NotNil(t, sub.NextBillingDate)
	wantNext := time.Now().UTC().AddDate(0, 0, 7)
	assert.Equal(t, wantNext.Format("2006-01-02"), sub.NextBillingDate.Format("2006-01-02"))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "subscription_active", pub.events[0].Type)
}

func TestStripeWebhook_PaymentModeRecordsTransaction(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_2", "checkout.session.completed", map[string]interface{}{
		"id":                   "cs_2",
		"mode":                 "payment",
		"payment_intent":       "pi_1",
		"customer":             "cus_1",
		"amount_total":         12550,
		"currency":             "aud",
		"payment_method_types": []string{"klarna"},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.transactions, 1)
	assert.Equal(t, "pi_1", repo.transactions[0].PaymentID)
	assert.Equal(t, "klarna", repo.transactions[0].PaymentMethod)
	assert.Equal(t, 125.50, repo.transactions[0].AmountPaid)
	assert.Empty(t, repo.subscriptions)
}

func TestStripeWebhook_PaymentIntentDuplicateSuppressed(t *testing.T) {
	repo := &mockBillingRepo{existsRes: true}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_3", "payment_intent.succeeded", map[string]interface{}{
		"id":     "pi_1",
		"amount": 2000,
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"transaction_exists"}, repo.callOrder)
	assert.Empty(t, repo.transactions)
}

func TestStripeWebhook_PaymentIntentLookupErrorStillWrites(t *testing.T) {
	repo := &mockBillingRepo{existsErr: errors.New("timeout")}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_4", "payment_intent.payment_failed", map[string]interface{}{
		"id":     "pi_2",
		"amount": 2000,
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Lookup failure is conservative: the write proceeds and the
	// unique key constraint is the backstop.
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.transactions, 1)
	assert.Equal(t, models.TransactionStatusFailed, repo.transactions[0].Status)
}

func TestStripeWebhook_InvoiceFailedLocksUser(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_5", "invoice.payment_failed", map[string]interface{}{
		"id":           "in_1",
		"subscription": "sub_123",
		"customer":     "cus_456",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.subscriptions, 1)
	assert.Equal(t, models.SubscriptionStatusPastDue, repo.subscriptions[0].Status)
	assert.Equal(t, []string{"upsert_subscription", "lock_user"}, repo.callOrder)
	assert.Equal(t, []string{"cus_456"}, repo.lockedUsers)
	assert.Equal(t, []string{"subscription_payment_failed"}, repo.lockReasons)
}

func TestStripeWebhook_LockFailureStillAcks(t *testing.T) {
	repo := &mockBillingRepo{lockErr: errors.New("connection refused")}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_6", "invoice.payment_failed", map[string]interface{}{
		"id":           "in_2",
		"subscription": "sub_123",
		"customer":     "cus_456",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// The lock write is best-effort: its failure must not trigger a
	// provider redelivery of an otherwise processed event.
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.subscriptions, 1)
}

func TestStripeWebhook_SubscriptionDeletedIsTerminal(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_7", "customer.subscription.deleted", map[string]interface{}{
		"id":       "sub_1",
		"customer": "cus_1",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.subscriptions, 1)
	assert.Equal(t, models.SubscriptionStatusCanceled, repo.subscriptions[0].Status)
	assert.Nil(t, repo.subscriptions[0].NextBillingDate)
	require.Len(t, repo.columns, 1)
	assert.Contains(t, repo.columns[0], "next_billing_date")
	assert.Equal(t, []string{"cus_1"}, repo.lockedUsers)
	assert.Equal(t, []string{"subscription_canceled"}, repo.lockReasons)
}

func TestStripeWebhook_RepeatedUpdatesConverge(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	object := map[string]interface{}{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "active",
	}

	for i, evt := range []struct{ id, typ string }{
		{"evt_c1", "customer.subscription.created"},
		{"evt_u1", "customer.subscription.updated"},
		{"evt_u2", "customer.subscription.updated"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedRequest(t, evt.id, evt.typ, object))
		require.Equal(t, http.StatusOK, w.Code, "event %d", i)
	}

	// Redelivered or repeated updates for the same subscription state
	// must persist the same record and touch the same columns.
	require.Len(t, repo.subscriptions, 3)
	assert.Equal(t, repo.subscriptions[1], repo.subscriptions[2])
	assert.Equal(t, repo.columns[1], repo.columns[2])
	assert.Equal(t, models.SubscriptionStatusActive, repo.subscriptions[2].Status)
}

func TestStripeWebhook_StoreFailureReturns500WithEventIdentity(t *testing.T) {
	repo := &mockBillingRepo{upsertErr: errors.New("connection refused")}
	r := newTestRouter(repo, &mockPublisher{})

	req := signedRequest(t, "evt_8", "customer.subscription.updated", map[string]interface{}{
		"id":     "sub_1",
		"status": "past_due",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Webhook processing failed", resp["error"])
	assert.Equal(t, "customer.subscription.updated", resp["event"])
	assert.Equal(t, "evt_8", resp["id"])
}

func TestHealth_ReportsConnected(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database"])
}

func TestHealth_StoreFailureReturns503(t *testing.T) {
	repo := &mockBillingRepo{pingErr: errors.New("connection refused")}
	r := newTestRouter(repo, &mockPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp["status"])
	assert.Equal(t, "disconnected", resp["database"])
}

func TestNoRoute_ListsEndpoints(t *testing.T) {
	repo := &mockBillingRepo{}
	r := newTestRouter(repo, &mockPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "POST /webhook")
}
