package controllers

import (
	"net/http"

	"webhook-service/models"
	"webhook-service/repository"

	"github.com/gin-gonic/gin"
)

// TestController seeds billing records directly, bypassing Stripe.
// Its routes are registered only when test endpoints are enabled.
type TestController struct {
	Repo repository.BillingRepository
}

func (tc *TestController) CreateTransaction(c *gin.Context) {
	var tx models.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := tc.Repo.InsertTransaction(c.Request.Context(), &tx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test BNPL transaction created"})
}

func (tc *TestController) CreateSubscription(c *gin.Context) {
	var sub models.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	columns := []string{
		"user_id", "stripe_customer_id", "status", "start_date",
		"next_billing_date", "amount", "currency", "user_email", "metadata",
	}
	if err := tc.Repo.UpsertSubscription(c.Request.Context(), &sub, columns); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test subscription created"})
}

func (tc *TestController) CreateInsuranceLog(c *gin.Context) {
	var entry models.InsuranceLog
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := tc.Repo.InsertInsuranceLog(c.Request.Context(), &entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test insurance log created"})
}
