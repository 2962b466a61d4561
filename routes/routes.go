package routes

import (
	"net/http"

	"webhook-service/controllers"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine, wc *controllers.WebhookController, hc *controllers.HealthController, tc *controllers.TestController, enableTestEndpoints bool) {
	r.POST("/webhook", wc.StripeWebhook)
	r.GET("/health", hc.Health)

	available := []string{
		"POST /webhook - Stripe webhook handler",
		"GET /health - Health check",
	}

	if enableTestEndpoints {
		test := r.Group("/test")
		test.POST("/bnpl", tc.CreateTransaction)
		test.POST("/subscription", tc.CreateSubscription)
		test.POST("/insurance", tc.CreateInsuranceLog)
		available = append(available,
			"POST /test/bnpl - Test BNPL transaction",
			"POST /test/subscription - Test subscription",
			"POST /test/insurance - Test insurance log",
		)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":               "Endpoint not found",
			"message":             "The requested endpoint " + c.Request.Method + " " + c.Request.URL.Path + " does not exist",
			"available_endpoints": available,
		})
	})
}
