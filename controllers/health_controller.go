package controllers

import (
	"net/http"
	"time"

	"webhook-service/repository"

	"github.com/gin-gonic/gin"
)

const serviceVersion = "2.0.0"

type HealthController struct {
	Repo      repository.BillingRepository
	Env       string
	startedAt time.Time
}

func NewHealthController(repo repository.BillingRepository, env string) *HealthController {
	return &HealthController{Repo: repo, Env: env, startedAt: time.Now()}
}

// Health reports service liveness and performs a lightweight read
// against the store to verify connectivity.
func (hc *HealthController) Health(c *gin.Context) {
	status := "healthy"
	dbStatus := "connected"
	code := http.StatusOK
	if err := hc.Repo.Ping(c.Request.Context()); err != nil {
		status = "unhealthy"
		dbStatus = "disconnected"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":      status,
		"service":     "nft-admin-webhook",
		"version":     serviceVersion,
		"environment": hc.Env,
		"database":    dbStatus,
		"stripe":      "connected",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(hc.startedAt).Seconds(),
	})
}
