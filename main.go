package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"webhook-service/config"
	"webhook-service/controllers"
	"webhook-service/database"
	"webhook-service/kafka"
	"webhook-service/logger"
	"webhook-service/middleware"
	"webhook-service/models"
	"webhook-service/repository"
	"webhook-service/retry"
	"webhook-service/routes"
	"webhook-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[WebhookService] ❌ Failed to load config:", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("[WebhookService] ❌ Failed to initialize logger:", err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg,
		&models.Transaction{},
		&models.Subscription{},
		&models.InsuranceLog{},
		&models.User{},
	)
	if err != nil {
		log.Fatal("[WebhookService] ❌ Failed to connect to DB:", err)
	}
	defer database.Close(db)

	// Every persistence write goes through the retrying decorator.
	retrier := retry.New(3, time.Second, zlog)
	repo := repository.NewRetrying(repository.NewGormBillingRepo(db), retrier)

	stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	locks := services.NewAccessLockManager(repo, zlog)

	var publisher kafka.Publisher
	if cfg.KafkaBrokers != "" {
		producer := kafka.NewBillingEventProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.WebhookRateLimit())

	wc := &controllers.WebhookController{
		Stripe: stripeSvc,
		Repo:   repo,
		Locks:  locks,
		Events: publisher,
		Logger: zlog,
	}
	hc := controllers.NewHealthController(repo, cfg.Env)
	tc := &controllers.TestController{Repo: repo}
	routes.Register(r, wc, hc, tc, cfg.EnableTestEndpoints)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zlog.Info("Webhook server started",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown: let in-flight deliveries (and their retries)
	// finish, force-close after 10 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zlog.Warn("Shutdown signal received, closing HTTP server", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Forced shutdown", zap.Error(err))
	}
	zlog.Info("HTTP server closed")
}
