package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/aryaranggads/powerpay/internal/adapter/events"
	"github.com/aryaranggads/powerpay/internal/adapter/gateway"
	"github.com/aryaranggads/powerpay/internal/adapter/handler"
	"github.com/aryaranggads/powerpay/internal/adapter/storage"
	"github.com/aryaranggads/powerpay/internal/core/config"
	"github.com/aryaranggads/powerpay/internal/core/domain"
	"github.com/aryaranggads/powerpay/internal/core/payment"
	"github.com/aryaranggads/powerpay/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if cfg.MidtransServerKey == "" {
		slog.Error("MIDTRANS_SERVER_KEY is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	dbPool, err := storage.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	repo := storage.NewTransactionRepository(dbPool)

	var cache payment.HistoryCache
	var redisCache *storage.HistoryCache
	if cfg.RedisAddr != "" {
		redisCache, err = storage.ConnectCache(ctx, cfg.RedisAddr)
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		cache = redisCache
	}

	var publisher payment.EventPublisher
	var kafkaPub *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err = events.NewPublisher(cfg.KafkaBrokers)
		if err != nil {
			slog.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPub
	}

	gatewayClient := gateway.NewClient(cfg.MidtransServerKey, cfg.MidtransEnv)

	svc := payment.New(repo, gatewayClient, publisher, cache, payment.Config{
		ServerKey: cfg.MidtransServerKey,
		UnitPrice: cfg.UnitPrice,
		TaxRate1:  cfg.TaxPPNRate,
		TaxRate2:  cfg.TaxPJURate,
		AdminFee:  cfg.AdminFee,
		Drift:     domain.DriftPolicy(cfg.DriftPolicy),
	})

	reconciler := worker.New(svc, svc, worker.Options{
		Interval:  cfg.ReconcileInterval,
		BatchSize: cfg.ReconcileBatchSize,
	})
	reconciler.Start(ctx)

	paymentHandler := handler.NewPaymentHandler(svc)
	webhookHandler := handler.NewWebhookHandler(svc)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	app.Use(logger.New())

	app.Get("/healthz", paymentHandler.Healthz)

	api := app.Group("/payment")
	api.Post("/transaction", paymentHandler.CreateTransaction)
	api.Post("/transaction/:order_id/cancel", paymentHandler.CancelTransaction)
	api.Get("/transaction-status/:order_id", paymentHandler.GetTransactionStatus)
	api.Get("/history/:user_id", paymentHandler.GetHistory)
	api.Get("/history/:user_id/pending", paymentHandler.GetPendingHistory)
	api.Post("/webhook", webhookHandler.HandleNotification)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "env", cfg.Env, "port", cfg.Port, "gateway_env", cfg.MidtransEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	<-stop
	slog.Info("shutting down")

	reconciler.Stop()

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			slog.Error("kafka producer close failed", "error", err)
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			slog.Error("redis close failed", "error", err)
		}
	}
	dbPool.Close()

	slog.Info("server exited")
}
