package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medreserva/reminder-service/cmd/mainconfig"
	"github.com/medreserva/reminder-service/internal/api/router"
	"github.com/medreserva/reminder-service/internal/appointments"
	appconfig "github.com/medreserva/reminder-service/internal/config"
	"github.com/medreserva/reminder-service/internal/dispatch"
	"github.com/medreserva/reminder-service/internal/gateway"
	"github.com/medreserva/reminder-service/internal/notifications"
	"github.com/medreserva/reminder-service/internal/notify"
	"github.com/medreserva/reminder-service/internal/observability/metrics"
	"github.com/medreserva/reminder-service/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder-service API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	gatewayClient, err := gateway.New(gateway.Config{
		BaseURL:   cfg.GatewayBaseURL,
		APIKey:    cfg.GatewayAPIKey,
		SessionID: cfg.GatewaySessionID,
		Timeout:   cfg.GatewayTimeout,
		Logger:    logger.Logger,
	})
	if err != nil {
		logger.Error("failed to create gateway client", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	reminderMetrics := metrics.NewReminderMetrics(registry)

	notificationStore := notifications.NewStore(pool)
	appointmentStore := appointments.NewStore(pool)

	scheduler := notifications.NewScheduler(notificationStore, appointmentStore, cfg.ReminderOffsetsMinutes, logger).
		WithMetrics(reminderMetrics)

	dispatcher := dispatch.NewDispatcher(notificationStore, appointmentStore, gatewayClient, logger).
		WithPacingInterval(cfg.PacingInterval).
		WithBatchLimit(cfg.DispatchBatchLimit).
		WithMetrics(reminderMetrics)

	reconciler := dispatch.NewReconciler(notificationStore, cfg.OrphanRetentionDays, logger).
		WithMetrics(reminderMetrics)

	if cfg.OperatorEmail != "" && cfg.SESFromEmail != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sesSender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		reconciler = reconciler.WithReporter(notify.NewService(sesSender, cfg.OperatorEmail, logger))
	}

	triggers := dispatch.NewHandler(dispatcher, reconciler, scheduler, notificationStore, cfg.OrphanRetentionDays, logger)
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		triggers = triggers.WithLease(dispatch.NewLease(redis.NewClient(opts), cfg.DispatchLeaseTTL))
		logger.Info("dispatch lease enabled", "addr", cfg.RedisAddr)
	}

	r := router.New(&router.Config{
		Logger:         logger,
		Triggers:       triggers,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
