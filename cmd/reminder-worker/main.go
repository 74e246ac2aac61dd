package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/medreserva/reminder-service/cmd/mainconfig"
	"github.com/medreserva/reminder-service/internal/appointments"
	"github.com/medreserva/reminder-service/internal/config"
	"github.com/medreserva/reminder-service/internal/dispatch"
	"github.com/medreserva/reminder-service/internal/gateway"
	"github.com/medreserva/reminder-service/internal/notifications"
	"github.com/medreserva/reminder-service/internal/notify"
	"github.com/medreserva/reminder-service/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" || cfg.GatewayAPIKey == "" {
		logger.Error("reminder worker requires DATABASE_URL and GATEWAY_API_KEY")
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

	store := notifications.NewStore(pool)
	appts := appointments.NewStore(pool)

	dispatcher := dispatch.NewDispatcher(store, appts, gatewayClient, logger).
		WithPacingInterval(cfg.PacingInterval).
		WithBatchLimit(cfg.DispatchBatchLimit)

	reconciler := dispatch.NewReconciler(store, cfg.OrphanRetentionDays, logger)
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

	runner := dispatch.NewRunner(dispatcher, reconciler, store, logger).
		WithDispatchInterval(cfg.DispatchInterval).
		WithReconcileInterval(cfg.ReconcileInterval)

	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		runner = runner.WithLease(dispatch.NewLease(redis.NewClient(opts), cfg.DispatchLeaseTTL))
	}

	go runner.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("reminder worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
