package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studioxv/booking-platform/cmd/mainconfig"
	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/calendar"
	appconfig "github.com/studioxv/booking-platform/internal/config"
	"github.com/studioxv/booking-platform/internal/notify"
	"github.com/studioxv/booking-platform/internal/observability/metrics"
	"github.com/studioxv/booking-platform/internal/reminders"
	"github.com/studioxv/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker",
		"env", cfg.Env,
		"poll_interval", cfg.ReminderPollInterval.String(),
	)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	store := bookings.NewStore(dynamoClient, cfg.BookingsTable, cfg.ReminderPageSize, logger)

	var sender notify.EmailSender
	switch {
	case cfg.SendGridAPIKey != "":
		sender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	default:
		tokens := calendar.NewTokenCache(calendar.Credentials{
			TenantID:     cfg.MicrosoftTenantID,
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
		}, logger)
		if tokens != nil && cfg.MicrosoftUserEmail != "" {
			sender = notify.NewGraphSender(tokens, cfg.MicrosoftUserEmail, logger)
		} else {
			logger.Warn("no email transport configured, using stub sender")
			sender = notify.NewStubEmailSender(logger)
		}
	}

	bookingMetrics := metrics.NewBookingMetrics(prometheus.NewRegistry())
	worker := reminders.NewWorker(store, sender, bookingMetrics, cfg.ReminderPollInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Run(ctx)
}
