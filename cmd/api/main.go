package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studioxv/booking-platform/cmd/mainconfig"
	"github.com/studioxv/booking-platform/internal/api/router"
	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/calendar"
	appconfig "github.com/studioxv/booking-platform/internal/config"
	"github.com/studioxv/booking-platform/internal/enquiry"
	"github.com/studioxv/booking-platform/internal/notify"
	"github.com/studioxv/booking-platform/internal/observability/metrics"
	"github.com/studioxv/booking-platform/internal/payments"
	"github.com/studioxv/booking-platform/internal/pricing"
	"github.com/studioxv/booking-platform/internal/reminders"
	"github.com/studioxv/booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid studio timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	store := bookings.NewStore(dynamoClient, cfg.BookingsTable, cfg.ReminderPageSize, logger)

	redisClient := mainconfig.NewRedisClient(cfg)
	processed := payments.NewRedisProcessedTracker(redisClient)

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	catalog := pricing.NewCatalog(logger)
	cartPricer := pricing.NewCartPricer()
	builder := booking.NewBuilder(catalog, loc, logger)

	stripe := payments.NewStripeClient(cfg.StripeSecretKey, payments.StripeURLs{
		SuccessURL:     cfg.StripeSuccessURL,
		CancelURL:      cfg.StripeCancelURL,
		CartSuccessURL: cfg.StripeCartSuccessURL,
		CartCancelURL:  cfg.StripeCartCancelURL,
	}, logger)

	tokens := calendar.NewTokenCache(calendar.Credentials{
		TenantID:     cfg.MicrosoftTenantID,
		ClientID:     cfg.MicrosoftClientID,
		ClientSecret: cfg.MicrosoftClientSecret,
	}, logger)

	var sender notify.EmailSender
	switch {
	case cfg.SendGridAPIKey != "":
		sender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case tokens != nil && cfg.MicrosoftUserEmail != "":
		sender = notify.NewGraphSender(tokens, cfg.MicrosoftUserEmail, logger)
	default:
		logger.Warn("no email transport configured, using stub sender")
		sender = notify.NewStubEmailSender(logger)
	}

	var calendarClient *calendar.Client
	if tokens != nil && cfg.MicrosoftUserEmail != "" {
		calendarClient = calendar.NewClient(tokens, cfg.MicrosoftUserEmail, loc, logger)
	} else {
		logger.Warn("Microsoft Graph not configured, calendar integration disabled")
	}

	webhook := newWebhookHandler(cfg, builder, store, stripe, calendarClient, sender, processed, bookingMetrics, logger)

	worker := reminders.NewWorker(store, sender, bookingMetrics, cfg.ReminderPollInterval, logger)

	routerCfg := &router.Config{
		Logger:          logger,
		CheckoutHandler: payments.NewCheckoutHandler(stripe, catalog, cartPricer, logger),
		BookingHandler:  payments.NewBookingHandler(store, stripe, logger),
		StripeWebhook:   webhook,
		EnquiryHandler:  enquiry.NewHandler(sender, cfg.EnquiryEmail, logger),
		ReminderRun:     reminders.NewRunHandler(worker, logger),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if calendarClient != nil {
		routerCfg.Availability = calendar.NewAvailabilityHandler(calendarClient, logger)
	}
	r := router.New(routerCfg)

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newWebhookHandler keeps the nil-safe calendar wiring out of main's flow.
func newWebhookHandler(
	cfg *appconfig.Config,
	builder *booking.Builder,
	store *bookings.Store,
	stripe *payments.StripeClient,
	calendarClient *calendar.Client,
	sender notify.EmailSender,
	processed *payments.RedisProcessedTracker,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *payments.StripeWebhookHandler {
	var cal payments.CalendarWriter
	if calendarClient != nil {
		cal = calendarClient
	}
	return payments.NewStripeWebhookHandler(
		cfg.StripeWebhookSecret,
		builder,
		store,
		stripe,
		cal,
		sender,
		cfg.StudioEmail,
		processed,
		m,
		logger,
	)
}
