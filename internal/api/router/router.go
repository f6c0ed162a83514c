// Package router wires the HTTP surface: checkout, webhook, booking lookup,
// availability, enquiries and the internal reminder trigger.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/studioxv/booking-platform/internal/calendar"
	"github.com/studioxv/booking-platform/internal/enquiry"
	httpmiddleware "github.com/studioxv/booking-platform/internal/http/middleware"
	"github.com/studioxv/booking-platform/internal/payments"
	"github.com/studioxv/booking-platform/internal/reminders"
	"github.com/studioxv/booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	CheckoutHandler    *payments.CheckoutHandler
	BookingHandler     *payments.BookingHandler
	StripeWebhook      *payments.StripeWebhookHandler
	Availability       *calendar.AvailabilityHandler
	EnquiryHandler     *enquiry.Handler
	ReminderRun        *reminders.RunHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.StripeWebhook != nil {
		r.Post("/webhooks/stripe", cfg.StripeWebhook.Handle)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.CheckoutHandler != nil {
			api.Group(func(checkout chi.Router) {
				checkout.Use(httpmiddleware.RateLimit(2, 10))
				checkout.Post("/checkout/booking", cfg.CheckoutHandler.CreateBookingCheckout)
				checkout.Post("/checkout/cart", cfg.CheckoutHandler.CreateCartCheckout)
			})
		}
		if cfg.BookingHandler != nil {
			api.Get("/bookings", cfg.BookingHandler.GetBooking)
			api.Get("/session", cfg.BookingHandler.GetSession)
		}
		if cfg.Availability != nil {
			api.Get("/availability", cfg.Availability.Get)
		}
		if cfg.EnquiryHandler != nil {
			api.With(httpmiddleware.RateLimit(1, 5)).Post("/enquiries", cfg.EnquiryHandler.Submit)
		}
	})

	if cfg.ReminderRun != nil {
		r.Post("/internal/reminders/run", cfg.ReminderRun.Run)
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
