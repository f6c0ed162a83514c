package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/notify"
	"github.com/studioxv/booking-platform/internal/notify/templates"
	"github.com/studioxv/booking-platform/internal/observability/metrics"
	"github.com/studioxv/booking-platform/pkg/logging"
)

// bookingStore is the slice of the bookings store the webhook needs.
type bookingStore interface {
	Create(ctx context.Context, snap *booking.Snapshot) (*bookings.Record, error)
	Get(ctx context.Context, bookingID string) (*bookings.Record, error)
	MarkBalancePaid(ctx context.Context, bookingID, paymentIntentID string) (bool, error)
}

// balanceLinkCreator opens a checkout session for an outstanding balance.
type balanceLinkCreator interface {
	CreateBalanceCheckout(ctx context.Context, bookingID, service, customerEmail string, balanceDue float64) (*CheckoutSession, error)
}

// CalendarWriter pushes a confirmed booking into the studio calendar.
type CalendarWriter interface {
	CreateBookingEvent(ctx context.Context, snap *booking.Snapshot) (string, error)
}

// StripeWebhookHandler consumes checkout.session.completed events and turns
// them into persisted bookings, confirmation emails, calendar events and
// balance settlements. Only the financial record is allowed to fail the
// request; every downstream nicety degrades to a logged warning.
type StripeWebhookHandler struct {
	webhookSecret string
	builder       *booking.Builder
	store         bookingStore
	balanceLinks  balanceLinkCreator
	calendar      CalendarWriter
	sender        notify.EmailSender
	adminEmail    string
	processed     processedTracker
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
}

// NewStripeWebhookHandler creates a new handler for Stripe webhooks.
func NewStripeWebhookHandler(
	webhookSecret string,
	builder *booking.Builder,
	store bookingStore,
	balanceLinks balanceLinkCreator,
	cal CalendarWriter,
	sender notify.EmailSender,
	adminEmail string,
	processed processedTracker,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		builder:       builder,
		store:         store,
		balanceLinks:  balanceLinks,
		calendar:      cal,
		sender:        sender,
		adminEmail:    adminEmail,
		processed:     processed,
		metrics:       m,
		logger:        logger,
	}
}

// stripeWebhookEvent is the Stripe event envelope.
type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object CheckoutSession `json:"object"`
	} `json:"data"`
}

// Handle processes incoming Stripe webhook events.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if !verifyStripeSignature(h.webhookSecret, payload, sigHeader) {
		h.metrics.ObserveWebhook("unknown", "forbidden", time.Since(started).Seconds())
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode stripe event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if evt.Type != "checkout.session.completed" {
		h.metrics.ObserveWebhook(evt.Type, "ignored", time.Since(started).Seconds())
		w.WriteHeader(http.StatusOK)
		return
	}

	if done, err := h.processed.AlreadyProcessed(r.Context(), "stripe", evt.ID); err != nil {
		h.logger.Error("processed lookup failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if done {
		h.metrics.ObserveWebhook(evt.Type, "duplicate", time.Since(started).Seconds())
		w.WriteHeader(http.StatusOK)
		return
	}

	session := evt.Data.Object
	var handleErr error
	switch {
	case session.Metadata["type"] == "balance_payment":
		handleErr = h.handleBalancePayment(r.Context(), &session)
	case session.Metadata["service"] != "":
		handleErr = h.handleBookingCompleted(r.Context(), &session)
	case session.Metadata["items"] != "":
		handleErr = h.handleCartCompleted(r.Context(), &session)
	default:
		h.logger.Warn("stripe session carries no recognised metadata", "event_id", evt.ID, "session_id", session.ID)
	}

	if handleErr != nil {
		h.metrics.ObserveWebhook(evt.Type, "failed", time.Since(started).Seconds())
		h.logger.Error("stripe webhook processing failed", "event_id", evt.ID, "error", handleErr)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.processed.MarkProcessed(r.Context(), "stripe", evt.ID); err != nil {
		h.logger.Error("failed to record processed event", "error", err, "event_id", evt.ID)
	}

	h.metrics.ObserveWebhook(evt.Type, "processed", time.Since(started).Seconds())
	w.WriteHeader(http.StatusOK)
}

// handleBookingCompleted consolidates the paid session into a snapshot,
// persists it, and fans out the confirmation email and calendar event.
func (h *StripeWebhookHandler) handleBookingCompleted(ctx context.Context, session *CheckoutSession) error {
	provider := booking.ProviderSession{
		ID:              session.ID,
		PaymentIntentID: session.PaymentIntent,
		CustomerName:    session.CustomerDetails.Name,
		CustomerEmail:   firstNonEmpty(session.CustomerDetails.Email, session.CustomerEmail),
		Metadata:        booking.MetadataFromMap(session.Metadata),
	}
	stripePaid := float64(session.AmountTotal) / 100
	discountApplied := float64(session.TotalDetails.AmountDiscount) / 100

	snap, err := h.builder.Build(provider, stripePaid, discountApplied)
	if err != nil {
		// A snapshot that cannot be reconciled must not be persisted.
		return fmt.Errorf("build snapshot for %s: %w", session.ID, err)
	}

	if snap.Money.BalanceDue > 0 && h.balanceLinks != nil {
		link, err := h.balanceLinks.CreateBalanceCheckout(ctx, snap.BookingID, snap.Service, snap.CustomerEmail, snap.Money.BalanceDue)
		if err != nil {
			h.logger.Warn("balance payment link creation failed, booking proceeds without one",
				"booking_id", snap.BookingID, "error", err)
		} else {
			snap.PaymentLink = link.URL
		}
	}

	if _, err := h.store.Create(ctx, snap); err != nil {
		if errors.Is(err, bookings.ErrBookingExists) {
			h.logger.Info("booking already persisted, treating as replay", "booking_id", snap.BookingID)
			return nil
		}
		return fmt.Errorf("persist booking %s: %w", snap.BookingID, err)
	}
	h.metrics.BookingCreated()
	h.logger.Info("booking persisted",
		"booking_id", snap.BookingID, "service", snap.Service,
		"payment_status", string(snap.PaymentStatus), "balance_due", snap.Money.BalanceDue)

	if h.calendar != nil {
		if _, err := h.calendar.CreateBookingEvent(ctx, snap); err != nil {
			h.logger.Warn("calendar event creation failed", "booking_id", snap.BookingID, "error", err)
		}
	}

	h.sendBookingConfirmation(ctx, snap)
	h.sendAdminAlert(ctx, snap)
	return nil
}

func (h *StripeWebhookHandler) sendBookingConfirmation(ctx context.Context, snap *booking.Snapshot) {
	data := notify.Adapt(snap)
	if err := data.Validate(); err != nil {
		h.metrics.ObserveEmail("booking_confirmation", "invalid_recipient")
		h.logger.Warn("skipping confirmation email", "booking_id", snap.BookingID, "error", err)
		return
	}
	rendered, err := templates.BookingConfirmation(data)
	if err != nil {
		h.metrics.ObserveEmail("booking_confirmation", "render_failed")
		h.logger.Error("confirmation template failed", "booking_id", snap.BookingID, "error", err)
		return
	}
	msg := notify.EmailMessage{
		To:      data.CustomerEmail,
		ToName:  data.CustomerName,
		Subject: rendered.Subject,
		Body:    rendered.Text,
		HTML:    rendered.HTML,
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.metrics.ObserveEmail("booking_confirmation", "failed")
		h.logger.Error("confirmation email failed", "booking_id", snap.BookingID, "error", err)
		return
	}
	h.metrics.ObserveEmail("booking_confirmation", "sent")
}

func (h *StripeWebhookHandler) sendAdminAlert(ctx context.Context, snap *booking.Snapshot) {
	if h.adminEmail == "" {
		return
	}
	rendered, err := templates.AdminBookingAlert(notify.Adapt(snap))
	if err != nil {
		h.logger.Error("admin alert template failed", "booking_id", snap.BookingID, "error", err)
		return
	}
	msg := notify.EmailMessage{
		To:      h.adminEmail,
		Subject: rendered.Subject,
		Body:    rendered.Text,
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.metrics.ObserveEmail("admin_alert", "failed")
		h.logger.Warn("admin alert email failed", "booking_id", snap.BookingID, "error", err)
		return
	}
	h.metrics.ObserveEmail("admin_alert", "sent")
}

// handleBalancePayment settles the remaining balance on an existing booking.
func (h *StripeWebhookHandler) handleBalancePayment(ctx context.Context, session *CheckoutSession) error {
	bookingID := session.Metadata["bookingId"]
	if bookingID == "" {
		h.logger.Warn("balance payment session missing bookingId", "session_id", session.ID)
		return nil
	}

	won, err := h.store.MarkBalancePaid(ctx, bookingID, session.PaymentIntent)
	if err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			h.logger.Warn("balance payment for unknown booking", "booking_id", bookingID)
			return nil
		}
		return fmt.Errorf("mark balance paid for %s: %w", bookingID, err)
	}
	if !won {
		h.logger.Info("balance already settled, treating as replay", "booking_id", bookingID)
		return nil
	}
	h.logger.Info("balance settled", "booking_id", bookingID, "payment_intent", session.PaymentIntent)

	rec, err := h.store.Get(ctx, bookingID)
	if err != nil {
		h.logger.Warn("settled booking fetch failed, skipping receipt email", "booking_id", bookingID, "error", err)
		return nil
	}

	// Receipt reflects the settled state, not the stored deposit figures.
	snap := rec.Snapshot
	snap.Money.StripePaid += snap.Money.BalanceDue
	snap.Money.AmountPaid += snap.Money.BalanceDue
	snap.Money.BalanceDue = 0
	snap.PaymentStatus = booking.StatusPaid
	snap.EmailType = booking.EmailFullPayment
	snap.PaymentLink = ""
	h.sendBookingConfirmation(ctx, &snap)
	return nil
}

// cartStoredItem mirrors the items JSON attached at checkout creation.
type cartStoredItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// handleCartCompleted emails the order confirmation for digital products.
// There is nothing to persist or schedule for a cart sale.
func (h *StripeWebhookHandler) handleCartCompleted(ctx context.Context, session *CheckoutSession) error {
	var items []cartStoredItem
	if err := json.Unmarshal([]byte(session.Metadata["items"]), &items); err != nil {
		h.logger.Warn("cart session items unparseable", "session_id", session.ID, "error", err)
		return nil
	}

	name := firstNonEmpty(session.Metadata["customerName"], session.CustomerDetails.Name, "there")
	email := firstNonEmpty(session.Metadata["customerEmail"], session.CustomerDetails.Email, session.CustomerEmail)
	if email == "" {
		h.logger.Warn("cart session has no recipient email", "session_id", session.ID)
		return nil
	}

	subtotal := 0.0
	lines := make([]templates.CartItem, 0, len(items))
	for _, item := range items {
		subtotal += item.Price
		lines = append(lines, templates.CartItem{Name: item.Name, Price: formatGBP(item.Price)})
	}
	total := float64(session.AmountTotal) / 100
	// Bundle and membership discounts are baked into the charge before
	// Stripe, so derive the discount from the gap rather than trusting
	// total_details alone.
	discount := subtotal - total
	if discount < 0.01 {
		discount = 0
	}

	rendered, err := templates.CartConfirmation(templates.CartData{
		CustomerName: name,
		Items:        lines,
		Subtotal:     formatGBP(subtotal),
		Discount:     formatGBP(discount),
		HasDiscount:  discount > 0,
		PromoCode:    session.Metadata["promoCode"],
		Total:        formatGBP(total),
	})
	if err != nil {
		h.metrics.ObserveEmail("cart_confirmation", "render_failed")
		return fmt.Errorf("render cart confirmation: %w", err)
	}

	msg := notify.EmailMessage{
		To:      email,
		ToName:  name,
		Subject: rendered.Subject,
		Body:    rendered.Text,
		HTML:    rendered.HTML,
	}
	if err := h.sender.Send(ctx, msg); err != nil {
		h.metrics.ObserveEmail("cart_confirmation", "failed")
		h.logger.Error("cart confirmation email failed", "session_id", session.ID, "error", err)
		return nil
	}
	h.metrics.ObserveEmail("cart_confirmation", "sent")
	h.logger.Info("cart order confirmed", "session_id", session.ID, "items", len(items), "total", total)
	return nil
}

// verifyStripeSignature verifies a Stripe webhook signature. Stripe signs
// with HMAC-SHA256 and sends "t=<timestamp>,v1=<signature>[,v1=...]".
func verifyStripeSignature(secret string, payload []byte, header string) bool {
	if secret == "" {
		return true // bypass for development
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	// Timestamp tolerance of 5 minutes.
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > 300 {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func formatGBP(v float64) string {
	return fmt.Sprintf("£%.2f", v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
