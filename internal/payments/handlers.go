package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/pricing"
	"github.com/studioxv/booking-platform/pkg/logging"
)

// checkoutCreator is the slice of StripeClient the checkout handler needs.
type checkoutCreator interface {
	CreateBookingCheckout(ctx context.Context, params BookingCheckoutParams) (*CheckoutSession, error)
	CreateCartCheckout(ctx context.Context, params CartCheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

// CheckoutHandler serves the booking-form and cart checkout endpoints.
type CheckoutHandler struct {
	stripe  checkoutCreator
	catalog *pricing.Catalog
	cart    *pricing.CartPricer
	logger  *logging.Logger
}

// NewCheckoutHandler creates the checkout HTTP handler.
func NewCheckoutHandler(stripe checkoutCreator, catalog *pricing.Catalog, cart *pricing.CartPricer, logger *logging.Logger) *CheckoutHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutHandler{stripe: stripe, catalog: catalog, cart: cart, logger: logger}
}

type bookingCheckoutRequest struct {
	Service           string       `json:"service"`
	PackageID         string       `json:"packageId"`
	Hours             int          `json:"hours"`
	SessionDate       string       `json:"sessionDate"`
	SessionTime       string       `json:"sessionTime"`
	Addons            []AddonInput `json:"addons"`
	TotalSessionPrice float64      `json:"totalSessionPrice"`
	PaymentType       string       `json:"paymentType"`
	PromoCode         string       `json:"promoCode"`
	CustomerName      string       `json:"customerName"`
	CustomerEmail     string       `json:"customerEmail"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateBookingCheckout handles POST /api/checkout/booking.
func (h *CheckoutHandler) CreateBookingCheckout(w http.ResponseWriter, r *http.Request) {
	var req bookingCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Service = strings.TrimSpace(req.Service)
	if req.Service == "" {
		writeError(w, http.StatusBadRequest, "service is required")
		return
	}
	if req.PaymentType != "deposit" && req.PaymentType != "full" {
		writeError(w, http.StatusBadRequest, "paymentType must be deposit or full")
		return
	}
	if req.SessionDate == "" || req.SessionTime == "" {
		writeError(w, http.StatusBadRequest, "sessionDate and sessionTime are required")
		return
	}

	total := req.TotalSessionPrice
	packageName := ""
	if req.PackageID != "" {
		pkg, ok := h.catalog.Lookup(req.PackageID)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown package id")
			return
		}
		packageName = pkg.Name
		// The catalog price is authoritative for package bookings.
		total = pkg.Price
	}
	if total <= 0 {
		writeError(w, http.StatusBadRequest, "totalSessionPrice must be positive")
		return
	}
	for _, addon := range req.Addons {
		if addon.Price < 0 {
			writeError(w, http.StatusBadRequest, "addon prices must not be negative")
			return
		}
	}

	session, err := h.stripe.CreateBookingCheckout(r.Context(), BookingCheckoutParams{
		Service:           req.Service,
		PackageID:         req.PackageID,
		PackageName:       packageName,
		Hours:             req.Hours,
		SessionDate:       req.SessionDate,
		SessionTime:       req.SessionTime,
		Addons:            req.Addons,
		TotalSessionPrice: total,
		DepositAmount:     total / 2,
		PaymentType:       req.PaymentType,
		PromoCode:         req.PromoCode,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
	})
	if err != nil {
		h.logger.Error("booking checkout creation failed", "service", req.Service, "error", err)
		writeError(w, http.StatusBadGateway, "could not create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: session.ID, URL: session.URL})
}

type cartCheckoutRequest struct {
	Items          []string `json:"items"`
	PromoCode      string   `json:"promoCode"`
	MembershipTier string   `json:"membershipTier"`
	CustomerName   string   `json:"customerName"`
	CustomerEmail  string   `json:"customerEmail"`
}

// CreateCartCheckout handles POST /api/checkout/cart. The server re-prices
// the cart; client-supplied prices are never trusted.
func (h *CheckoutHandler) CreateCartCheckout(w http.ResponseWriter, r *http.Request) {
	var req cartCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	quote := h.cart.CalculatePrice(pricing.Cart{
		Items:          req.Items,
		PromoCode:      req.PromoCode,
		MembershipTier: req.MembershipTier,
	})
	if len(quote.Items) == 0 {
		writeError(w, http.StatusBadRequest, "no recognised items in cart")
		return
	}

	lines := make([]CartLine, 0, len(quote.Items))
	for _, item := range quote.Items {
		lines = append(lines, CartLine{ID: item.ID, Name: item.Name, Price: item.Price})
	}

	session, err := h.stripe.CreateCartCheckout(r.Context(), CartCheckoutParams{
		Lines:          lines,
		DiscountAmount: quote.Subtotal - quote.Total,
		PromoCode:      req.PromoCode,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
	})
	if err != nil {
		h.logger.Error("cart checkout creation failed", "items", len(req.Items), "error", err)
		writeError(w, http.StatusBadGateway, "could not create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: session.ID, URL: session.URL})
}

// bookingReader is the read-side slice of the bookings store.
type bookingReader interface {
	Get(ctx context.Context, bookingID string) (*bookings.Record, error)
}

// BookingHandler serves the post-checkout booking and session lookups.
type BookingHandler struct {
	store  bookingReader
	stripe checkoutCreator
	logger *logging.Logger
}

// NewBookingHandler creates the booking lookup handler.
func NewBookingHandler(store bookingReader, stripe checkoutCreator, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{store: store, stripe: stripe, logger: logger}
}

// GetBooking handles GET /api/bookings?session_id= and returns the persisted
// snapshot for the success page.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	rec, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, bookings.ErrBookingNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		h.logger.Error("booking lookup failed", "booking_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetSession handles GET /api/session?session_id= and proxies the raw Stripe
// session, for clients that land before the webhook has run.
func (h *BookingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	session, err := h.stripe.GetCheckoutSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("session lookup failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadGateway, "session lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            session.ID,
		"paymentStatus": session.PaymentStatus,
		"amountTotal":   float64(session.AmountTotal) / 100,
		"customerEmail": firstNonEmpty(session.CustomerDetails.Email, session.CustomerEmail),
		"metadata":      session.Metadata,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
