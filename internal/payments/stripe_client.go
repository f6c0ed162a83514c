package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/studioxv/booking-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("studioxv.internal.payments.stripe")

// StripeClient creates Checkout Sessions and fetches them back, speaking to
// the Stripe REST API directly.
type StripeClient struct {
	secretKey      string
	successURL     string
	cancelURL      string
	cartSuccessURL string
	cartCancelURL  string
	baseURL        string
	apiVersion     string
	httpClient     *http.Client
	logger         *logging.Logger
	dryRun         bool
}

// StripeURLs holds the redirect targets for the two checkout flows.
type StripeURLs struct {
	SuccessURL     string
	CancelURL      string
	CartSuccessURL string
	CartCancelURL  string
}

// NewStripeClient creates a Stripe API client.
func NewStripeClient(secretKey string, urls StripeURLs, logger *logging.Logger) *StripeClient {
	if logger == nil {
		logger = logging.Default()
	}
	dryRun := strings.EqualFold(os.Getenv("STRIPE_DRY_RUN"), "true") || os.Getenv("STRIPE_DRY_RUN") == "1"
	return &StripeClient{
		secretKey:      secretKey,
		successURL:     urls.SuccessURL,
		cancelURL:      urls.CancelURL,
		cartSuccessURL: urls.CartSuccessURL,
		cartCancelURL:  urls.CartCancelURL,
		baseURL:        "https://api.stripe.com",
		apiVersion:     "2024-12-18.acacia",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
		dryRun:         dryRun,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun enables dry-run mode (returns fake URLs without calling Stripe).
func (s *StripeClient) WithDryRun(enabled bool) *StripeClient {
	s.dryRun = enabled
	return s
}

// AddonInput is one optional extra attached to a booking checkout.
type AddonInput struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// BookingCheckoutParams describes a session booking checkout. The charge is
// the deposit for deposit bookings and the full total otherwise; the rest of
// the fields ride along as metadata for the webhook to consolidate later.
type BookingCheckoutParams struct {
	Service           string
	PackageID         string
	PackageName       string
	Hours             int
	SessionDate       string
	SessionTime       string
	Addons            []AddonInput
	TotalSessionPrice float64
	DepositAmount     float64
	PaymentType       string // "deposit" or "full"
	PromoCode         string
	CustomerName      string
	CustomerEmail     string
}

// CheckoutSession is the subset of Stripe's Checkout Session we use.
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email"`
	TotalDetails  struct {
		AmountDiscount int64 `json:"amount_discount"`
	} `json:"total_details"`
	CustomerDetails struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// CreateBookingCheckout opens a checkout session for a studio booking.
func (s *StripeClient) CreateBookingCheckout(ctx context.Context, params BookingCheckoutParams) (*CheckoutSession, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_booking_checkout")
	defer span.End()
	span.SetAttributes(
		attribute.String("studioxv.service", params.Service),
		attribute.String("studioxv.payment_type", params.PaymentType),
		attribute.Float64("studioxv.total", params.TotalSessionPrice),
	)

	if s.dryRun {
		return s.dryRunSession("booking"), nil
	}

	charge := params.TotalSessionPrice
	lineName := fmt.Sprintf("%s Session", params.Service)
	description := "Full payment for Studio XV session"
	if params.PaymentType == "deposit" {
		charge = params.DepositAmount
		description = "50% deposit for Studio XV session"
	}
	if params.PackageName != "" {
		lineName = params.PackageName
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("allow_promotion_codes", "true")
	form.Set("line_items[0][price_data][currency]", "gbp")
	form.Set("line_items[0][price_data][unit_amount]", pence(charge))
	form.Set("line_items[0][price_data][product_data][name]", lineName)
	form.Set("line_items[0][price_data][product_data][description]", description)
	form.Set("line_items[0][quantity]", "1")

	// Add-ons are always charged in full up front.
	for i, addon := range params.Addons {
		prefix := fmt.Sprintf("line_items[%d]", i+1)
		form.Set(prefix+"[price_data][currency]", "gbp")
		form.Set(prefix+"[price_data][unit_amount]", pence(addon.Price))
		form.Set(prefix+"[price_data][product_data][name]", addon.Name)
		form.Set(prefix+"[quantity]", "1")
	}

	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	addonsJSON, err := json.Marshal(params.Addons)
	if err != nil {
		return nil, fmt.Errorf("payments: marshal addons: %w", err)
	}
	form.Set("metadata[service]", params.Service)
	if params.PackageID != "" {
		form.Set("metadata[packageId]", params.PackageID)
	}
	if params.PackageName != "" {
		form.Set("metadata[packageName]", params.PackageName)
	}
	if params.Hours > 0 {
		form.Set("metadata[hours]", fmt.Sprintf("%d", params.Hours))
	}
	form.Set("metadata[sessionDate]", params.SessionDate)
	form.Set("metadata[sessionTime]", params.SessionTime)
	form.Set("metadata[totalSessionPrice]", fmt.Sprintf("%.2f", params.TotalSessionPrice))
	form.Set("metadata[paymentType]", params.PaymentType)
	if len(params.Addons) > 0 {
		form.Set("metadata[addons]", string(addonsJSON))
	}
	if params.PromoCode != "" {
		form.Set("metadata[promoCode]", params.PromoCode)
	}
	if params.CustomerName != "" {
		form.Set("metadata[customerName]", params.CustomerName)
	}
	if params.CustomerEmail != "" {
		form.Set("metadata[customerEmail]", params.CustomerEmail)
	}

	return s.postSession(ctx, form)
}

// CartLine is one priced item in a cart checkout.
type CartLine struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CartCheckoutParams describes a course/ebook cart checkout. Bundle and
// membership discounts are applied before Stripe, so a discounted cart is
// charged as one aggregated line while the metadata keeps the real items.
type CartCheckoutParams struct {
	Lines          []CartLine
	DiscountAmount float64
	PromoCode      string
	CustomerName   string
	CustomerEmail  string
}

// CreateCartCheckout opens a checkout session for digital products.
func (s *StripeClient) CreateCartCheckout(ctx context.Context, params CartCheckoutParams) (*CheckoutSession, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_cart_checkout")
	defer span.End()
	span.SetAttributes(attribute.Int("studioxv.cart_items", len(params.Lines)))

	if len(params.Lines) == 0 {
		return nil, fmt.Errorf("payments: cart checkout requires at least one item")
	}
	if s.dryRun {
		return s.dryRunSession("cart"), nil
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("allow_promotion_codes", "true")
	if params.DiscountAmount > 0 {
		var subtotal float64
		for _, line := range params.Lines {
			subtotal += line.Price
		}
		form.Set("line_items[0][price_data][currency]", "gbp")
		form.Set("line_items[0][price_data][unit_amount]", pence(subtotal-params.DiscountAmount))
		form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Studio XV order (%d items, discount applied)", len(params.Lines)))
		form.Set("line_items[0][quantity]", "1")
	} else {
		for i, line := range params.Lines {
			prefix := fmt.Sprintf("line_items[%d]", i)
			form.Set(prefix+"[price_data][currency]", "gbp")
			form.Set(prefix+"[price_data][unit_amount]", pence(line.Price))
			form.Set(prefix+"[price_data][product_data][name]", line.Name)
			form.Set(prefix+"[quantity]", "1")
		}
	}
	form.Set("success_url", s.cartSuccessURL)
	form.Set("cancel_url", s.cartCancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	items, err := json.Marshal(params.Lines)
	if err != nil {
		return nil, fmt.Errorf("payments: marshal cart items: %w", err)
	}
	form.Set("metadata[items]", string(items))
	if params.PromoCode != "" {
		form.Set("metadata[promoCode]", params.PromoCode)
	}
	if params.CustomerName != "" {
		form.Set("metadata[customerName]", params.CustomerName)
	}
	if params.CustomerEmail != "" {
		form.Set("metadata[customerEmail]", params.CustomerEmail)
	}

	return s.postSession(ctx, form)
}

// CreateBalanceCheckout opens a checkout session for the remaining balance
// of an existing booking. The webhook recognises it by the balance metadata.
func (s *StripeClient) CreateBalanceCheckout(ctx context.Context, bookingID, service, customerEmail string, balanceDue float64) (*CheckoutSession, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_balance_checkout")
	defer span.End()
	span.SetAttributes(
		attribute.String("studioxv.booking_id", bookingID),
		attribute.Float64("studioxv.balance_due", balanceDue),
	)

	if balanceDue <= 0 {
		return nil, fmt.Errorf("payments: no balance due for booking %s", bookingID)
	}
	if s.dryRun {
		return s.dryRunSession("balance"), nil
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", "gbp")
	form.Set("line_items[0][price_data][unit_amount]", pence(balanceDue))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Remaining balance: %s Session", service))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	if customerEmail != "" {
		form.Set("customer_email", customerEmail)
	}
	form.Set("metadata[type]", "balance_payment")
	form.Set("metadata[bookingId]", bookingID)

	return s.postSession(ctx, form)
}

// GetCheckoutSession fetches a session by id, for the post-checkout success
// page and manual reconciliation.
func (s *StripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.get_checkout_session")
	defer span.End()
	span.SetAttributes(attribute.String("studioxv.session_id", sessionID))

	if sessionID == "" {
		return nil, fmt.Errorf("payments: session id required")
	}

	apiURL := fmt.Sprintf("%s/v1/checkout/sessions/%s", s.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: stripe decode: %w", err)
	}
	return &parsed, nil
}

func (s *StripeClient) postSession(ctx context.Context, form url.Values) (*CheckoutSession, error) {
	apiURL := s.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: stripe decode: %w", err)
	}
	if parsed.URL == "" {
		return nil, fmt.Errorf("payments: stripe response missing checkout url")
	}
	return &parsed, nil
}

func (s *StripeClient) dryRunSession(flow string) *CheckoutSession {
	fakeID := "cs_dryrun_" + uuid.New().String()[:8]
	s.logger.Info("stripe dry run: skipping checkout session creation", "flow", flow, "session_id", fakeID)
	return &CheckoutSession{
		ID:  fakeID,
		URL: fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
	}
}

// pence converts a major-unit amount to Stripe's integer minor units.
func pence(v float64) string {
	return fmt.Sprintf("%d", int64(v*100+0.5))
}
