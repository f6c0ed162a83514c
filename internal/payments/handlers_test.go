package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/pricing"
)

type fakeCheckoutCreator struct {
	bookingParams *BookingCheckoutParams
	cartParams    *CartCheckoutParams
	session       *CheckoutSession
	err           error
}

func (f *fakeCheckoutCreator) CreateBookingCheckout(_ context.Context, params BookingCheckoutParams) (*CheckoutSession, error) {
	f.bookingParams = &params
	return f.session, f.err
}

func (f *fakeCheckoutCreator) CreateCartCheckout(_ context.Context, params CartCheckoutParams) (*CheckoutSession, error) {
	f.cartParams = &params
	return f.session, f.err
}

func (f *fakeCheckoutCreator) GetCheckoutSession(_ context.Context, sessionID string) (*CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.session
	s.ID = sessionID
	return &s, nil
}

func newCheckoutHandler(stripe *fakeCheckoutCreator) *CheckoutHandler {
	return NewCheckoutHandler(stripe, pricing.NewCatalog(nil), pricing.NewCartPricer(), nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCreateBookingCheckoutUsesCatalogPrice(t *testing.T) {
	stripe := &fakeCheckoutCreator{session: &CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/cs_1"}}
	h := newCheckoutHandler(stripe)

	rr := postJSON(t, h.CreateBookingCheckout, "/api/checkout/booking", `{
		"service": "Recording",
		"packageId": "half-day",
		"sessionDate": "2026-03-15",
		"sessionTime": "14:00",
		"totalSessionPrice": 1,
		"paymentType": "deposit",
		"customerEmail": "maya@example.com"
	}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, stripe.bookingParams)
	// Client-declared prices are overridden by the catalog.
	assert.Equal(t, 160.0, stripe.bookingParams.TotalSessionPrice)
	assert.Equal(t, 80.0, stripe.bookingParams.DepositAmount)
	assert.Equal(t, "Half Day Session", stripe.bookingParams.PackageName)

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "cs_1", resp.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/cs_1", resp.URL)
}

func TestCreateBookingCheckoutValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing service", `{"paymentType":"full","sessionDate":"2026-03-15","sessionTime":"14:00","totalSessionPrice":100}`, "service is required"},
		{"bad payment type", `{"service":"Recording","paymentType":"later","sessionDate":"2026-03-15","sessionTime":"14:00","totalSessionPrice":100}`, "paymentType must be deposit or full"},
		{"missing date", `{"service":"Recording","paymentType":"full","totalSessionPrice":100}`, "sessionDate and sessionTime are required"},
		{"unknown package", `{"service":"Recording","packageId":"weekend","paymentType":"full","sessionDate":"2026-03-15","sessionTime":"14:00"}`, "unknown package id"},
		{"zero price", `{"service":"Recording","paymentType":"full","sessionDate":"2026-03-15","sessionTime":"14:00"}`, "totalSessionPrice must be positive"},
		{"negative addon", `{"service":"Recording","paymentType":"full","sessionDate":"2026-03-15","sessionTime":"14:00","totalSessionPrice":100,"addons":[{"name":"x","price":-5}]}`, "addon prices must not be negative"},
		{"bad json", `{`, "invalid JSON body"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stripe := &fakeCheckoutCreator{session: &CheckoutSession{ID: "cs_1", URL: "u"}}
			rr := postJSON(t, newCheckoutHandler(stripe).CreateBookingCheckout, "/api/checkout/booking", tc.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.want)
			assert.Nil(t, stripe.bookingParams)
		})
	}
}

func TestCreateCartCheckoutRepricesServerSide(t *testing.T) {
	stripe := &fakeCheckoutCreator{session: &CheckoutSession{ID: "cs_cart", URL: "https://checkout.stripe.com/cs_cart"}}
	h := newCheckoutHandler(stripe)

	// Three courses trigger the 20% bundle discount.
	rr := postJSON(t, h.CreateCartCheckout, "/api/checkout/cart", `{
		"items": ["mixing-fundamentals", "mastering-essentials", "vocal-mixing"],
		"customerEmail": "jon@example.com"
	}`)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, stripe.cartParams)
	require.Len(t, stripe.cartParams.Lines, 3)
	assert.InDelta(t, 21.0, stripe.cartParams.DiscountAmount, 0.001) // 20% of 105
}

func TestCreateCartCheckoutRejectsEmptyAndUnknownCarts(t *testing.T) {
	h := newCheckoutHandler(&fakeCheckoutCreator{session: &CheckoutSession{ID: "cs", URL: "u"}})

	rr := postJSON(t, h.CreateCartCheckout, "/api/checkout/cart", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "cart is empty")

	rr = postJSON(t, h.CreateCartCheckout, "/api/checkout/cart", `{"items":["not-a-course"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no recognised items")
}

func TestGetBookingReturnsStoredSnapshot(t *testing.T) {
	store := newFakeBookingStore()
	_, err := store.Create(context.Background(), &booking.Snapshot{
		BookingID:     "cs_abc",
		CustomerName:  "Maya Richards",
		Service:       "Recording",
		PaymentStatus: booking.StatusPartiallyPaid,
	})
	require.NoError(t, err)
	h := NewBookingHandler(store, &fakeCheckoutCreator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings?session_id=cs_abc", nil)
	rr := httptest.NewRecorder()
	h.GetBooking(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var rec bookings.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "Maya Richards", rec.CustomerName)
	assert.Equal(t, booking.StatusPartiallyPaid, rec.PaymentStatus)
}

func TestGetBookingNotFound(t *testing.T) {
	h := NewBookingHandler(newFakeBookingStore(), &fakeCheckoutCreator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings?session_id=cs_missing", nil)
	rr := httptest.NewRecorder()
	h.GetBooking(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	rr = httptest.NewRecorder()
	h.GetBooking(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetSessionProxiesStripe(t *testing.T) {
	stripe := &fakeCheckoutCreator{session: &CheckoutSession{
		PaymentStatus: "paid",
		AmountTotal:   8000,
		Metadata:      map[string]string{"service": "Recording"},
	}}
	h := NewBookingHandler(newFakeBookingStore(), stripe, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/session?session_id=cs_x", nil)
	rr := httptest.NewRecorder()
	h.GetSession(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "cs_x", resp["id"])
	assert.Equal(t, "paid", resp["paymentStatus"])
	assert.Equal(t, 80.0, resp["amountTotal"])
}
