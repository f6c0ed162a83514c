package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioxv/booking-platform/internal/pricing"
	"github.com/studioxv/booking-platform/pkg/logging"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	logger := logging.New("error")
	return NewBuilder(pricing.NewCatalog(logger), loc, logger)
}

func TestBuildDepositBooking(t *testing.T) {
	b := testBuilder(t)

	snap, err := b.Build(ProviderSession{
		ID:              "cs_test_deposit",
		PaymentIntentID: "pi_123",
		CustomerName:    "Checkout Name",
		CustomerEmail:   "checkout@example.com",
		Metadata: MetadataFromMap(map[string]string{
			"service":           "Recording",
			"packageId":         "half-day",
			"sessionDate":       "2026-01-12",
			"sessionTime":       "14:00",
			"totalSessionPrice": "160",
			"paymentType":       "deposit",
			"customerName":      "Amy Winch",
			"customerEmail":     "amy@example.com",
		}),
	}, 80, 0)
	require.NoError(t, err)

	// Metadata identity wins over what the checkout form captured.
	assert.Equal(t, "Amy Winch", snap.CustomerName)
	assert.Equal(t, "amy@example.com", snap.CustomerEmail)

	assert.Equal(t, pricing.ModePackage, snap.PricingMode)
	assert.Equal(t, "Half Day Session", snap.PackageName)
	assert.Equal(t, 4, snap.DurationHours)
	assert.Equal(t, "Half Day Session", snap.DurationLabel)

	assert.Equal(t, 160.0, snap.Money.BasePrice)
	assert.Equal(t, 80.0, snap.Money.AmountPaid)
	assert.Equal(t, 80.0, snap.Money.BalanceDue)
	assert.Equal(t, StatusPartiallyPaid, snap.PaymentStatus)
	assert.Equal(t, EmailDepositPaid, snap.EmailType)
	assert.Equal(t, "£80.00", snap.DepositDisplayText)
	assert.Equal(t, "£80.00", snap.AmountPaidDisplay)

	assert.Equal(t, "Monday, 12 January 2026", snap.SessionDateDisplay)
	assert.Equal(t, "14:00", snap.SessionTimeDisplay)
	start, ok := snap.SessionStart(nil)
	require.True(t, ok)
	assert.Equal(t, 14, start.Hour())
}

func TestBuildPromoOnlyBookingIsFullPayment(t *testing.T) {
	b := testBuilder(t)

	snap, err := b.Build(ProviderSession{
		ID: "cs_test_promo",
		Metadata: MetadataFromMap(map[string]string{
			"service":           "Mixing",
			"hours":             "3",
			"sessionDate":       "15/03/2026",
			"sessionTime":       "10:30",
			"totalSessionPrice": "250",
			"paymentType":       "deposit",
			"promoCode":         "FREESESSION",
			"customerEmail":     "promo@example.com",
		}),
	}, 0, 250)
	require.NoError(t, err)

	assert.Equal(t, pricing.ModeHourly, snap.PricingMode)
	assert.Equal(t, "3 hours", snap.DurationLabel)
	assert.Equal(t, StatusPaid, snap.PaymentStatus)
	assert.Equal(t, EmailFullPayment, snap.EmailType)
	assert.Equal(t, "Paid via promo code (£250.00)", snap.DepositDisplayText)
	assert.Equal(t, "FREESESSION", snap.PromoCode)

	// Slash date layout parses too.
	assert.Equal(t, "Sunday, 15 March 2026", snap.SessionDateDisplay)
}

func TestBuildMalformedDateProceedsWithPlaceholder(t *testing.T) {
	b := testBuilder(t)

	snap, err := b.Build(ProviderSession{
		ID: "cs_test_baddate",
		Metadata: MetadataFromMap(map[string]string{
			"service":           "Recording",
			"packageId":         "single",
			"sessionDate":       "13/13/2026",
			"sessionTime":       "14:00",
			"totalSessionPrice": "50",
			"paymentType":       "full",
			"customerEmail":     "bad@example.com",
		}),
	}, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, "—", snap.SessionDateDisplay)
	assert.Equal(t, "—", snap.SessionTimeDisplay)
	assert.Empty(t, snap.SessionStartISO)
	_, ok := snap.SessionStart(nil)
	assert.False(t, ok)

	// Everything else still derived normally.
	assert.Equal(t, StatusPaid, snap.PaymentStatus)
	assert.Equal(t, EmailFullPayment, snap.EmailType)
}

func TestBuildNilLoggerMalformedDate(t *testing.T) {
	b := NewBuilder(pricing.NewCatalog(nil), time.UTC, nil)

	snap, err := b.Build(ProviderSession{
		ID: "cs_test_nillogger",
		Metadata: MetadataFromMap(map[string]string{
			"service":           "Recording",
			"packageId":         "single",
			"sessionDate":       "13/13/2026",
			"sessionTime":       "14:00",
			"totalSessionPrice": "50",
			"paymentType":       "full",
			"customerEmail":     "bad@example.com",
		}),
	}, 50, 0)
	require.NoError(t, err)

	assert.Equal(t, "—", snap.SessionDateDisplay)
	assert.Equal(t, "—", snap.SessionTimeDisplay)
}

func TestBuildDefaults(t *testing.T) {
	b := testBuilder(t)

	snap, err := b.Build(ProviderSession{
		ID:            "cs_test_minimal",
		CustomerEmail: "form@example.com",
		Metadata:      SessionMetadata{},
	}, 100, 0)
	require.NoError(t, err)

	assert.Equal(t, "there", snap.CustomerName)
	assert.Equal(t, "form@example.com", snap.CustomerEmail)
	assert.Equal(t, "Studio Session", snap.Service)
	assert.Equal(t, pricing.ModeHourly, snap.PricingMode)
	assert.Equal(t, 2, snap.DurationHours)
	assert.Equal(t, "2 hours", snap.DurationLabel)

	// No declared total: the amount paid is the price.
	assert.Equal(t, 100.0, snap.Money.BasePrice)
	assert.Equal(t, StatusPaid, snap.PaymentStatus)
	assert.Equal(t, "£0.00 (No deposit required)", func() string {
		m, _ := ReconcileMoney(0, 0, nil)
		return depositDisplayText(m)
	}())
}

func TestBuildUnknownPackageFallsBackToMetadataName(t *testing.T) {
	b := testBuilder(t)

	snap, err := b.Build(ProviderSession{
		ID: "cs_test_unknownpkg",
		Metadata: MetadataFromMap(map[string]string{
			"service":           "Recording",
			"packageId":         "mystery-pkg",
			"packageName":       "Legacy Weekend Block",
			"totalSessionPrice": "300",
			"customerEmail":     "x@example.com",
		}),
	}, 300, 0)
	require.NoError(t, err)

	assert.Equal(t, "Legacy Weekend Block", snap.PackageName)
	assert.Equal(t, "Legacy Weekend Block", snap.DurationLabel)
	assert.Zero(t, snap.DurationHours)
}

func TestBuildRejectsUnparseableDeclaredTotal(t *testing.T) {
	b := testBuilder(t)

	_, err := b.Build(ProviderSession{
		ID: "cs_test_badtotal",
		Metadata: MetadataFromMap(map[string]string{
			"totalSessionPrice": "not-a-number",
			"customerEmail":     "x@example.com",
		}),
	}, 50, 0)
	require.ErrorIs(t, err, ErrInvalidMoney)
}

func TestAddonNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "objects with names", raw: `[{"name":"Mixing","price":40},{"name":"Mastering","price":30}]`, want: "Mixing, Mastering"},
		{name: "label fallback", raw: `[{"label":"Extra Engineer"}]`, want: "Extra Engineer"},
		{name: "plain strings", raw: `["Vocal Booth","Drum Kit"]`, want: "Vocal Booth, Drum Kit"},
		{name: "malformed json", raw: `{"oops`, want: ""},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := SessionMetadata{AddonsJSON: tt.raw}
			assert.Equal(t, tt.want, md.addonNames())
		})
	}
}

func TestMixedPaymentDepositDisplay(t *testing.T) {
	m, err := ReconcileMoney(40, 20, f64(180))
	require.NoError(t, err)
	assert.Equal(t, "£60.00 (£40.00 card + £20.00 promo)", depositDisplayText(m))
}
