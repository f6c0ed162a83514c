package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/studioxv/booking-platform/internal/pricing"
	"github.com/studioxv/booking-platform/pkg/logging"
)

// EmailType selects the confirmation template for a booking.
type EmailType string

const (
	EmailFullPayment EmailType = "full_payment"
	EmailDepositPaid EmailType = "deposit_paid"
)

// datePlaceholder renders wherever a session date could not be parsed. A
// booking with a bad date still gets confirmed; the date is fixed by hand.
const datePlaceholder = "—"

var sessionDateLayouts = []string{"2006-01-02", "02/01/2006"}

// Snapshot is the single consolidated view of a paid booking. It is built
// once per checkout completion and is the only shape persisted, emailed and
// pushed to the calendar.
type Snapshot struct {
	BookingID     string `json:"bookingId" dynamodbav:"bookingId"`
	CustomerName  string `json:"customerName" dynamodbav:"customerName"`
	CustomerEmail string `json:"customerEmail" dynamodbav:"customerEmail"`

	Service       string       `json:"service" dynamodbav:"service"`
	PricingMode   pricing.Mode `json:"pricingMode" dynamodbav:"pricingMode"`
	PackageID     string       `json:"packageId,omitempty" dynamodbav:"packageId,omitempty"`
	PackageName   string       `json:"packageName,omitempty" dynamodbav:"packageName,omitempty"`
	DurationHours int          `json:"durationHours" dynamodbav:"durationHours"`
	DurationLabel string       `json:"durationLabel" dynamodbav:"durationLabel"`
	Addons        string       `json:"addons,omitempty" dynamodbav:"addons,omitempty"`

	// SessionDate and SessionTime are the raw metadata values. The display
	// fields are what emails render; ISO is empty when parsing failed.
	SessionDate        string `json:"sessionDate" dynamodbav:"sessionDate"`
	SessionTime        string `json:"sessionTime" dynamodbav:"sessionTime"`
	SessionDateDisplay string `json:"sessionDateDisplay" dynamodbav:"sessionDateDisplay"`
	SessionTimeDisplay string `json:"sessionTimeDisplay" dynamodbav:"sessionTimeDisplay"`
	SessionStartISO    string `json:"sessionStartISO,omitempty" dynamodbav:"sessionStartISO,omitempty"`

	Money Money `json:"money" dynamodbav:"money"`

	PaymentType           string        `json:"paymentType" dynamodbav:"paymentType"`
	PaymentStatus         PaymentStatus `json:"paymentStatus" dynamodbav:"paymentStatus"`
	EmailType             EmailType     `json:"emailType" dynamodbav:"emailType"`
	DepositDisplayText    string        `json:"depositDisplayText" dynamodbav:"depositDisplayText"`
	AmountPaidDisplay     string        `json:"amountPaidDisplay" dynamodbav:"amountPaidDisplay"`
	PromoCode             string        `json:"promoCode,omitempty" dynamodbav:"promoCode,omitempty"`
	PaymentMethod         string        `json:"paymentMethod" dynamodbav:"paymentMethod"`
	PaymentLink           string        `json:"paymentLink,omitempty" dynamodbav:"paymentLink,omitempty"`
	StripeSessionID       string        `json:"stripeSessionId" dynamodbav:"stripeSessionId"`
	StripePaymentIntentID string        `json:"stripePaymentIntentId,omitempty" dynamodbav:"stripePaymentIntentId,omitempty"`
}

// SessionStart returns the parsed session start in loc, or false when the
// snapshot carries no parseable date.
func (s *Snapshot) SessionStart(loc *time.Location) (time.Time, bool) {
	if s.SessionStartISO == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s.SessionStartISO)
	if err != nil {
		return time.Time{}, false
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t, true
}

// Builder assembles snapshots from provider sessions. It holds the package
// catalog and the studio timezone so per-call inputs stay minimal.
type Builder struct {
	catalog *pricing.Catalog
	loc     *time.Location
	logger  *logging.Logger
}

func NewBuilder(catalog *pricing.Catalog, loc *time.Location, logger *logging.Logger) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{catalog: catalog, loc: loc, logger: logger}
}

// Build consolidates a completed checkout session into a Snapshot. Amounts
// are in major currency units, already converted from the provider's minor
// units. Unknown packages and malformed dates degrade to placeholders with
// a warning; only irreconcilable money aborts the build.
func (b *Builder) Build(session ProviderSession, stripePaid, discountApplied float64) (*Snapshot, error) {
	md := session.Metadata

	name := firstNonEmpty(md.CustomerName, session.CustomerName, "there")
	email := firstNonEmpty(md.CustomerEmail, session.CustomerEmail)
	service := firstNonEmpty(md.Service, "Studio Session")

	mode := pricing.ModeHourly
	if md.PackageID != "" || md.PackageName != "" {
		mode = pricing.ModePackage
	}
	res := b.catalog.Resolve(mode, md.PackageID, md.PackageName, service, md.hoursOrZero())

	declared, err := parseDeclaredTotal(md.TotalSessionPrice)
	if err != nil {
		return nil, err
	}
	money, err := ReconcileMoney(stripePaid, discountApplied, declared)
	if err != nil {
		return nil, fmt.Errorf("reconcile booking %s: %w", session.ID, err)
	}

	snap := &Snapshot{
		BookingID:     session.ID,
		CustomerName:  name,
		CustomerEmail: email,

		Service:       service,
		PricingMode:   res.Mode,
		PackageID:     res.PackageID,
		PackageName:   res.PackageName,
		DurationHours: res.DurationHours,
		DurationLabel: durationLabel(res),
		Addons:        md.addonNames(),

		SessionDate: md.SessionDate,
		SessionTime: md.SessionTime,

		Money: money,

		PaymentType:           md.PaymentType,
		PaymentStatus:         money.Status(),
		EmailType:             emailType(md.PaymentType, money),
		DepositDisplayText:    depositDisplayText(money),
		AmountPaidDisplay:     formatGBP(money.AmountPaid),
		PromoCode:             md.PromoCode,
		PaymentMethod:         "stripe",
		StripeSessionID:       session.ID,
		StripePaymentIntentID: session.PaymentIntentID,
	}

	start, err := b.parseSessionStart(md.SessionDate, md.SessionTime)
	if err != nil {
		b.logger.Warn("session date unparseable, booking proceeds with placeholder",
			"booking_id", session.ID, "date", md.SessionDate, "time", md.SessionTime, "error", err)
		snap.SessionDateDisplay = datePlaceholder
		snap.SessionTimeDisplay = datePlaceholder
	} else {
		snap.SessionStartISO = start.Format(time.RFC3339)
		snap.SessionDateDisplay = start.Format("Monday, 2 January 2006")
		snap.SessionTimeDisplay = start.Format("15:04")
	}

	return snap, nil
}

// parseSessionStart accepts the two date layouts customers actually submit
// and a 24h clock time, interpreted in the studio timezone.
func (b *Builder) parseSessionStart(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("missing date or time")
	}
	var day time.Time
	var err error
	for _, layout := range sessionDateLayouts {
		day, err = time.ParseInLocation(layout, date, b.loc)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t, err := time.ParseInLocation("15:04", clock, b.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, b.loc), nil
}

// parseDeclaredTotal distinguishes an absent total (nil) from a present but
// unparseable one, which is a hard error.
func parseDeclaredTotal(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: declared total %q", ErrInvalidMoney, raw)
	}
	return &v, nil
}

func emailType(paymentType string, m Money) EmailType {
	if paymentType == "full" || m.BalanceDue <= 0 {
		return EmailFullPayment
	}
	return EmailDepositPaid
}

func durationLabel(res pricing.Resolution) string {
	if res.Mode == pricing.ModePackage && res.PackageName != "" {
		return res.PackageName
	}
	if res.DurationHours == 1 {
		return "1 hour"
	}
	if res.DurationHours > 0 {
		return fmt.Sprintf("%d hours", res.DurationHours)
	}
	return "Duration to be confirmed"
}

// depositDisplayText spells out how the up-front amount was covered so the
// confirmation email never shows a bare figure the customer cannot square
// with their card statement.
func depositDisplayText(m Money) string {
	switch {
	case m.DiscountApplied > 0 && m.StripePaid <= 0:
		return fmt.Sprintf("Paid via promo code (%s)", formatGBP(m.AmountPaid))
	case m.DiscountApplied > 0:
		return fmt.Sprintf("%s (%s card + %s promo)", formatGBP(m.AmountPaid), formatGBP(m.StripePaid), formatGBP(m.DiscountApplied))
	case m.StripePaid > 0:
		return formatGBP(m.StripePaid)
	default:
		return "£0.00 (No deposit required)"
	}
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
