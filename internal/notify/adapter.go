package notify

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/studioxv/booking-platform/internal/booking"
)

var (
	// ErrMissingRecipient indicates a snapshot with no customer email.
	ErrMissingRecipient = errors.New("notify: missing recipient email")
	// ErrInvalidEmailFormat indicates a recipient address that cannot be
	// parsed as an email address.
	ErrInvalidEmailFormat = errors.New("notify: invalid recipient email format")
)

// EmailData is the flattened, display-ready view of a booking that the
// email templates render. Every field is already formatted; templates do
// no arithmetic or fallback logic of their own.
type EmailData struct {
	BookingID     string
	CustomerName  string
	CustomerEmail string

	Service     string
	PackageName string
	Duration    string
	Addons      string
	SessionDate string
	SessionTime string

	TotalPrice  string
	DepositPaid string
	AmountPaid  string
	BalanceDue  string
	// OwesBalance gates the balance sections of the templates.
	OwesBalance bool
	PaymentLink string
	PromoCode   string

	EmailType booking.EmailType
}

// Adapt converts a snapshot into template-ready email data.
func Adapt(snap *booking.Snapshot) EmailData {
	return EmailData{
		BookingID:     snap.BookingID,
		CustomerName:  snap.CustomerName,
		CustomerEmail: snap.CustomerEmail,

		Service:     snap.Service,
		PackageName: snap.PackageName,
		Duration:    snap.DurationLabel,
		Addons:      snap.Addons,
		SessionDate: snap.SessionDateDisplay,
		SessionTime: snap.SessionTimeDisplay,

		TotalPrice:  fmt.Sprintf("£%.2f", snap.Money.BasePrice),
		DepositPaid: snap.DepositDisplayText,
		AmountPaid:  snap.AmountPaidDisplay,
		BalanceDue:  fmt.Sprintf("£%.2f", snap.Money.BalanceDue),
		OwesBalance: snap.Money.BalanceDue > 0,
		PaymentLink: snap.PaymentLink,
		PromoCode:   snap.PromoCode,

		EmailType: snap.EmailType,
	}
}

// Validate checks the recipient before any send is attempted. A booking
// without a deliverable address is a data problem, not a transport problem,
// and should be surfaced as such.
func (d EmailData) Validate() error {
	addr := strings.TrimSpace(d.CustomerEmail)
	if addr == "" {
		return fmt.Errorf("%w: booking %s", ErrMissingRecipient, d.BookingID)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmailFormat, addr)
	}
	return nil
}
