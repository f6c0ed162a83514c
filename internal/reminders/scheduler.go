// Package reminders decides which booking reminders are due and sends them.
// Eligibility is a pure function of the record and the clock; sending and
// once-only bookkeeping live in the worker.
package reminders

import (
	"time"

	"github.com/studioxv/booking-platform/internal/bookings"
)

// The poller runs every 15 minutes, so each window is half an hour wide to
// guarantee exactly one poll lands inside it.
const (
	dayWindowLow  = 23*time.Hour + 45*time.Minute
	dayWindowHigh = 24*time.Hour + 15*time.Minute

	twoHourWindowLow  = time.Hour + 45*time.Minute
	twoHourWindowHigh = 2*time.Hour + 15*time.Minute

	startWindowBefore = 5 * time.Minute
	startWindowAfter  = 10 * time.Minute

	// The post-session chase stays eligible for a full day past its
	// nominal 24h mark so an outage cannot silently skip it.
	postSessionWindowHigh = 48 * time.Hour
)

// Flags marks which reminders a booking needs right now.
type Flags struct {
	Needs24h                bool
	Needs2h                 bool
	NeedsStartPayment       bool
	NeedsPostSessionPayment bool
}

// Any reports whether at least one reminder is due.
func (f Flags) Any() bool {
	return f.Needs24h || f.Needs2h || f.NeedsStartPayment || f.NeedsPostSessionPayment
}

// Evaluate computes the due reminders for one booking at the given instant.
// Bookings without a parseable session start are never candidates. The two
// payment nudges additionally require an outstanding, unsettled balance.
func Evaluate(rec *bookings.Record, now time.Time) Flags {
	start, ok := rec.SessionStart(nil)
	if !ok {
		return Flags{}
	}

	until := start.Sub(now)
	since := now.Sub(start)
	owesBalance := rec.Money.BalanceDue > 0 && !rec.BalancePaid

	return Flags{
		Needs24h: !rec.Reminder24hSent &&
			until >= dayWindowLow && until <= dayWindowHigh,

		Needs2h: !rec.Reminder2hSent &&
			until >= twoHourWindowLow && until <= twoHourWindowHigh,

		NeedsStartPayment: !rec.StartPaymentReminderSent && owesBalance &&
			since >= -startWindowBefore && since <= startWindowAfter,

		NeedsPostSessionPayment: !rec.PostSessionEmailSent && owesBalance &&
			since >= dayWindowLow && since <= postSessionWindowHigh,
	}
}
