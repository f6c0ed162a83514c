package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/internal/bookings"
)

func recordStartingIn(offset time.Duration, balanceDue float64) *bookings.Record {
	start := time.Now().Add(offset).UTC()
	return &bookings.Record{
		Snapshot: booking.Snapshot{
			BookingID:       "cs_test",
			CustomerEmail:   "amy@example.com",
			SessionStartISO: start.Format(time.RFC3339),
			Money:           booking.Money{BasePrice: 160, AmountPaid: 160 - balanceDue, BalanceDue: balanceDue},
		},
	}
}

func TestEvaluateDayBeforeWindow(t *testing.T) {
	// Session starts in 24h01m: only the 24h reminder is due.
	flags := Evaluate(recordStartingIn(24*time.Hour+time.Minute, 80), time.Now())

	assert.True(t, flags.Needs24h)
	assert.False(t, flags.Needs2h)
	assert.False(t, flags.NeedsStartPayment)
	assert.False(t, flags.NeedsPostSessionPayment)
	assert.True(t, flags.Any())
}

func TestEvaluatePostSessionChase(t *testing.T) {
	// Session was 30h ago with an unpaid balance: the chase is still due.
	flags := Evaluate(recordStartingIn(-30*time.Hour, 60), time.Now())

	assert.False(t, flags.Needs24h)
	assert.False(t, flags.Needs2h)
	assert.False(t, flags.NeedsStartPayment)
	assert.True(t, flags.NeedsPostSessionPayment)
}

func TestEvaluateWindows(t *testing.T) {
	tests := []struct {
		name       string
		offset     time.Duration
		balanceDue float64
		want       Flags
	}{
		{name: "just inside 24h lower bound", offset: 23*time.Hour + 46*time.Minute, want: Flags{Needs24h: true}},
		{name: "outside 24h upper bound", offset: 24*time.Hour + 20*time.Minute, want: Flags{}},
		{name: "two hour window", offset: 2 * time.Hour, want: Flags{Needs2h: true}},
		{name: "outside two hour window", offset: 2*time.Hour + 30*time.Minute, want: Flags{}},
		{name: "start window with balance", offset: 3 * time.Minute, balanceDue: 80, want: Flags{NeedsStartPayment: true}},
		{name: "start window just started", offset: -8 * time.Minute, balanceDue: 80, want: Flags{NeedsStartPayment: true}},
		{name: "start window without balance", offset: 3 * time.Minute, want: Flags{}},
		{name: "post session paid up", offset: -24 * time.Hour, want: Flags{}},
		{name: "post session too old", offset: -72 * time.Hour, balanceDue: 60, want: Flags{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(recordStartingIn(tt.offset, tt.balanceDue), time.Now())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateSentFlagsSuppress(t *testing.T) {
	rec := recordStartingIn(24*time.Hour, 80)
	rec.Reminder24hSent = true
	assert.False(t, Evaluate(rec, time.Now()).Needs24h)

	rec = recordStartingIn(-24*time.Hour, 80)
	rec.PostSessionEmailSent = true
	assert.False(t, Evaluate(rec, time.Now()).NeedsPostSessionPayment)

	rec = recordStartingIn(2*time.Minute, 80)
	rec.BalancePaid = true
	assert.False(t, Evaluate(rec, time.Now()).NeedsStartPayment)
}

func TestEvaluateNoSessionStart(t *testing.T) {
	rec := &bookings.Record{Snapshot: booking.Snapshot{BookingID: "cs_nodate", Money: booking.Money{BalanceDue: 50}}}
	assert.False(t, Evaluate(rec, time.Now()).Any())
}
