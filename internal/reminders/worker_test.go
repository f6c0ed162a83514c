package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioxv/booking-platform/internal/booking"
	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/notify"
	"github.com/studioxv/booking-platform/pkg/logging"
)

type fakeStore struct {
	records     []*bookings.Record
	listErr     error
	marked      []string
	markErr     error
	alreadySent map[string]bool
}

func (f *fakeStore) List(ctx context.Context) ([]*bookings.Record, error) {
	return f.records, f.listErr
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, bookingID string, kind bookings.ReminderKind) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	key := bookingID + "/" + string(kind)
	if f.alreadySent[key] {
		return false, nil
	}
	f.marked = append(f.marked, key)
	return true, nil
}

type recordingSender struct {
	sent    []notify.EmailMessage
	failFor map[string]error
}

func (r *recordingSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	if err, ok := r.failFor[msg.To]; ok {
		return err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func dueRecord(id, email string, offset time.Duration, balanceDue float64) *bookings.Record {
	start := time.Now().Add(offset).UTC()
	return &bookings.Record{
		Snapshot: booking.Snapshot{
			BookingID:          id,
			CustomerName:       "Amy",
			CustomerEmail:      email,
			Service:            "Recording",
			SessionStartISO:    start.Format(time.RFC3339),
			SessionDateDisplay: "Monday, 12 January 2026",
			SessionTimeDisplay: "14:00",
			Money:              booking.Money{BasePrice: 160, AmountPaid: 160 - balanceDue, BalanceDue: balanceDue},
		},
	}
}

func TestRunOnceSendsDueReminders(t *testing.T) {
	store := &fakeStore{records: []*bookings.Record{
		dueRecord("cs_24h", "a@example.com", 24*time.Hour, 80),
		dueRecord("cs_post", "b@example.com", -24*time.Hour, 60),
		dueRecord("cs_quiet", "c@example.com", 72*time.Hour, 0),
	}}
	sender := &recordingSender{}
	worker := NewWorker(store, sender, nil, time.Minute, logging.New("error"))

	summary, err := worker.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.SentCount)
	assert.Equal(t, 0, summary.FailedCount)
	require.Len(t, sender.sent, 2)

	assert.Contains(t, store.marked, "cs_24h/reminder24hSent")
	assert.Contains(t, store.marked, "cs_post/postSessionEmailSent")
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	store := &fakeStore{records: []*bookings.Record{
		dueRecord("cs_fail", "broken@example.com", 24*time.Hour, 80),
		dueRecord("cs_ok", "fine@example.com", 24*time.Hour, 80),
	}}
	sender := &recordingSender{failFor: map[string]error{"broken@example.com": errors.New("smtp down")}}
	worker := NewWorker(store, sender, nil, time.Minute, logging.New("error"))

	summary, err := worker.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SentCount)
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.Details, 2)

	var failed *Detail
	for i := range summary.Details {
		if summary.Details[i].Error != "" {
			failed = &summary.Details[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "cs_fail", failed.BookingID)
	assert.Contains(t, failed.Error, "smtp down")
}

func TestRunOnceSkipsAlreadyClaimed(t *testing.T) {
	store := &fakeStore{
		records:     []*bookings.Record{dueRecord("cs_dupe", "a@example.com", 24*time.Hour, 80)},
		alreadySent: map[string]bool{"cs_dupe/reminder24hSent": true},
	}
	sender := &recordingSender{}
	worker := NewWorker(store, sender, nil, time.Minute, logging.New("error"))

	summary, err := worker.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.SentCount)
	assert.Zero(t, summary.FailedCount)
	assert.Empty(t, sender.sent)
}

func TestRunOnceRejectsInvalidRecipient(t *testing.T) {
	rec := dueRecord("cs_noemail", "", 24*time.Hour, 80)
	store := &fakeStore{records: []*bookings.Record{rec}}
	sender := &recordingSender{}
	worker := NewWorker(store, sender, nil, time.Minute, logging.New("error"))

	summary, err := worker.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FailedCount)
	assert.Empty(t, sender.sent)
}

func TestRunOncePropagatesListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("dynamo offline")}
	worker := NewWorker(store, &recordingSender{}, nil, time.Minute, logging.New("error"))

	_, err := worker.RunOnce(context.Background())
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	worker := NewWorker(store, &recordingSender{}, nil, 10*time.Millisecond, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
