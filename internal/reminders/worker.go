package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/studioxv/booking-platform/internal/bookings"
	"github.com/studioxv/booking-platform/internal/notify"
	"github.com/studioxv/booking-platform/internal/notify/templates"
	"github.com/studioxv/booking-platform/internal/observability/metrics"
	"github.com/studioxv/booking-platform/pkg/logging"
)

// BookingSource is the slice of the bookings store the worker needs.
type BookingSource interface {
	List(ctx context.Context) ([]*bookings.Record, error)
	MarkReminderSent(ctx context.Context, bookingID string, kind bookings.ReminderKind) (bool, error)
}

// Detail reports one reminder attempt within a scan.
type Detail struct {
	BookingID string `json:"bookingId"`
	Type      string `json:"type"`
	Recipient string `json:"recipient,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary is the outcome of one full scan.
type Summary struct {
	Scanned     int      `json:"scanned"`
	SentCount   int      `json:"sentCount"`
	FailedCount int      `json:"failedCount"`
	Details     []Detail `json:"details"`
}

// Worker scans persisted bookings on a timer and sends whatever reminders
// are due. One booking's failure never stops the rest of the scan.
type Worker struct {
	store    BookingSource
	sender   notify.EmailSender
	metrics  *metrics.BookingMetrics
	interval time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

// NewWorker creates a reminder worker polling at the given interval.
func NewWorker(store BookingSource, sender notify.EmailSender, m *metrics.BookingMetrics, interval time.Duration, logger *logging.Logger) *Worker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:    store,
		sender:   sender,
		metrics:  m,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run polls until the context is cancelled. A scan fires immediately on
// start so a fresh deploy never waits a full interval.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "interval", w.interval.String())

	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("reminder scan failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("reminder scan failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single scan over all bookings.
func (w *Worker) RunOnce(ctx context.Context) (*Summary, error) {
	started := w.now()
	records, err := w.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("reminders: list bookings: %w", err)
	}

	summary := &Summary{Scanned: len(records)}
	now := w.now()

	for _, rec := range records {
		flags := Evaluate(rec, now)
		if !flags.Any() {
			continue
		}
		if flags.Needs24h {
			w.dispatch(ctx, summary, rec, bookings.Reminder24h, "24h")
		}
		if flags.Needs2h {
			w.dispatch(ctx, summary, rec, bookings.Reminder2h, "2h")
		}
		if flags.NeedsStartPayment {
			w.dispatch(ctx, summary, rec, bookings.ReminderStartPayment, "start_payment")
		}
		if flags.NeedsPostSessionPayment {
			w.dispatch(ctx, summary, rec, bookings.ReminderPostSession, "post_session")
		}
	}

	w.metrics.ObserveReminderScan(time.Since(started).Seconds())
	w.logger.Info("reminder scan complete",
		"scanned", summary.Scanned, "sent", summary.SentCount, "failed", summary.FailedCount)
	return summary, nil
}

// dispatch claims the flag, then sends. Claiming first means a duplicate
// worker can never send the same reminder twice.
func (w *Worker) dispatch(ctx context.Context, summary *Summary, rec *bookings.Record, kind bookings.ReminderKind, reminderType string) {
	won, err := w.store.MarkReminderSent(ctx, rec.BookingID, kind)
	if err != nil {
		w.fail(summary, rec, reminderType, fmt.Errorf("mark sent: %w", err))
		return
	}
	if !won {
		w.logger.Debug("reminder already sent", "booking_id", rec.BookingID, "type", reminderType)
		return
	}

	if err := w.send(ctx, rec, reminderType); err != nil {
		w.fail(summary, rec, reminderType, err)
		return
	}

	summary.SentCount++
	summary.Details = append(summary.Details, Detail{
		BookingID: rec.BookingID,
		Type:      reminderType,
		Recipient: rec.CustomerEmail,
	})
	w.metrics.ObserveReminder(reminderType, "sent")
	w.logger.Info("reminder sent", "booking_id", rec.BookingID, "type", reminderType, "to", rec.CustomerEmail)
}

func (w *Worker) send(ctx context.Context, rec *bookings.Record, reminderType string) error {
	data := notify.Adapt(&rec.Snapshot)
	if err := data.Validate(); err != nil {
		return err
	}

	var (
		rendered templates.Rendered
		err      error
	)
	switch reminderType {
	case "24h":
		rendered, err = templates.SessionReminder(data, true)
	case "2h":
		rendered, err = templates.SessionReminder(data, false)
	case "start_payment":
		rendered, err = templates.BalancePaymentReminder(data)
	case "post_session":
		rendered, err = templates.PostSessionBalanceReminder(data)
	default:
		return fmt.Errorf("reminders: unknown reminder type %q", reminderType)
	}
	if err != nil {
		return err
	}

	return w.sender.Send(ctx, notify.EmailMessage{
		To:      data.CustomerEmail,
		ToName:  data.CustomerName,
		Subject: rendered.Subject,
		Body:    rendered.Text,
		HTML:    rendered.HTML,
	})
}

func (w *Worker) fail(summary *Summary, rec *bookings.Record, reminderType string, err error) {
	summary.FailedCount++
	summary.Details = append(summary.Details, Detail{
		BookingID: rec.BookingID,
		Type:      reminderType,
		Recipient: rec.CustomerEmail,
		Error:     err.Error(),
	})
	w.metrics.ObserveReminder(reminderType, "failed")
	w.logger.Error("reminder send failed", "booking_id", rec.BookingID, "type", reminderType, "error", err)
}
