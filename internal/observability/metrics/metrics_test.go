package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveWebhook("checkout.session.completed", "processed", 0.05)
	m.ObserveWebhook("checkout.session.completed", "processed", 0.02)
	m.BookingCreated()
	m.ObserveEmail("booking_confirmation", "sent")
	m.ObserveReminder("24h", "sent")
	m.ObserveReminder("24h", "failed")
	m.ObserveReminderScan(0.3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.webhookTotal.WithLabelValues("checkout.session.completed", "processed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookingsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.remindersTotal.WithLabelValues("24h", "sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.remindersTotal.WithLabelValues("24h", "failed")))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	assert.NotPanics(t, func() {
		m.ObserveWebhook("x", "y", 0)
		m.BookingCreated()
		m.ObserveEmail("x", "y")
		m.ObserveReminder("x", "y")
		m.ObserveReminderScan(0)
	})
}
