package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the payment webhook and
// reminder flows. All methods are nil-safe so wiring stays optional.
type BookingMetrics struct {
	webhookTotal    *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
	bookingsCreated prometheus.Counter
	emailsTotal     *prometheus.CounterVec
	remindersTotal  *prometheus.CounterVec
	reminderScan    prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studioxv",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Total Stripe webhook deliveries",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studioxv",
			Subsystem: "payments",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of Stripe webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studioxv",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Total booking snapshots persisted",
		}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studioxv",
			Subsystem: "notify",
			Name:      "emails_total",
			Help:      "Total transactional emails by kind and status",
		}, []string{"kind", "status"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studioxv",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Total reminder sends by type and status",
		}, []string{"type", "status"}),
		reminderScan: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studioxv",
			Subsystem: "reminders",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full reminder scan",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.webhookLatency, m.bookingsCreated, m.emailsTotal, m.remindersTotal, m.reminderScan)
	return m
}

func (m *BookingMetrics) ObserveWebhook(eventType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(eventType, status).Inc()
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *BookingMetrics) BookingCreated() {
	if m == nil {
		return
	}
	m.bookingsCreated.Inc()
}

func (m *BookingMetrics) ObserveEmail(kind, status string) {
	if m == nil {
		return
	}
	m.emailsTotal.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveReminder(reminderType, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(reminderType, status).Inc()
}

func (m *BookingMetrics) ObserveReminderScan(seconds float64) {
	if m == nil {
		return
	}
	m.reminderScan.Observe(seconds)
}
