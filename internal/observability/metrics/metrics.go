package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the Prometheus primitives for the billing portal.
type Metrics struct {
	apiRequests       *prometheus.CounterVec
	apiDuration       *prometheus.HistogramVec
	notificationsSent *prometheus.CounterVec
	notificationsSkip *prometheus.CounterVec
	activations       *prometheus.CounterVec
	paymentsMarked    *prometheus.CounterVec
	overduePromotions prometheus.Counter
}

// NewMetrics registers and returns the portal metrics.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(registerer prometheus.Registerer) *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_api_requests_total",
		Help: "Counts API requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cie_api_duration_seconds",
		Help:    "API request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	notificationsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_delinquency_notifications_sent_total",
		Help: "Delinquency reminders delivered by stage and channel.",
	}, []string{"stage", "channel"})

	notificationsSkip := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_delinquency_notifications_skipped_total",
		Help: "Reminders skipped because the stage was already notified.",
	}, []string{"stage"})

	activations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_billing_activations_total",
		Help: "Billing activation runs by mode and dry-run flag.",
	}, []string{"mode", "dry_run"})

	paymentsMarked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cie_payments_marked_paid_total",
		Help: "Payments registered as paid by method.",
	}, []string{"method"})

	overduePromotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cie_overdue_promotions_total",
		Help: "Pending payments promoted to overdue past their grace date.",
	})

	registerer.MustRegister(
		apiRequests,
		apiDuration,
		notificationsSent,
		notificationsSkip,
		activations,
		paymentsMarked,
		overduePromotions,
	)

	return &Metrics{
		apiRequests:       apiRequests,
		apiDuration:       apiDuration,
		notificationsSent: notificationsSent,
		notificationsSkip: notificationsSkip,
		activations:       activations,
		paymentsMarked:    paymentsMarked,
		overduePromotions: overduePromotions,
	}
}

func (m *Metrics) ObserveAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) IncNotificationSent(stage int, channel string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(strconv.Itoa(stage), channel).Inc()
}

func (m *Metrics) IncNotificationSkipped(stage int) {
	if m == nil {
		return
	}
	m.notificationsSkip.WithLabelValues(strconv.Itoa(stage)).Inc()
}

func (m *Metrics) IncActivation(mode string, dryRun bool) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(mode, strconv.FormatBool(dryRun)).Inc()
}

func (m *Metrics) IncPaymentMarkedPaid(method string) {
	if m == nil {
		return
	}
	m.paymentsMarked.WithLabelValues(method).Inc()
}

func (m *Metrics) AddOverduePromotions(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.overduePromotions.Add(float64(count))
}
