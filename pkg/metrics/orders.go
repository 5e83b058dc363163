package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order lifecycle and inventory activity.
type OrderMetrics struct {
	createDuration *prometheus.HistogramVec
	created        prometheus.Counter
	createFailures *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	payments       *prometheus.CounterVec
	restocked      prometheus.Counter
	notifications  *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer. A
// nil registerer yields a recorder that drops every observation.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	createDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_create_duration_seconds",
		Help:    "Duration of order creation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created successfully.",
	})
	createFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_create_failures_total",
		Help: "Rejected or failed order creations by error code.",
	}, []string{"code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_payment_transitions_total",
		Help: "Applied payment status transitions.",
	}, []string{"from", "to"})
	restocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_units_restored_total",
		Help: "Units returned to stock by cancellations.",
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Order notifications dispatched by event and result.",
	}, []string{"event", "result"})
	reg.MustRegister(createDuration, created, createFailures, transitions, payments, restocked, notifications)
	return &OrderMetrics{
		createDuration: createDuration,
		created:        created,
		createFailures: createFailures,
		transitions:    transitions,
		payments:       payments,
		restocked:      restocked,
		notifications:  notifications,
	}
}

// ObserveCreate records one order creation attempt. An empty code means success.
func (m *OrderMetrics) ObserveCreate(duration time.Duration, code string) {
	if m == nil || m.createDuration == nil {
		return
	}
	if code == "" {
		m.createDuration.WithLabelValues("success").Observe(duration.Seconds())
		m.created.Inc()
		return
	}
	m.createDuration.WithLabelValues("failure").Observe(duration.Seconds())
	m.createFailures.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncTransition counts an applied order status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncPaymentTransition counts an applied payment status change.
func (m *OrderMetrics) IncPaymentTransition(from, to string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// AddRestocked counts units returned to stock.
func (m *OrderMetrics) AddRestocked(units int) {
	if m == nil || m.restocked == nil || units <= 0 {
		return
	}
	m.restocked.Add(float64(units))
}

// IncNotification counts a notification dispatch outcome.
func (m *OrderMetrics) IncNotification(event string, ok bool) {
	if m == nil || m.notifications == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.notifications.WithLabelValues(normalizeLabel(event), result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
