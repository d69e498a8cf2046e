package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errors           *prometheus.CounterVec
	ticketsCreated   prometheus.Counter
	ticketsDeleted   prometheus.Counter
	escalations      prometheus.Counter
	notifications    *prometheus.CounterVec
	deliveryFailures prometheus.Counter
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "incident_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		ticketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_tickets_created_total",
			Help: "Tickets created.",
		}),
		ticketsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_tickets_deleted_total",
			Help: "Tickets deleted.",
		}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_tickets_escalated_total",
			Help: "Tickets flagged as SLA breaches.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_notifications_recorded_total",
			Help: "Notifications recorded by kind.",
		}, []string{"kind"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_notification_delivery_failures_total",
			Help: "Notifications recorded but not delivered by the sink.",
		}),
	}
	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.ticketsCreated,
		m.ticketsDeleted,
		m.escalations,
		m.notifications,
		m.deliveryFailures,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

func (m *Metrics) TicketCreated() {
	if m != nil {
		m.ticketsCreated.Inc()
	}
}

func (m *Metrics) TicketDeleted() {
	if m != nil {
		m.ticketsDeleted.Inc()
	}
}

func (m *Metrics) TicketsEscalated(n int) {
	if m != nil {
		m.escalations.Add(float64(n))
	}
}

// NotificationRecorded counts a persisted notification of the given kind.
func (m *Metrics) NotificationRecorded(kind string) {
	if m != nil {
		m.notifications.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) DeliveryFailed() {
	if m != nil {
		m.deliveryFailures.Inc()
	}
}
