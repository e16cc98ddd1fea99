package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec

	ticketsCreated   prometheus.Counter
	ticketsFailed    prometheus.Counter
	emailsDispatched *prometheus.CounterVec
	statusChanges    *prometheus.CounterVec
	pendingGauge     prometheus.Gauge
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		ticketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Tickets persisted.",
		}),
		ticketsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ticket_submissions_failed_total",
			Help: "Ticket submissions that failed to persist.",
		}),
		emailsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Notification dispatch attempts by type and outcome code.",
		}, []string{"type", "outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_status_changes_total",
			Help: "Admin status transitions by target status.",
		}, []string{"status"}),
		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pending_notifications",
			Help: "Notifications awaiting manual follow-up.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.ticketsCreated,
		m.ticketsFailed,
		m.emailsDispatched,
		m.statusChanges,
		m.pendingGauge,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(route, method, code).Inc()
}

func (m *Metrics) TicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

func (m *Metrics) TicketSubmissionFailed() {
	if m == nil {
		return
	}
	m.ticketsFailed.Inc()
}

// EmailDispatched records a dispatch outcome; outcome is "sent" or an error code.
func (m *Metrics) EmailDispatched(emailType, outcome string) {
	if m == nil {
		return
	}
	m.emailsDispatched.WithLabelValues(emailType, outcome).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// SetPendingNotifications updates the pending queue gauge.
func (m *Metrics) SetPendingNotifications(n int64) {
	if m == nil {
		return
	}
	m.pendingGauge.Set(float64(n))
}
