package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the application
type Metrics struct {
	registry *prometheus.Registry

	UsersRegistered       prometheus.Counter
	TokensIssued          *prometheus.CounterVec
	TokensConsumed        *prometheus.CounterVec
	UnverifiedSwept       prometheus.Counter
	CertificatesSubmitted prometheus.Counter
	CertificateDecisions  *prometheus.CounterVec
	NotificationsCreated  *prometheus.CounterVec
	MailFailures          *prometheus.CounterVec
	SubmitDuration        prometheus.Histogram
	HTTPDuration          *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UsersRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_users_registered_total",
			Help: "Total number of accounts registered",
		}),
		TokensIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_credential_tokens_issued_total",
			Help: "Credential tokens issued by purpose",
		}, []string{"purpose"}),
		TokensConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_credential_tokens_consumed_total",
			Help: "Credential token consumption attempts by purpose and result",
		}, []string{"purpose", "result"}),
		UnverifiedSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_unverified_users_swept_total",
			Help: "Unverified accounts deleted after their verification token expired",
		}),
		CertificatesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_certificate_requests_submitted_total",
			Help: "Certificate requests submitted",
		}),
		CertificateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_certificate_requests_decided_total",
			Help: "Certificate requests moved to a terminal status",
		}, []string{"status"}),
		NotificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_notifications_created_total",
			Help: "Notifications appended by type",
		}, []string{"type"}),
		MailFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_mail_failures_total",
			Help: "Failed mail deliveries by kind",
		}, []string{"kind"}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "barangay_certificate_submit_duration_seconds",
			Help:    "Duration of certificate request submission transactions",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barangay_http_request_duration_seconds",
			Help:    "Duration of API requests by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records the duration of every request under the matched route
// pattern, so path parameters do not create new series
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		m.HTTPDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveSubmit records the duration of a submission.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// IncNotifications adds n notifications of type t
func (m *Metrics) IncNotifications(t string, n int) {
	m.NotificationsCreated.WithLabelValues(t).Add(float64(n))
}

// IncMailFailure records a failed delivery
func (m *Metrics) IncMailFailure(authFailure bool) {
	kind := "delivery"
	if authFailure {
		kind = "auth"
	}
	m.MailFailures.WithLabelValues(kind).Inc()
}
