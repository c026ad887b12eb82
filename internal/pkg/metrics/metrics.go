package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the flow counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registrations *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	ResentLinks   *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	EmailsSent    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all counters on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_registrations_total",
				Help: "Account registration attempts",
			},
			[]string{"result"},
		),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_email_verifications_total",
				Help: "Email verification link visits by outcome",
			},
			[]string{"result"},
		),
		ResentLinks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_verification_links_resent_total",
				Help: "Verification link resend requests",
			},
			[]string{"result"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_logins_total",
				Help: "Login attempts by method",
			},
			[]string{"method", "result"},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_emails_sent_total",
				Help: "Templated emails sent",
			},
			[]string{"template", "result"},
		),
		registry: registry,
	}
	registry.MustRegister(m.Registrations, m.Verifications, m.ResentLinks, m.Logins, m.EmailsSent)
	return m
}

func (m *Metrics) Registration(result string) {
	if m != nil {
		m.Registrations.WithLabelValues(result).Inc()
	}
}

// Verification records a verification outcome, e.g. "enabled",
// "already_enabled", "invalid_code" or "failure".
func (m *Metrics) Verification(result string) {
	if m != nil {
		m.Verifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ResentLink(result string) {
	if m != nil {
		m.ResentLinks.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Login(method, result string) {
	if m != nil {
		m.Logins.WithLabelValues(method, result).Inc()
	}
}

func (m *Metrics) EmailSent(template, result string) {
	if m != nil {
		m.EmailsSent.WithLabelValues(template, result).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
