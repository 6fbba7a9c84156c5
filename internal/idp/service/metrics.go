package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "nullprofile"

const (
	LabelCeremony = "ceremony"
	LabelOutcome  = "outcome"
	LabelResult   = "result"

	CeremonyRegistration   = "registration"
	CeremonyAuthentication = "authentication"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the provider's Prometheus collectors. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	AuthorizeRequests   *prometheus.CounterVec
	TokenExchanges      *prometheus.CounterVec
	Ceremonies          *prometheus.CounterVec
	SignCountAnomalies  prometheus.Counter
	ActiveSessions      prometheus.Gauge
	HousekeepingRemoved *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		AuthorizeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "authorize_requests_total",
			Help:      "Authorization requests by result (code, login, error).",
		}, []string{LabelResult}),
		TokenExchanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "token_exchanges_total",
			Help:      "Token endpoint calls by OAuth2 result code.",
		}, []string{LabelResult}),
		Ceremonies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "webauthn",
			Name:      "ceremonies_total",
			Help:      "Completed WebAuthn ceremonies by kind and outcome.",
		}, []string{LabelCeremony, LabelOutcome}),
		SignCountAnomalies: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "webauthn",
			Name:      "sign_count_anomalies_total",
			Help:      "Assertions whose signature counter did not increase.",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Browser sessions held in memory.",
		}),
		HousekeepingRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "housekeeping",
			Name:      "removed_total",
			Help:      "Expired in-memory entries removed by the sweeper.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ceremony(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.Ceremonies.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) authorize(result string) {
	if m == nil {
		return
	}
	m.AuthorizeRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) token(result string) {
	if m == nil {
		return
	}
	m.TokenExchanges.WithLabelValues(result).Inc()
}

func (m *Metrics) signCountAnomaly() {
	if m == nil {
		return
	}
	m.SignCountAnomalies.Inc()
}
