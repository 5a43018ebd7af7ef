// Package metrics collects Prometheus metrics for logins and giveaway entries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service layer reports to.
type Recorder interface {
	RecordLogin()
	RecordLoginFailure(reason string)
	RecordEntry(created bool)
}

// Login failure reasons.
const (
	ReasonUpstreamAuth    = "upstream_auth"
	ReasonUpstreamProfile = "upstream_profile"
	ReasonStore           = "store"
	ReasonInvalid         = "invalid_request"
)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	logins        prometheus.Counter
	loginFailures *prometheus.CounterVec
	entries       *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solwinner_logins_total",
			Help: "Successful Discord logins.",
		}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solwinner_login_failures_total",
			Help: "Failed login callbacks by reason.",
		}, []string{"reason"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solwinner_entries_total",
			Help: "Giveaway entry attempts by result (created or duplicate).",
		}, []string{"result"}),
	}

	reg.MustRegister(c.logins, c.loginFailures, c.entries)
	return c
}

func (c *Collector) RecordLogin() {
	c.logins.Inc()
}

func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordEntry(created bool) {
	result := "duplicate"
	if created {
		result = "created"
	}
	c.entries.WithLabelValues(result).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when metrics are not wired, e.g. in tests.
type Nop struct{}

func (Nop) RecordLogin()              {}
func (Nop) RecordLoginFailure(string) {}
func (Nop) RecordEntry(bool)          {}
