// Package metrics exposes Prometheus counters for the subscription flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	RecordRegistration(outcome string)
	RecordConfirmation(outcome string)
	RecordMessage(kind, outcome string)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

type Collector struct {
	registrations *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	messages      *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_registrations_total",
			Help: "Subscriber registrations by outcome.",
		}, []string{"outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_confirmations_total",
			Help: "Subscription confirmations by outcome.",
		}, []string{"outcome"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_messages_total",
			Help: "Outbound messages by kind and outcome.",
		}, []string{"kind", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsletter_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(c.registrations, c.confirmations, c.messages, c.httpDuration)
	return c
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordConfirmation(outcome string) {
	c.confirmations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordMessage(kind, outcome string) {
	c.messages.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Handler serves the gatherer's metrics for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRegistration(string)                            {}
func (Nop) RecordConfirmation(string)                            {}
func (Nop) RecordMessage(string, string)                         {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
