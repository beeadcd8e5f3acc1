// Package metrics exposes Prometheus collectors for the authenticated API client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "match_client"

// Refresh outcomes
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeNoRefreshToken = "no_refresh_token"
	OutcomeSkipped        = "skipped"
)

// Refresh counts what the refresh coordinator does. A nil *Refresh records nothing.
type Refresh struct {
	outcomes      *prometheus.CounterVec
	coalesced     prometheus.Counter
	resubmissions prometheus.Counter
	terminal      prometheus.Counter
}

// NewRefresh registers the refresh collectors with reg.
func NewRefresh(reg prometheus.Registerer) *Refresh {
	factory := promauto.With(reg)
	return &Refresh{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token_refresh",
			Name:      "total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		coalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token_refresh",
			Name:      "coalesced_total",
			Help:      "Authorization failures that waited on a refresh started by another request.",
		}),
		resubmissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "resubmitted_total",
			Help:      "Requests resubmitted after a credential refresh.",
		}),
		terminal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "terminated_total",
			Help:      "Sessions ended because credentials could not be refreshed.",
		}),
	}
}

func (r *Refresh) ObserveOutcome(outcome string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(outcome).Inc()
}

func (r *Refresh) ObserveCoalesced() {
	if r == nil {
		return
	}
	r.coalesced.Inc()
}

func (r *Refresh) ObserveResubmission() {
	if r == nil {
		return
	}
	r.resubmissions.Inc()
}

func (r *Refresh) ObserveTerminated() {
	if r == nil {
		return
	}
	r.terminal.Inc()
}

// Outcomes returns the outcome counter for tests and exporters.
func (r *Refresh) Outcomes() *prometheus.CounterVec {
	return r.outcomes
}

func (r *Refresh) Coalesced() prometheus.Counter {
	return r.coalesced
}

func (r *Refresh) Resubmissions() prometheus.Counter {
	return r.resubmissions
}

func (r *Refresh) Terminated() prometheus.Counter {
	return r.terminal
}
