// Package metrics exports search statistics as Prometheus metrics.
//
// Metrics are registered against a caller-supplied registerer so that
// several solvers, or tests, can keep independent registries.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/heptonion/conlog/pkg/conlog"
)

const (
	namespace = "conlog"
	subsystem = "search"
)

// Outcome labels.
const (
	OutcomeSolution     = "solution"
	OutcomeExhausted    = "exhausted"
	OutcomeLimitReached = "limit_reached"
	OutcomeCancelled    = "cancelled"
	OutcomeInconsistent = "inconsistent"
	OutcomeError        = "error"
)

// Metrics holds the counters shared by all strategies. Every vector is
// labelled by strategy.
type Metrics struct {
	// StatesDequeued counts search states (or candidates) examined.
	StatesDequeued *prometheus.CounterVec
	// StatesExpanded counts states whose successors were enqueued.
	StatesExpanded *prometheus.CounterVec
	// StatesPruned counts states discarded by the bounds table.
	StatesPruned *prometheus.CounterVec
	// Outcomes counts the results of Next calls.
	// Labels: strategy, outcome
	Outcomes *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatesDequeued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "states_dequeued_total",
			Help:      "Search states dequeued.",
		}, []string{"strategy"}),
		StatesExpanded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "states_expanded_total",
			Help:      "Search states expanded into successors.",
		}, []string{"strategy"}),
		StatesPruned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "states_pruned_total",
			Help:      "Search states discarded without expansion.",
		}, []string{"strategy"}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outcomes_total",
			Help:      "Results of requests for the next solution.",
		}, []string{"strategy", "outcome"}),
	}
}

// Recorder records the statistics of a single strategy.
// A nil *Recorder discards everything.
type Recorder struct {
	m        *Metrics
	strategy string
}

// For returns a Recorder for the named strategy.
func (m *Metrics) For(strategy string) *Recorder {
	if m == nil {
		return nil
	}
	return &Recorder{m: m, strategy: strategy}
}

// Add records a change in search statistics.
func (r *Recorder) Add(delta conlog.Stats) {
	if r == nil {
		return
	}
	r.m.StatesDequeued.WithLabelValues(r.strategy).Add(float64(delta.Dequeued))
	r.m.StatesExpanded.WithLabelValues(r.strategy).Add(float64(delta.Expanded))
	r.m.StatesPruned.WithLabelValues(r.strategy).Add(float64(delta.Pruned))
}

// Outcome records the result of a Next call.
func (r *Recorder) Outcome(err error) {
	if r == nil {
		return
	}
	r.m.Outcomes.WithLabelValues(r.strategy, OutcomeOf(err)).Inc()
}

// OutcomeOf classifies the error returned by conlog.Solutions.Next.
func OutcomeOf(err error) string {
	var inconsistent *conlog.InconsistencyError
	switch {
	case err == nil:
		return OutcomeSolution
	case errors.Is(err, conlog.ErrExhausted):
		return OutcomeExhausted
	case errors.Is(err, conlog.ErrLimitReached):
		return OutcomeLimitReached
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.As(err, &inconsistent):
		return OutcomeInconsistent
	}
	return OutcomeError
}
