package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts negotiation and settlement outcomes.
type EngineMetrics struct {
	offerTransitions *prometheus.CounterVec
	settlements      *prometheus.CounterVec
	cascadeFailures  *prometheus.CounterVec
}

// NewEngineMetrics registers the engine counters on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	offerTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offer_transitions_total",
		Help:      "Offers moved to a terminal status, by status.",
	}, []string{"status"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_outcomes_total",
		Help:      "Reconcile calls by outcome (created, already_exists, not_paid, error).",
	}, []string{"outcome"})
	cascadeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_removal_step_failures_total",
		Help:      "Dependent cleanup steps skipped during listing removal.",
	}, []string{"step"})
	reg.MustRegister(offerTransitions, settlements, cascadeFailures)
	return &EngineMetrics{
		offerTransitions: offerTransitions,
		settlements:      settlements,
		cascadeFailures:  cascadeFailures,
	}
}

// IncOfferTransition counts one offer reaching status.
func (m *EngineMetrics) IncOfferTransition(status string) {
	if m == nil || m.offerTransitions == nil {
		return
	}
	m.offerTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncSettlement counts one reconcile outcome.
func (m *EngineMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCascadeFailure counts one skipped removal step.
func (m *EngineMetrics) IncCascadeFailure(step string) {
	if m == nil || m.cascadeFailures == nil {
		return
	}
	m.cascadeFailures.WithLabelValues(normalizeLabel(step)).Inc()
}
