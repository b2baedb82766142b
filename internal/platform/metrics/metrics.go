package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exposed by the tax core. Services accept
// a nil *Metrics and skip instrumentation, so library consumers that do not run
// a metrics endpoint pay nothing.
type Metrics struct {
	ContributionsRecorded *prometheus.CounterVec
	ContributionsRejected *prometheus.CounterVec
	CalculationsTotal     *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ContributionsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualtax_contributions_recorded_total",
			Help: "Allowance contributions accepted by the ledger, by allowance type.",
		}, []string{"allowance_type"}),
		ContributionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualtax_contributions_rejected_total",
			Help: "Allowance contributions rejected for breaching a cap, by allowance type and cap.",
		}, []string{"allowance_type", "cap"}),
		CalculationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dualtax_liability_calculations_total",
			Help: "Liability calculations performed, by calculator name.",
		}, []string{"calculator"}),
	}
}

// RecordContribution increments the accepted-contribution counter.
func (m *Metrics) RecordContribution(allowanceType string) {
	if m == nil {
		return
	}
	m.ContributionsRecorded.WithLabelValues(allowanceType).Inc()
}

// RejectContribution increments the rejected-contribution counter.
func (m *Metrics) RejectContribution(allowanceType, cap string) {
	if m == nil {
		return
	}
	m.ContributionsRejected.WithLabelValues(allowanceType, cap).Inc()
}

// RecordCalculation increments the calculation counter.
func (m *Metrics) RecordCalculation(calculator string) {
	if m == nil {
		return
	}
	m.CalculationsTotal.WithLabelValues(calculator).Inc()
}
