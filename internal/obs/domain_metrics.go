package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics groups the collectors describing pricing decisions.
type PricingMetrics struct {
	DecisionsTotal     *prometheus.CounterVec
	ConfigErrorsTotal  *prometheus.CounterVec
	QuoteCacheTotal    *prometheus.CounterVec
	QuoteDuration      *prometheus.HistogramVec
	PolicyUpdatesTotal *prometheus.CounterVec
}

// NewPricingMetrics registers and returns the pricing collectors.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PricingMetrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_decisions_total",
			Help:      "Count of winning prices by profile and price type.",
		}, []string{"profile", "type"}),
		ConfigErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_config_errors_total",
			Help:      "Count of quotes aborted by a policy configuration error.",
		}, []string{"profile", "field"}),
		QuoteCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quote_cache_total",
			Help:      "Quote cache lookups by result.",
		}, []string{"result"}),
		QuoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_duration_ms",
			Help:      "Quote computation latency in milliseconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}, []string{"profile"}),
		PolicyUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_policy_updates_total",
			Help:      "Policy profile updates by outcome.",
		}, []string{"profile", "result"}),
	}
	m.DecisionsTotal = mustRegister(reg, m.DecisionsTotal)
	m.ConfigErrorsTotal = mustRegister(reg, m.ConfigErrorsTotal)
	m.QuoteCacheTotal = mustRegister(reg, m.QuoteCacheTotal)
	m.QuoteDuration = mustRegister(reg, m.QuoteDuration)
	m.PolicyUpdatesTotal = mustRegister(reg, m.PolicyUpdatesTotal)
	return m
}

// ObserveDecision counts a winning price.
func (m *PricingMetrics) ObserveDecision(profile, priceType string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(profile, priceType).Inc()
}

// ObserveConfigError counts a configuration failure for the given policy field.
func (m *PricingMetrics) ObserveConfigError(profile, field string) {
	if m == nil {
		return
	}
	m.ConfigErrorsTotal.WithLabelValues(profile, field).Inc()
}

// ObserveCache counts a cache lookup; result is hit, miss or error.
func (m *PricingMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.QuoteCacheTotal.WithLabelValues(result).Inc()
}

// ObserveQuoteDuration records the time spent computing a quote.
func (m *PricingMetrics) ObserveQuoteDuration(profile string, millis float64) {
	if m == nil {
		return
	}
	m.QuoteDuration.WithLabelValues(profile).Observe(millis)
}

// ObservePolicyUpdate counts a policy update attempt.
func (m *PricingMetrics) ObservePolicyUpdate(profile, result string) {
	if m == nil {
		return
	}
	m.PolicyUpdatesTotal.WithLabelValues(profile, result).Inc()
}
