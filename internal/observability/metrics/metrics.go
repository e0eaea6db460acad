package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the analysis and reply
// pipeline.
type PipelineMetrics struct {
	analyzedTotal    *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
	parseOutcomes    *prometheus.CounterVec
	creditDeductions *prometheus.CounterVec
	fallbackTotal    prometheus.Counter
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		analyzedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wambo",
			Subsystem: "analysis",
			Name:      "messages_total",
			Help:      "Messages analyzed, by primary intent and risk level",
		}, []string{"intent", "risk"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wambo",
			Subsystem: "reply",
			Name:      "provider_calls_total",
			Help:      "AI provider invocations, by provider and outcome",
		}, []string{"provider", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wambo",
			Subsystem: "reply",
			Name:      "provider_latency_seconds",
			Help:      "Latency of AI provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wambo",
			Subsystem: "reply",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per provider (0=closed, 1=open, 2=half_open)",
		}, []string{"provider"}),
		parseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wambo",
			Subsystem: "reply",
			Name:      "structured_parse_total",
			Help:      "Structured reply parses, by strategy that succeeded",
		}, []string{"strategy"}),
		creditDeductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wambo",
			Subsystem: "credits",
			Name:      "deductions_total",
			Help:      "Credit deductions, by outcome",
		}, []string{"status"}),
		fallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wambo",
			Subsystem: "reply",
			Name:      "fallback_total",
			Help:      "Generations that exhausted every provider",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.analyzedTotal,
		m.providerCalls,
		m.providerLatency,
		m.breakerState,
		m.parseOutcomes,
		m.creditDeductions,
		m.fallbackTotal,
	)
	return m
}

func (m *PipelineMetrics) ObserveAnalysis(intent, risk string) {
	if m == nil {
		return
	}
	m.analyzedTotal.WithLabelValues(intent, risk).Inc()
}

func (m *PipelineMetrics) ObserveProviderCall(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, status).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *PipelineMetrics) SetBreakerState(provider string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(provider).Set(state)
}

func (m *PipelineMetrics) ObserveParse(strategy string) {
	if m == nil {
		return
	}
	m.parseOutcomes.WithLabelValues(strategy).Inc()
}

func (m *PipelineMetrics) ObserveDeduction(status string) {
	if m == nil {
		return
	}
	m.creditDeductions.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}
