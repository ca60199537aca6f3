package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the verification pipeline.
type Metrics struct {
	VerificationsTotal *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	EvidenceCollected  prometheus.Histogram
	ClaimsExtracted    prometheus.Histogram
	LLMCallsTotal      prometheus.Counter
	SearchCallsTotal   prometheus.Counter
	FetchCallsTotal    prometheus.Counter
	CacheHitsTotal     *prometheus.CounterVec
	CacheMissesTotal   *prometheus.CounterVec
	OverallConfidence  prometheus.Histogram
}

// New registers and returns pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VerificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalguard_verifications_total",
			Help: "Total signal verifications by overall status.",
		}, []string{"status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalguard_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"stage"}),
		EvidenceCollected: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalguard_evidence_collected",
			Help:    "Evidence items collected per verification.",
			Buckets: prometheus.LinearBuckets(0, 2, 10), // 0 .. 18
		}),
		ClaimsExtracted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalguard_claims_extracted",
			Help:    "Claims extracted per verification.",
			Buckets: prometheus.LinearBuckets(0, 1, 8), // 0 .. 7
		}),
		LLMCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalguard_llm_calls_total",
			Help: "Total structured-completion provider calls.",
		}),
		SearchCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalguard_search_calls_total",
			Help: "Total search provider calls.",
		}),
		FetchCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalguard_fetch_calls_total",
			Help: "Total outbound page fetches.",
		}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalguard_cache_hits_total",
			Help: "Cache hits by store.",
		}, []string{"store"}),
		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalguard_cache_misses_total",
			Help: "Cache misses by store.",
		}, []string{"store"}),
		OverallConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalguard_overall_confidence",
			Help:    "Overall confidence of completed verifications.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}),
	}

	reg.MustRegister(
		m.VerificationsTotal,
		m.StageDuration,
		m.EvidenceCollected,
		m.ClaimsExtracted,
		m.LLMCallsTotal,
		m.SearchCallsTotal,
		m.FetchCallsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.OverallConfidence,
	)
	return m
}
