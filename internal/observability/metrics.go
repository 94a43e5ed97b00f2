package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research pipeline service.
// Metrics are organized by subsystem: pipeline runs, source fan-out, dedup,
// ranking, and answer synthesis. All counters and histograms are registered
// via promauto for automatic registration with the default Prometheus registry.
type Metrics struct {
	// PipelineRunsStarted counts the total number of pipeline runs initiated.
	PipelineRunsStarted prometheus.Counter

	// PipelineRunsCompleted counts runs that produced a citation list.
	PipelineRunsCompleted prometheus.Counter

	// PipelineRunsFailed counts runs that ended in a pipeline-level error.
	PipelineRunsFailed prometheus.Counter

	// PipelineRunsLowConfidence counts runs flagged as low-confidence
	// (fewer citations than the desired minimum after the relevance floor).
	PipelineRunsLowConfidence prometheus.Counter

	// PipelineDuration observes the end-to-end duration of runs in seconds.
	PipelineDuration prometheus.Histogram

	// SearchesStarted counts searches initiated, labeled by source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by source and failure kind.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// CandidatesPerSearch observes candidates returned per search, labeled by source.
	CandidatesPerSearch *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SourcesDegraded counts sources reported degraded in a run, labeled by source.
	SourcesDegraded *prometheus.CounterVec

	// CandidatesMerged counts candidates absorbed into an existing merge,
	// labeled by match kind (doi, pmid, fuzzy).
	CandidatesMerged *prometheus.CounterVec

	// CandidatesOutOfDomain counts candidates rejected by the domain gate.
	CandidatesOutOfDomain prometheus.Counter

	// CandidatesBelowFloor counts in-domain candidates excluded by the
	// relevance floor in selection.
	CandidatesBelowFloor prometheus.Counter

	// CitationsSelected observes the number of citations per run.
	CitationsSelected prometheus.Histogram

	// SynthesisRequestsTotal counts answer synthesis requests, labeled by
	// provider and model.
	SynthesisRequestsTotal *prometheus.CounterVec

	// SynthesisRequestsFailed counts failed synthesis requests, labeled by
	// provider, model, and error type.
	SynthesisRequestsFailed *prometheus.CounterVec

	// SynthesisDuration observes synthesis duration in seconds, labeled by
	// provider and model.
	SynthesisDuration *prometheus.HistogramVec

	// SynthesisTokensUsed counts tokens consumed by synthesis, labeled by
	// provider, model, and token type (input, output).
	SynthesisTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PipelineRunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_started_total",
			Help:      "Total number of research pipeline runs started",
		}),
		PipelineRunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_completed_total",
			Help:      "Total number of pipeline runs that produced a citation list",
		}),
		PipelineRunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_failed_total",
			Help:      "Total number of pipeline runs that failed",
		}),
		PipelineRunsLowConfidence: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_low_confidence_total",
			Help:      "Total number of pipeline runs flagged as low-confidence",
		}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end duration of pipeline runs in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60},
		}),
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of source searches started",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of source searches completed successfully",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of source searches that failed",
		}, []string{"source", "kind"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of source searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		CandidatesPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_search",
			Help:      "Number of candidates returned per source search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from source APIs",
		}, []string{"source"}),
		SourcesDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_degraded_total",
			Help:      "Total number of times a source was reported degraded in a run",
		}, []string{"source"}),
		CandidatesMerged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_merged_total",
			Help:      "Total number of candidates merged into an existing work",
		}, []string{"match"}),
		CandidatesOutOfDomain: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_out_of_domain_total",
			Help:      "Total number of candidates rejected by the domain gate",
		}),
		CandidatesBelowFloor: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_below_floor_total",
			Help:      "Total number of in-domain candidates excluded by the relevance floor",
		}),
		CitationsSelected: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "citations_selected",
			Help:      "Number of citations selected per pipeline run",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 12},
		}),
		SynthesisRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Total number of answer synthesis requests",
		}, []string{"provider", "model"}),
		SynthesisRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_failed_total",
			Help:      "Total number of failed answer synthesis requests",
		}, []string{"provider", "model", "error_type"}),
		SynthesisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Duration of answer synthesis requests in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"provider", "model"}),
		SynthesisTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_tokens_used_total",
			Help:      "Total number of tokens consumed by answer synthesis",
		}, []string{"provider", "model", "token_type"}),
	}
}

// RecordRunStarted records the start of a pipeline run.
func (m *Metrics) RecordRunStarted() {
	m.PipelineRunsStarted.Inc()
}

// RecordRunCompleted records a completed run and its duration.
func (m *Metrics) RecordRunCompleted(durationSeconds float64, lowConfidence bool, citationCount int) {
	m.PipelineRunsCompleted.Inc()
	m.PipelineDuration.Observe(durationSeconds)
	m.CitationsSelected.Observe(float64(citationCount))
	if lowConfidence {
		m.PipelineRunsLowConfidence.Inc()
	}
}

// RecordRunFailed records a failed run and its duration.
func (m *Metrics) RecordRunFailed(durationSeconds float64) {
	m.PipelineRunsFailed.Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordSearchStarted records the start of a source search.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records a successful source search.
func (m *Metrics) RecordSearchCompleted(source string, candidateCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.CandidatesPerSearch.WithLabelValues(source).Observe(float64(candidateCount))
}

// RecordSearchFailed records a failed source search.
func (m *Metrics) RecordSearchFailed(source, kind string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source, kind).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRateLimited records a rate-limited response from a source API.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordSourceDegraded records a source reported degraded in a run.
func (m *Metrics) RecordSourceDegraded(source string) {
	m.SourcesDegraded.WithLabelValues(source).Inc()
}

// RecordCandidateMerged records a candidate absorbed into an existing merge.
// match is the match kind: "doi", "pmid", or "fuzzy".
func (m *Metrics) RecordCandidateMerged(match string) {
	m.CandidatesMerged.WithLabelValues(match).Inc()
}

// RecordCandidateOutOfDomain records a candidate rejected by the domain gate.
func (m *Metrics) RecordCandidateOutOfDomain() {
	m.CandidatesOutOfDomain.Inc()
}

// RecordCandidateBelowFloor records a candidate excluded by the relevance floor.
func (m *Metrics) RecordCandidateBelowFloor() {
	m.CandidatesBelowFloor.Inc()
}

// RecordSynthesis records an answer synthesis request with token usage.
func (m *Metrics) RecordSynthesis(provider, model string, durationSeconds float64, inputTokens, outputTokens int) {
	m.SynthesisRequestsTotal.WithLabelValues(provider, model).Inc()
	m.SynthesisDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	m.SynthesisTokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	m.SynthesisTokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// RecordSynthesisFailed records a failed answer synthesis request.
func (m *Metrics) RecordSynthesisFailed(provider, model, errorType string) {
	m.SynthesisRequestsFailed.WithLabelValues(provider, model, errorType).Inc()
}
