package llm

import (
	"context"
	"errors"
	"time"

	"github.com/clindex/research-pipeline-service/internal/observability"
)

// instrumentedSynthesizer wraps an AnswerSynthesizer with metrics: call
// durations, token usage, and failure counts by error type.
type instrumentedSynthesizer struct {
	inner   AnswerSynthesizer
	metrics *observability.Metrics
}

// NewInstrumentedSynthesizer wraps a synthesizer with metrics recording. A
// nil metrics receiver returns the synthesizer unchanged.
func NewInstrumentedSynthesizer(inner AnswerSynthesizer, metrics *observability.Metrics) AnswerSynthesizer {
	if metrics == nil {
		return inner
	}
	return &instrumentedSynthesizer{inner: inner, metrics: metrics}
}

func (s *instrumentedSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	start := time.Now()
	result, err := s.inner.Synthesize(ctx, req)
	if err != nil {
		s.metrics.RecordSynthesisFailed(s.inner.Provider(), s.inner.Model(), errorType(err))
		return nil, err
	}
	s.metrics.RecordSynthesis(s.inner.Provider(), result.Model, time.Since(start).Seconds(), result.InputTokens, result.OutputTokens)
	return result, nil
}

func (s *instrumentedSynthesizer) Provider() string { return s.inner.Provider() }
func (s *instrumentedSynthesizer) Model() string    { return s.inner.Model() }

// errorType maps a synthesis error to a low-cardinality metric label.
func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNoCitations):
		return "no_citations"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &apiErr):
		if apiErr.IsTransient() {
			return "transient"
		}
		return "api"
	default:
		return "other"
	}
}
