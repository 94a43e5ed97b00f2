package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/observability"
)

// fakeSynthesizer returns a fixed result or error.
type fakeSynthesizer struct {
	result *SynthesisResult
	err    error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSynthesizer) Provider() string { return "fake" }
func (f *fakeSynthesizer) Model() string    { return "fake-model" }

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	replacer := strings.NewReplacer("/", "_", "-", "_", " ", "_", "#", "_")
	return observability.NewMetrics("llm_" + strings.ToLower(replacer.Replace(t.Name())))
}

func TestInstrumentedSynthesizer_RecordsUsage(t *testing.T) {
	metrics := testMetrics(t)
	inner := &fakeSynthesizer{result: &SynthesisResult{
		Answer:       "answer [1].",
		Model:        "fake-model",
		InputTokens:  100,
		OutputTokens: 40,
	}}

	synth := NewInstrumentedSynthesizer(inner, metrics)
	result, err := synth.Synthesize(context.Background(), synthesisRequest())
	require.NoError(t, err)
	assert.Equal(t, "answer [1].", result.Answer)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SynthesisRequestsTotal.WithLabelValues("fake", "fake-model")))
	assert.Equal(t, float64(100), testutil.ToFloat64(metrics.SynthesisTokensUsed.WithLabelValues("fake", "fake-model", "input")))
	assert.Equal(t, float64(40), testutil.ToFloat64(metrics.SynthesisTokensUsed.WithLabelValues("fake", "fake-model", "output")))
}

func TestInstrumentedSynthesizer_RecordsFailures(t *testing.T) {
	metrics := testMetrics(t)
	inner := &fakeSynthesizer{err: &APIError{Provider: "fake", StatusCode: 503, Message: "down"}}

	synth := NewInstrumentedSynthesizer(inner, metrics)
	_, err := synth.Synthesize(context.Background(), synthesisRequest())
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SynthesisRequestsFailed.WithLabelValues("fake", "fake-model", "transient")))
}

func TestInstrumentedSynthesizer_NilMetricsPassthrough(t *testing.T) {
	inner := &fakeSynthesizer{result: &SynthesisResult{Answer: "a"}}
	assert.Same(t, AnswerSynthesizer(inner), NewInstrumentedSynthesizer(inner, nil))
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no citations", ErrNoCitations, "no_citations"},
		{"deadline", context.DeadlineExceeded, "cancelled"},
		{"transient api", &APIError{StatusCode: 429}, "transient"},
		{"permanent api", &APIError{StatusCode: 401}, "api"},
		{"other", assert.AnError, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorType(tt.err))
		})
	}
}
