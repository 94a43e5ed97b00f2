package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/observability"
	"github.com/clindex/research-pipeline-service/internal/papersources"
	"github.com/clindex/research-pipeline-service/internal/queryplan"
)

// stubSource is a controllable SearchSource for coordinator tests.
type stubSource struct {
	sourceType domain.SourceType
	candidates []domain.Candidate
	err        error
	delay      time.Duration
	enabled    bool
}

func (s *stubSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &papersources.SearchResult{
		Candidates:   s.candidates,
		TotalResults: len(s.candidates),
		Source:       s.sourceType,
	}, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return string(s.sourceType) }
func (s *stubSource) IsEnabled() bool               { return s.enabled }

func newTestCoordinator(t *testing.T, sources ...papersources.SearchSource) *Coordinator {
	t.Helper()
	registry := papersources.NewRegistry()
	for _, s := range sources {
		registry.Register(s)
	}
	metrics := observability.NewMetrics("fanout_test_" + sanitize(t.Name()))
	return NewCoordinator(registry, zerolog.Nop(), metrics)
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func testPlan(t *testing.T) *queryplan.Plan {
	t.Helper()
	plan, err := queryplan.NewBuilder(zerolog.Nop()).Build("metformin type 2 diabetes treatment")
	require.NoError(t, err)
	return plan
}

func candidate(title string, source domain.SourceType) domain.Candidate {
	return domain.Candidate{Title: title, Source: source}
}

func TestCoordinator_Search_AllSucceed(t *testing.T) {
	coordinator := newTestCoordinator(t,
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true,
			candidates: []domain.Candidate{candidate("a", domain.SourceTypePubMed)}},
		&stubSource{sourceType: domain.SourceTypeOpenAlex, enabled: true,
			candidates: []domain.Candidate{candidate("b", domain.SourceTypeOpenAlex), candidate("c", domain.SourceTypeOpenAlex)}},
	)

	outcomes, err := coordinator.Search(context.Background(), testPlan(t), Options{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	for _, o := range outcomes {
		assert.False(t, o.Degraded())
		assert.NoError(t, o.Err)
	}

	assert.Len(t, AllCandidates(outcomes), 3)
	assert.Empty(t, DegradedSources(outcomes))
}

func TestCoordinator_Search_PartialFailure(t *testing.T) {
	coordinator := newTestCoordinator(t,
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true,
			candidates: []domain.Candidate{candidate("a", domain.SourceTypePubMed)}},
		&stubSource{sourceType: domain.SourceTypeCrossRef, enabled: true,
			err: domain.NewExternalAPIError("CrossRef", 500, "boom", nil)},
	)

	outcomes, err := coordinator.Search(context.Background(), testPlan(t), Options{})
	require.NoError(t, err, "partial failure is not fatal")
	require.Len(t, outcomes, 2)

	degraded := DegradedSources(outcomes)
	assert.Equal(t, []string{"crossref"}, degraded)
	assert.Len(t, AllCandidates(outcomes), 1)
}

func TestCoordinator_Search_SlowSourceTimesOutIndependently(t *testing.T) {
	coordinator := newTestCoordinator(t,
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true,
			candidates: []domain.Candidate{candidate("fast", domain.SourceTypePubMed)}},
		&stubSource{sourceType: domain.SourceTypeOpenAlex, enabled: true,
			delay: 500 * time.Millisecond},
	)

	start := time.Now()
	outcomes, err := coordinator.Search(context.Background(), testPlan(t), Options{
		GlobalTimeout: time.Second,
		SourceTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "slow source must not hold up the fan-out past its sub-timeout")

	var slow, fast *Outcome
	for i := range outcomes {
		switch outcomes[i].Source {
		case domain.SourceTypeOpenAlex:
			slow = &outcomes[i]
		case domain.SourceTypePubMed:
			fast = &outcomes[i]
		}
	}
	require.NotNil(t, slow)
	require.NotNil(t, fast)

	assert.Equal(t, FailureTimeout, slow.Failure)
	assert.False(t, fast.Degraded())
	assert.Len(t, fast.Candidates, 1)
}

func TestCoordinator_Search_NoEnabledSources(t *testing.T) {
	coordinator := newTestCoordinator(t,
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: false},
	)

	_, err := coordinator.Search(context.Background(), testPlan(t), Options{})
	require.ErrorIs(t, err, domain.ErrAllSourcesUnavailable)
}

func TestCoordinator_Search_OutcomesSortedBySource(t *testing.T) {
	coordinator := newTestCoordinator(t,
		&stubSource{sourceType: domain.SourceTypeSemanticScholar, enabled: true},
		&stubSource{sourceType: domain.SourceTypeCochrane, enabled: true},
		&stubSource{sourceType: domain.SourceTypeEuropePMC, enabled: true},
	)

	outcomes, err := coordinator.Search(context.Background(), testPlan(t), Options{})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	assert.Equal(t, domain.SourceTypeCochrane, outcomes[0].Source)
	assert.Equal(t, domain.SourceTypeEuropePMC, outcomes[1].Source)
	assert.Equal(t, domain.SourceTypeSemanticScholar, outcomes[2].Source)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"rate limited", domain.NewRateLimitError("PubMed", time.Second), FailureRateLimited},
		{"malformed", domain.NewMalformedResponseError("PubMed", errors.New("bad xml")), FailureMalformed},
		{"upstream", domain.NewExternalAPIError("PubMed", 503, "down", nil), FailureUpstream},
		{"other", errors.New("connection refused"), FailureNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyFailure(tt.err))
		})
	}
}
