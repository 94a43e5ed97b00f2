// Package fanout runs one search per enabled source concurrently and
// collects typed per-source outcomes.
//
// A single slow or failing source never blocks the others: each search runs
// under its own sub-timeout inside the caller's deadline, and failures are
// classified and recorded as degraded rather than propagated. The
// coordinator returns once every source has settled or the overall context
// is done.
package fanout

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/observability"
	"github.com/clindex/research-pipeline-service/internal/papersources"
	"github.com/clindex/research-pipeline-service/internal/queryplan"
)

const (
	// DefaultGlobalTimeout bounds the whole fan-out.
	DefaultGlobalTimeout = 12 * time.Second

	// DefaultSourceTimeout bounds each individual source search.
	DefaultSourceTimeout = 8 * time.Second

	// DefaultMaxResultsPerSource is requested from each source when the
	// caller does not specify a cap.
	DefaultMaxResultsPerSource = 25
)

// FailureKind classifies why a source contributed no candidates.
type FailureKind string

// Recognized failure kinds.
const (
	FailureNone        FailureKind = ""
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureMalformed   FailureKind = "malformed"
	FailureNetwork     FailureKind = "network"
	FailureUpstream    FailureKind = "upstream"
)

// Outcome is the result of one source's search.
type Outcome struct {
	// Source identifies which adapter produced this outcome.
	Source domain.SourceType

	// Candidates holds the normalized results. Empty on failure.
	Candidates []domain.Candidate

	// Err is the error that stopped the search, nil on success.
	Err error

	// Failure classifies Err for reporting and metrics.
	Failure FailureKind

	// Duration is how long the search took.
	Duration time.Duration
}

// Degraded reports whether the source failed to contribute.
func (o *Outcome) Degraded() bool {
	return o.Err != nil
}

// Options tune one fan-out invocation.
type Options struct {
	// GlobalTimeout bounds the whole fan-out. Zero means
	// DefaultGlobalTimeout.
	GlobalTimeout time.Duration

	// SourceTimeout bounds each source search. Zero means
	// DefaultSourceTimeout.
	SourceTimeout time.Duration

	// MaxResultsPerSource caps results requested from each source. Zero
	// means DefaultMaxResultsPerSource.
	MaxResultsPerSource int
}

func (o *Options) applyDefaults() {
	if o.GlobalTimeout == 0 {
		o.GlobalTimeout = DefaultGlobalTimeout
	}
	if o.SourceTimeout == 0 {
		o.SourceTimeout = DefaultSourceTimeout
	}
	if o.MaxResultsPerSource == 0 {
		o.MaxResultsPerSource = DefaultMaxResultsPerSource
	}
}

// Coordinator fans a query plan out across a set of sources.
type Coordinator struct {
	registry *papersources.Registry
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewCoordinator creates a fan-out coordinator over the given registry.
func NewCoordinator(registry *papersources.Registry, logger zerolog.Logger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// Search runs the plan against every enabled source concurrently and returns
// one Outcome per source, ordered by source type for determinism. It returns
// domain.ErrAllSourcesUnavailable only when no source is enabled.
func (c *Coordinator) Search(ctx context.Context, plan *queryplan.Plan, opts Options) ([]Outcome, error) {
	opts.applyDefaults()

	sources := c.registry.EnabledSources()
	if len(sources) == 0 {
		return nil, domain.ErrAllSourcesUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, opts.GlobalTimeout)
	defer cancel()

	outcomes := make([]Outcome, len(sources))
	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, source papersources.SearchSource) {
			defer wg.Done()
			outcomes[i] = c.searchOne(ctx, source, plan, opts)
		}(i, source)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Source < outcomes[j].Source
	})

	return outcomes, nil
}

// searchOne runs a single source under its sub-timeout and classifies any
// failure.
func (c *Coordinator) searchOne(ctx context.Context, source papersources.SearchSource, plan *queryplan.Plan, opts Options) Outcome {
	logger := observability.WithSourceContext(c.logger, string(source.SourceType()))

	ctx, cancel := context.WithTimeout(ctx, opts.SourceTimeout)
	defer cancel()

	c.metrics.RecordSearchStarted(string(source.SourceType()))
	start := time.Now()

	result, err := source.Search(ctx, papersources.SearchParams{
		Query:      plan.QueryFor(source.SourceType()),
		MaxResults: opts.MaxResultsPerSource,
	})
	duration := time.Since(start)

	if err != nil {
		kind := classifyFailure(err)
		c.metrics.RecordSearchFailed(string(source.SourceType()), string(kind), duration.Seconds())
		c.metrics.RecordSourceDegraded(string(source.SourceType()))
		if kind == FailureRateLimited {
			c.metrics.RecordSourceRateLimited(string(source.SourceType()))
		}
		logger.Warn().
			Err(err).
			Str("failure_kind", string(kind)).
			Dur("duration", duration).
			Msg("source search failed")
		return Outcome{
			Source:   source.SourceType(),
			Err:      err,
			Failure:  kind,
			Duration: duration,
		}
	}

	c.metrics.RecordSearchCompleted(string(source.SourceType()), len(result.Candidates), duration.Seconds())
	logger.Debug().
		Int("candidates", len(result.Candidates)).
		Int("total_results", result.TotalResults).
		Dur("duration", duration).
		Msg("source search completed")

	return Outcome{
		Source:     source.SourceType(),
		Candidates: result.Candidates,
		Duration:   duration,
	}
}

// classifyFailure maps an adapter error onto a FailureKind.
func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, domain.ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, domain.ErrMalformedResponse):
		return FailureMalformed
	}

	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) {
		return FailureUpstream
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return FailureTimeout
		}
		return FailureNetwork
	}

	return FailureNetwork
}

// DegradedSources lists the source types that failed, in outcome order.
func DegradedSources(outcomes []Outcome) []string {
	var degraded []string
	for i := range outcomes {
		if outcomes[i].Degraded() {
			degraded = append(degraded, string(outcomes[i].Source))
		}
	}
	return degraded
}

// AllCandidates flattens the successful outcomes' candidates.
func AllCandidates(outcomes []Outcome) []domain.Candidate {
	total := 0
	for i := range outcomes {
		total += len(outcomes[i].Candidates)
	}

	candidates := make([]domain.Candidate, 0, total)
	for i := range outcomes {
		candidates = append(candidates, outcomes[i].Candidates...)
	}
	return candidates
}
