// Package pipeline wires the research stages into one caller-facing
// operation: query plan, source fan-out, dedup, scoring, classification and
// citation selection. Failures below the pipeline boundary surface as
// degraded-source metadata; only invalid input and total fan-out failure
// propagate as errors.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clindex/research-pipeline-service/internal/dedup"
	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/fanout"
	"github.com/clindex/research-pipeline-service/internal/observability"
	"github.com/clindex/research-pipeline-service/internal/queryplan"
	"github.com/clindex/research-pipeline-service/internal/ranking"
)

// Request is one research query.
type Request struct {
	// Query is the user's natural-language question. Must be non-empty.
	Query string

	// MaxResults optionally lowers the citation cap for this request.
	// Zero keeps the configured cap. Values above the configured cap are
	// ignored.
	MaxResults int
}

// Result is the pipeline's output. The caller always receives either a
// citation list (possibly short, with LowConfidence set) or an error, never
// partial garbled data.
type Result struct {
	Citations []domain.Citation `json:"citations"`

	// DegradedSources lists sources that failed or timed out during the
	// fan-out. Non-empty means partial coverage.
	DegradedSources []string `json:"degraded_sources"`

	// LowConfidence reports that fewer citations than desired survived
	// relevance filtering.
	LowConfidence bool `json:"low_confidence"`
}

// Options tunes one Pipeline instance.
type Options struct {
	Fanout   fanout.Options
	Selector ranking.SelectorConfig
}

// Pipeline runs the full research flow for one query.
type Pipeline struct {
	builder     *queryplan.Builder
	coordinator *fanout.Coordinator
	merger      *dedup.Merger
	scorer      *ranking.Scorer
	classifier  *ranking.Classifier
	options     Options
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// New creates a Pipeline from its stage components.
func New(
	builder *queryplan.Builder,
	coordinator *fanout.Coordinator,
	merger *dedup.Merger,
	scorer *ranking.Scorer,
	classifier *ranking.Classifier,
	opts Options,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	if opts.Selector.MaxCitations == 0 {
		opts.Selector.MaxCitations = ranking.DefaultMaxCitations
	}
	return &Pipeline{
		builder:     builder,
		coordinator: coordinator,
		merger:      merger,
		scorer:      scorer,
		classifier:  classifier,
		options:     opts,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run executes the pipeline for one request. It returns
// domain.ErrInvalidInput for an unusable query and
// domain.ErrAllSourcesUnavailable when no source produced anything; every
// other failure is absorbed into Result.DegradedSources.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	logger := observability.WithPipelineContext(p.logger, runID, req.Query)
	start := time.Now()

	if p.metrics != nil {
		p.metrics.RecordRunStarted()
	}

	plan, err := p.builder.Build(req.Query)
	if err != nil {
		p.recordFailure(start)
		logger.Warn().Err(err).Msg("query rejected")
		return nil, err
	}

	outcomes, err := p.coordinator.Search(ctx, plan, p.options.Fanout)
	if err != nil {
		p.recordFailure(start)
		logger.Error().Err(err).Msg("fan-out failed")
		return nil, err
	}

	degraded := fanout.DegradedSources(outcomes)
	candidates := fanout.AllCandidates(outcomes)
	if len(candidates) == 0 && len(degraded) == len(outcomes) {
		p.recordFailure(start)
		logger.Error().
			Strs("degraded_sources", degraded).
			Msg("every source degraded")
		return nil, domain.ErrAllSourcesUnavailable
	}

	stageLog := observability.WithStageContext(logger, "dedup")
	merged := p.merger.Merge(candidates)
	stageLog.Debug().
		Int("candidates", len(candidates)).
		Int("merged", len(merged)).
		Msg("candidates deduplicated")

	stageLog = observability.WithStageContext(logger, "scoring")
	scored := p.scorer.Score(merged, plan, p.classifier)
	stageLog.Debug().Int("scored", len(scored)).Msg("candidates scored")

	selection := p.selectorFor(req).Select(scored)

	duration := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordRunCompleted(duration.Seconds(), selection.LowConfidence, len(selection.Citations))
	}
	logger.Info().
		Int("citations", len(selection.Citations)).
		Strs("degraded_sources", degraded).
		Bool("low_confidence", selection.LowConfidence).
		Dur("duration", duration).
		Msg("pipeline run complete")

	return &Result{
		Citations:       selection.Citations,
		DegradedSources: degraded,
		LowConfidence:   selection.LowConfidence,
	}, nil
}

// selectorFor builds the selector for one request, honoring a per-request
// citation cap when it is lower than the configured one.
func (p *Pipeline) selectorFor(req Request) *ranking.Selector {
	cfg := p.options.Selector
	if req.MaxResults > 0 && req.MaxResults < cfg.MaxCitations {
		cfg.MaxCitations = req.MaxResults
	}
	return ranking.NewSelector(cfg, p.logger, p.metrics)
}

func (p *Pipeline) recordFailure(start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordRunFailed(time.Since(start).Seconds())
	}
}
