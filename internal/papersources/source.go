// Package papersources provides interfaces and types for bibliographic
// search source clients.
//
// This package defines the foundational abstractions that all source adapter
// implementations must follow. Each external database (PubMed, Europe PMC,
// CrossRef, etc.) implements the SearchSource interface, allowing the fan-out
// coordinator to query many sources concurrently with a unified API. Each
// adapter normalizes its source's response schema into domain.Candidate
// records; nothing source-specific leaks past the adapter boundary.
//
// Example usage:
//
//	source := crossref.New(cfg)
//	params := papersources.SearchParams{
//		Query:      "migraine prophylaxis",
//		MaxResults: 25,
//	}
//	result, err := source.Search(ctx, params)
package papersources

import (
	"context"
	"time"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

// SearchParams defines the parameters for one source search.
type SearchParams struct {
	// Query is the source-specific search string produced by the query
	// builder (required). Sources supporting structured syntax receive a
	// boolean/fielded query; free-text sources receive a cleaned string.
	Query string

	// MaxResults limits the number of candidates returned in a single
	// request. Sources may have their own maximum limits that override this
	// value. A value of 0 uses the source's default limit.
	MaxResults int
}

// SearchResult contains the candidates from one source search.
type SearchResult struct {
	// Candidates contains the normalized candidates returned by the search,
	// in the source's own relevance order. May be empty.
	Candidates []domain.Candidate

	// TotalResults is the total number of items matching the query upstream,
	// regardless of the MaxResults cap. May be an estimate.
	TotalResults int

	// Source identifies which source produced these candidates.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search, including
	// network latency and response parsing.
	SearchDuration time.Duration
}

// SearchSource defines the interface that all source adapters must implement.
type SearchSource interface {
	// Search queries the source for candidates matching the given
	// parameters. The context should be used for cancellation and deadline
	// propagation.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting before each upstream request
	//   - Normalize source-specific response items into domain.Candidate
	//   - Skip unparseable items rather than failing the whole search
	//   - Convert non-2xx responses into domain.ExternalAPIError
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this source.
	// Used for attribution, deduplication, and degraded-source reporting.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	// Used for logging, metrics, and display purposes.
	Name() string

	// IsEnabled returns whether this source is currently enabled and
	// available for searches. A source may be disabled by configuration or
	// a missing API key.
	IsEnabled() bool
}
