package ranking

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/observability"
)

const (
	// DefaultMaxCitations caps the final citation list.
	DefaultMaxCitations = 8

	// DefaultRelevanceFloor excludes weak matches even when the cap is not
	// reached. Under-filling is preferred over padding with weak matches.
	DefaultRelevanceFloor = 0.35

	// DefaultLowConfidenceMinimum is the desired minimum citation count;
	// returning fewer flags the result as low confidence.
	DefaultLowConfidenceMinimum = 3
)

// SelectorConfig tunes selection.
type SelectorConfig struct {
	// MaxCitations caps the result length. Zero means DefaultMaxCitations.
	MaxCitations int

	// RelevanceFloor excludes candidates scoring below it. Zero means
	// DefaultRelevanceFloor.
	RelevanceFloor float64

	// LowConfidenceMinimum flags results with fewer citations than this.
	// Zero means DefaultLowConfidenceMinimum.
	LowConfidenceMinimum int
}

func (c *SelectorConfig) applyDefaults() {
	if c.MaxCitations == 0 {
		c.MaxCitations = DefaultMaxCitations
	}
	if c.RelevanceFloor == 0 {
		c.RelevanceFloor = DefaultRelevanceFloor
	}
	if c.LowConfidenceMinimum == 0 {
		c.LowConfidenceMinimum = DefaultLowConfidenceMinimum
	}
}

// Selection is the selector's output.
type Selection struct {
	// Citations is the final ordered citation list.
	Citations []domain.Citation

	// LowConfidence reports that fewer citations than the desired minimum
	// survived the relevance floor.
	LowConfidence bool
}

// Selector orders scored candidates and produces the final citation list.
type Selector struct {
	config  SelectorConfig
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewSelector creates a Selector.
func NewSelector(cfg SelectorConfig, logger zerolog.Logger, metrics *observability.Metrics) *Selector {
	cfg.applyDefaults()
	return &Selector{config: cfg, logger: logger, metrics: metrics}
}

// Select filters out-of-domain and below-floor candidates, orders the rest
// by evidence weight, then relevance, then recency, and returns at most
// MaxCitations citations. The floor is never lowered to reach the cap; an
// under-filled result is flagged low confidence instead.
func (s *Selector) Select(scored []domain.ScoredCandidate) Selection {
	eligible := make([]domain.ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if !sc.InDomain {
			continue
		}
		if sc.RelevanceScore < s.config.RelevanceFloor {
			if s.metrics != nil {
				s.metrics.RecordCandidateBelowFloor()
			}
			continue
		}
		eligible = append(eligible, sc)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.EvidenceWeight != b.EvidenceWeight {
			return a.EvidenceWeight > b.EvidenceWeight
		}
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.Year > b.Year
	})

	if len(eligible) > s.config.MaxCitations {
		eligible = eligible[:s.config.MaxCitations]
	}

	citations := make([]domain.Citation, 0, len(eligible))
	for _, sc := range eligible {
		citations = append(citations, toCitation(sc))
	}

	lowConfidence := len(citations) < s.config.LowConfidenceMinimum

	s.logger.Debug().
		Int("scored", len(scored)).
		Int("selected", len(citations)).
		Bool("low_confidence", lowConfidence).
		Msg("citation selection complete")

	return Selection{
		Citations:     citations,
		LowConfidence: lowConfidence,
	}
}

// toCitation converts a scored candidate into its display form.
func toCitation(sc domain.ScoredCandidate) domain.Citation {
	return domain.Citation{
		Title:      sc.Title,
		Authors:    domain.AuthorNames(sc.Authors),
		Journal:    sc.Journal,
		Year:       sc.Year,
		DOI:        sc.DOI,
		PMID:       sc.PMID,
		URL:        sc.URL,
		Tier:       sc.Tier.Label(),
		Confidence: sc.RelevanceScore,
	}
}
