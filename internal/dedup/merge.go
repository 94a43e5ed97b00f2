package dedup

import (
	"github.com/rs/zerolog"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/observability"
)

// AuthorSimilarityThreshold is the minimum first-author similarity for a
// fuzzy title match to merge. Same-surname-different-first-name pairs (0.3)
// stay separate; initial matches (0.9) and surname-only records (0.7) merge.
const AuthorSimilarityThreshold = 0.5

// Match kinds reported to metrics.
const (
	matchDOI   = "doi"
	matchPMID  = "pmid"
	matchFuzzy = "fuzzy"
)

// Merger deduplicates candidate lists.
type Merger struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewMerger creates a Merger.
func NewMerger(logger zerolog.Logger, metrics *observability.Metrics) *Merger {
	return &Merger{logger: logger, metrics: metrics}
}

// cluster accumulates candidates believed to be the same work.
type cluster struct {
	members []domain.Candidate
}

// Merge groups candidates that refer to the same work and returns one
// MergedCandidate per group. Matching precedence per candidate: normalized
// DOI, then normalized PMID, then normalized title with first-author
// similarity above AuthorSimilarityThreshold. Unmatched candidates pass
// through as singleton merges. Merge is idempotent: merging its own output
// (viewed as candidates) produces the same groups.
func (m *Merger) Merge(candidates []domain.Candidate) []domain.MergedCandidate {
	clusters := make([]*cluster, 0, len(candidates))
	doiIndex := make(map[string]int)
	pmidIndex := make(map[string]int)
	titleIndex := make(map[string][]int)

	for _, candidate := range candidates {
		doi := domain.NormalizeDOI(candidate.DOI)
		pmid := domain.NormalizePMID(candidate.PMID)
		title := domain.NormalizeTitle(candidate.Title)

		idx, match := -1, ""
		switch {
		case doi != "" && indexHas(doiIndex, doi):
			idx, match = doiIndex[doi], matchDOI
		case pmid != "" && indexHas(pmidIndex, pmid):
			idx, match = pmidIndex[pmid], matchPMID
		default:
			idx, match = m.fuzzyMatch(clusters, titleIndex, title, candidate)
		}

		if idx < 0 {
			clusters = append(clusters, &cluster{members: []domain.Candidate{candidate}})
			idx = len(clusters) - 1
		} else {
			clusters[idx].members = append(clusters[idx].members, candidate)
			if m.metrics != nil {
				m.metrics.RecordCandidateMerged(match)
			}
		}

		// Register every identifier the cluster now carries so later
		// candidates can match through any of them.
		if doi != "" {
			doiIndex[doi] = idx
		}
		if pmid != "" {
			pmidIndex[pmid] = idx
		}
		if title != "" {
			titleIndex[title] = appendUnique(titleIndex[title], idx)
		}
	}

	merged := make([]domain.MergedCandidate, 0, len(clusters))
	for _, cl := range clusters {
		merged = append(merged, buildMerged(cl.members))
	}

	m.logger.Debug().
		Int("candidates", len(candidates)).
		Int("merged", len(merged)).
		Msg("deduplication complete")

	return merged
}

// fuzzyMatch looks for an existing cluster with the same normalized title
// and a sufficiently similar first author.
func (m *Merger) fuzzyMatch(clusters []*cluster, titleIndex map[string][]int, title string, candidate domain.Candidate) (int, string) {
	if title == "" {
		return -1, ""
	}
	for _, idx := range titleIndex[title] {
		representative := clusters[idx].members[0]
		if FirstAuthorSimilarity(representative.Authors, candidate.Authors) >= AuthorSimilarityThreshold {
			return idx, matchFuzzy
		}
	}
	return -1, ""
}

// buildMerged picks the member with the best source priority as the metadata
// winner, backfills its empty fields from the remaining members in priority
// order, and accumulates the contributing sources.
func buildMerged(members []domain.Candidate) domain.MergedCandidate {
	winner := 0
	for i := 1; i < len(members); i++ {
		if SourcePriority(members[i].Source) < SourcePriority(members[winner].Source) {
			winner = i
		}
	}

	merged := domain.MergedCandidate{
		Candidate:    members[winner],
		PriorityRank: SourcePriority(members[winner].Source),
	}

	// Backfill, best priority first.
	order := make([]int, 0, len(members))
	for i := range members {
		if i != winner {
			order = append(order, i)
		}
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if SourcePriority(members[order[j]].Source) < SourcePriority(members[order[i]].Source) {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	for _, i := range order {
		backfill(&merged.Candidate, members[i])
	}

	seen := make(map[domain.SourceType]struct{}, len(members))
	for _, member := range members {
		if _, dup := seen[member.Source]; dup {
			continue
		}
		seen[member.Source] = struct{}{}
		merged.ContributingSources = append(merged.ContributingSources, member.Source)
	}

	return merged
}

// backfill copies fields the winner is missing from another contributor.
func backfill(dst *domain.Candidate, src domain.Candidate) {
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.PMID == "" {
		dst.PMID = src.PMID
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if len(dst.PublicationTypes) == 0 {
		dst.PublicationTypes = src.PublicationTypes
	}
}

func indexHas(index map[string]int, key string) bool {
	_, ok := index[key]
	return ok
}

func appendUnique(indices []int, idx int) []int {
	for _, existing := range indices {
		if existing == idx {
			return indices
		}
	}
	return append(indices, idx)
}
