package dedup

import "github.com/clindex/research-pipeline-service/internal/domain"

// sourcePriority ranks sources for metadata conflict resolution: when the
// same work arrives from several sources, the contributor with the lowest
// rank supplies the merged metadata. The ordering encodes trust in metadata
// quality: the curated clinical databases first, primary literature indexes
// next, general scholarly aggregators after, regulatory records last.
var sourcePriority = map[domain.SourceType]int{
	domain.SourceTypeCochrane:        0,
	domain.SourceTypePubMed:          1,
	domain.SourceTypeEuropePMC:       2,
	domain.SourceTypeSemanticScholar: 3,
	domain.SourceTypeOpenAlex:        4,
	domain.SourceTypeCrossRef:        5,
	domain.SourceTypeOpenFDA:         6,
}

// unknownSourceRank sorts behind every known source.
const unknownSourceRank = 100

// SourcePriority returns the metadata priority rank for a source.
// Lower wins. Unknown sources rank last.
func SourcePriority(s domain.SourceType) int {
	if rank, ok := sourcePriority[s]; ok {
		return rank
	}
	return unknownSourceRank
}
