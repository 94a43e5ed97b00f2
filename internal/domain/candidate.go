// Package domain defines the core value objects for the research pipeline.
//
// All entities here are request-scoped: a Candidate is created by a source
// adapter from one API response item, merged into a MergedCandidate by the
// deduplicator, scored into a ScoredCandidate, and finally projected into a
// Citation by the selector. Nothing outlives one pipeline run and nothing is
// mutated after creation; each stage produces new derived records.
package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// SourceType identifies an external bibliographic database.
type SourceType string

// Supported source types.
const (
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeEuropePMC       SourceType = "europepmc"
	SourceTypeSemanticScholar SourceType = "semanticscholar"
	SourceTypeCrossRef        SourceType = "crossref"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeOpenFDA         SourceType = "openfda"
	SourceTypeCochrane        SourceType = "cochrane"
)

// AllSourceTypes returns every supported source type in priority order
// (see SourcePriority in the dedup package for the authoritative table).
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeCochrane,
		SourceTypePubMed,
		SourceTypeEuropePMC,
		SourceTypeSemanticScholar,
		SourceTypeOpenAlex,
		SourceTypeCrossRef,
		SourceTypeOpenFDA,
	}
}

// IsValid reports whether s is a known source type.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypePubMed, SourceTypeEuropePMC, SourceTypeSemanticScholar,
		SourceTypeCrossRef, SourceTypeOpenAlex, SourceTypeOpenFDA, SourceTypeCochrane:
		return true
	}
	return false
}

// Author represents a paper author as a plain display name.
// Source adapters must flatten whatever structured author representation the
// upstream API uses into this form; downstream citation formatting relies on
// Name never containing serialized object artifacts.
type Author struct {
	Name string `json:"name"`
}

// Candidate is one paper as returned by one source, post-normalization.
// Title is always non-empty; adapters drop items without a usable title.
type Candidate struct {
	Title    string
	Abstract string
	Authors  []Author
	Journal  string
	Year     int
	DOI      string
	PMID     string
	URL      string
	Source   SourceType

	// PublicationTypes carries source-provided publication type labels
	// (e.g. "Randomized Controlled Trial", "Meta-Analysis") when the source
	// exposes them. Most sources leave this empty; evidence classification
	// falls back to title and abstract patterns.
	PublicationTypes []string

	// SourceRank is the candidate's position in the source's own relevance
	// ordering, starting at 0. Used only as a tie-break hint.
	SourceRank int
}

// HasStrongIdentifier reports whether the candidate carries a DOI or PMID.
// Candidates without either fall back to fuzzy title matching in dedup.
func (c *Candidate) HasStrongIdentifier() bool {
	return NormalizeDOI(c.DOI) != "" || NormalizePMID(c.PMID) != ""
}

// MergedCandidate is the deduplicated representative of one or more
// Candidates believed to be the same work. Metadata fields are copied from
// the contributing candidate with the best (lowest) source priority rank.
type MergedCandidate struct {
	Candidate

	// ContributingSources lists every source that returned this work.
	// Always non-empty.
	ContributingSources []SourceType

	// PriorityRank is the source priority rank of the candidate whose
	// metadata won. Lower is better.
	PriorityRank int
}

// ContributedBy reports whether the given source contributed to this merge.
func (m *MergedCandidate) ContributedBy(s SourceType) bool {
	for _, cs := range m.ContributingSources {
		if cs == s {
			return true
		}
	}
	return false
}

// ScoredCandidate is a MergedCandidate plus relevance and evidence scoring.
type ScoredCandidate struct {
	MergedCandidate

	// RelevanceScore is the topical relevance in [0, 1].
	RelevanceScore float64

	// InDomain is false for candidates with no medical vocabulary signal.
	// Out-of-domain candidates always carry a zero score and are never
	// selected.
	InDomain bool

	// Tier is the evidence-hierarchy classification.
	Tier EvidenceTier

	// EvidenceWeight is the numeric weight of Tier, cached at scoring time.
	EvidenceWeight int
}

// Citation is the display-ready output unit handed to the answer synthesizer
// and ultimately the user. Ordering in a citation list is significant.
type Citation struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Journal    string   `json:"journal,omitempty"`
	Year       int      `json:"year,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	PMID       string   `json:"pmid,omitempty"`
	URL        string   `json:"url,omitempty"`
	Tier       string   `json:"evidence_tier"`
	Confidence float64  `json:"relevance_score"`
}

// QueryIntent categorizes what the user is asking for. It drives the intent
// bonus in relevance scoring.
type QueryIntent string

// Recognized intent categories.
const (
	IntentUnknown    QueryIntent = "unknown"
	IntentTreatment  QueryIntent = "treatment"
	IntentDiagnosis  QueryIntent = "diagnosis"
	IntentPrevention QueryIntent = "prevention"
	IntentPrognosis  QueryIntent = "prognosis"
)

var (
	doiPattern  = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
	pmidPattern = regexp.MustCompile(`^\d{1,9}$`)
)

// NormalizeDOI lowercases a DOI, strips resolver prefixes and surrounding
// whitespace, and returns the empty string when the remainder is not a
// syntactically valid DOI.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	if !doiPattern.MatchString(doi) {
		return ""
	}
	return doi
}

// NormalizePMID strips common prefixes and whitespace from a PubMed ID and
// returns the empty string when the remainder is not all digits.
func NormalizePMID(pmid string) string {
	pmid = strings.TrimSpace(strings.ToLower(pmid))
	pmid = strings.TrimPrefix(pmid, "pmid:")
	pmid = strings.TrimPrefix(pmid, "pubmed:")
	pmid = strings.TrimLeft(pmid, "0")
	if pmid == "" || !pmidPattern.MatchString(pmid) {
		return ""
	}
	return pmid
}

// NormalizeTitle lowercases a title, drops all non-alphanumeric runes and
// collapses whitespace, producing a stable key for fuzzy title comparison.
func NormalizeTitle(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))
	prevSpace := true

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case !prevSpace:
			sb.WriteRune(' ')
			prevSpace = true
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

// AuthorNames flattens an author list to plain display-name strings.
func AuthorNames(authors []Author) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}
