// Package queryplan turns a raw user question into per-source query strings.
//
// The builder extracts meaningful terms, detects the query's intent category,
// expands recognized clinical concepts with a bounded set of synonyms, and
// renders the result in each source's preferred syntax: boolean expressions
// for sources with structured search, fielded queries for Europe PMC style
// sources, and cleaned free text for the rest. Building never hard-fails on
// non-empty input; unclassifiable queries fall back to the verbatim input for
// every source.
package queryplan

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

const (
	// MinQueryLength is the minimum accepted raw query length.
	MinQueryLength = 1

	// MaxQueryLength is the maximum accepted raw query length.
	MaxQueryLength = 500

	// shortQueryTokens marks queries whose meaningful-term count is at or
	// below this as "short"; downstream scoring relaxes its specificity
	// gate for them.
	shortQueryTokens = 2
)

// Concept is a recognized clinical term together with its bounded synonym
// expansion.
type Concept struct {
	Term     string
	Synonyms []string
}

// Plan is the per-source rendering of one user query.
type Plan struct {
	// RawQuery is the original user input, trimmed.
	RawQuery string

	// Terms are the meaningful lowercase tokens after stopword removal.
	Terms []string

	// Concepts are the recognized clinical concepts with their expansions.
	Concepts []Concept

	// Intent is the detected intent category.
	Intent domain.QueryIntent

	// ShortQuery reports that the query had very few meaningful terms, so
	// scoring should relax its specificity gate.
	ShortQuery bool

	// SourceQueries holds the rendered query string per source type.
	SourceQueries map[domain.SourceType]string

	// VocabVersion records the vocabulary revision the plan was built with.
	VocabVersion string
}

// QueryFor returns the rendered query for the given source, falling back to
// the raw query when the source has no specific rendering.
func (p *Plan) QueryFor(source domain.SourceType) string {
	if q, ok := p.SourceQueries[source]; ok && q != "" {
		return q
	}
	return p.RawQuery
}

// Builder constructs query plans.
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder creates a query plan builder.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build constructs a Plan for the given raw query. It returns
// domain.ErrInvalidInput (wrapped in a ValidationError) for empty or
// oversized input; any non-empty valid-length input always yields a plan.
func (b *Builder) Build(rawQuery string) (*Plan, error) {
	query := strings.TrimSpace(rawQuery)
	if len(query) < MinQueryLength {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if len(query) > MaxQueryLength {
		return nil, domain.NewValidationError("query", "exceeds maximum length")
	}

	terms := extractTerms(query)
	concepts := recognizeConcepts(query, terms)
	intent := detectIntent(terms)

	plan := &Plan{
		RawQuery:     query,
		Terms:        terms,
		Concepts:     concepts,
		Intent:       intent,
		ShortQuery:   len(terms) <= shortQueryTokens,
		VocabVersion: vocabVersion,
	}
	plan.SourceQueries = renderSourceQueries(plan)

	b.logger.Debug().
		Str("query", query).
		Int("terms", len(terms)).
		Int("concepts", len(concepts)).
		Str("intent", string(intent)).
		Msg("query plan built")

	return plan, nil
}

// extractTerms lowercases the query, strips punctuation, and removes
// stopwords. The original token order is preserved.
func extractTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strings.Trim(f, ".,;:!?()[]{}\"'")
		if token == "" {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// recognizeConcepts finds vocabulary concepts in the query. Bigram concepts
// are matched against the raw lowercased query so "heart failure" is found
// even though terms are individual tokens.
func recognizeConcepts(query string, terms []string) []Concept {
	lowered := strings.ToLower(query)
	seen := make(map[string]struct{})
	var concepts []Concept

	addConcept := func(term string, synonyms []string) {
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		if len(synonyms) > maxSynonymsPerConcept {
			synonyms = synonyms[:maxSynonymsPerConcept]
		}
		concepts = append(concepts, Concept{Term: term, Synonyms: synonyms})
	}

	for key, synonyms := range conceptSynonyms {
		if !strings.Contains(key, " ") {
			continue
		}
		if strings.Contains(lowered, key) {
			addConcept(key, synonyms)
		}
	}

	for _, term := range terms {
		if synonyms, ok := conceptSynonyms[term]; ok {
			addConcept(term, synonyms)
		}
	}

	return concepts
}

// detectIntent returns the first intent category triggered by a query term.
// Queries without any trigger term report IntentUnknown.
func detectIntent(terms []string) domain.QueryIntent {
	counts := make(map[domain.QueryIntent]int)
	for _, term := range terms {
		if intent, ok := intentTriggers[term]; ok {
			counts[intent]++
		}
	}

	best := domain.IntentUnknown
	bestCount := 0
	// Iterate in a fixed order so ties resolve deterministically.
	for _, intent := range []domain.QueryIntent{
		domain.IntentTreatment,
		domain.IntentPrevention,
		domain.IntentDiagnosis,
		domain.IntentPrognosis,
	} {
		if counts[intent] > bestCount {
			best = intent
			bestCount = counts[intent]
		}
	}

	return best
}

// renderSourceQueries produces the per-source query strings.
func renderSourceQueries(plan *Plan) map[domain.SourceType]string {
	boolean := renderBoolean(plan)
	fielded := renderFielded(plan)
	freeText := renderFreeText(plan)

	return map[domain.SourceType]string{
		domain.SourceTypePubMed:          boolean,
		domain.SourceTypeCochrane:        boolean,
		domain.SourceTypeEuropePMC:       fielded,
		domain.SourceTypeSemanticScholar: freeText,
		domain.SourceTypeOpenAlex:        freeText,
		domain.SourceTypeCrossRef:        freeText,
		domain.SourceTypeOpenFDA:         renderOpenFDA(plan),
	}
}

// renderBoolean renders a boolean AND-of-ORs query: each recognized concept
// becomes a parenthesized OR-group of the term and its synonyms; remaining
// terms are ANDed verbatim.
func renderBoolean(plan *Plan) string {
	if len(plan.Terms) == 0 {
		return plan.RawQuery
	}

	conceptTokens := make(map[string]struct{})
	var clauses []string
	for _, c := range plan.Concepts {
		for _, tok := range strings.Fields(c.Term) {
			conceptTokens[tok] = struct{}{}
		}
		alternatives := make([]string, 0, 1+len(c.Synonyms))
		alternatives = append(alternatives, quoteIfPhrase(c.Term))
		for _, s := range c.Synonyms {
			alternatives = append(alternatives, quoteIfPhrase(s))
		}
		clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
	}

	for _, term := range plan.Terms {
		if _, covered := conceptTokens[term]; covered {
			continue
		}
		clauses = append(clauses, term)
	}

	if len(clauses) == 0 {
		return plan.RawQuery
	}
	return strings.Join(clauses, " AND ")
}

// renderFielded renders a title/abstract fielded query in Europe PMC syntax.
func renderFielded(plan *Plan) string {
	boolean := renderBoolean(plan)
	if boolean == plan.RawQuery {
		return plan.RawQuery
	}
	return boolean
}

// renderFreeText joins the meaningful terms plus one synonym per concept.
func renderFreeText(plan *Plan) string {
	if len(plan.Terms) == 0 {
		return plan.RawQuery
	}

	parts := make([]string, 0, len(plan.Terms)+len(plan.Concepts))
	parts = append(parts, plan.Terms...)
	for _, c := range plan.Concepts {
		if len(c.Synonyms) > 0 && !strings.Contains(c.Synonyms[0], " ") {
			parts = append(parts, c.Synonyms[0])
		}
	}
	return strings.Join(parts, " ")
}

// renderOpenFDA renders an openFDA label search restricted to the
// indications section, which is where condition and drug mentions live.
func renderOpenFDA(plan *Plan) string {
	if len(plan.Terms) == 0 {
		return plan.RawQuery
	}

	terms := make([]string, 0, len(plan.Terms))
	for _, t := range plan.Terms {
		terms = append(terms, `indications_and_usage:"`+t+`"`)
	}
	return strings.Join(terms, " AND ")
}

// quoteIfPhrase wraps multi-word alternatives in quotes for boolean syntax.
func quoteIfPhrase(s string) string {
	if strings.Contains(s, " ") {
		return `"` + s + `"`
	}
	return s
}
