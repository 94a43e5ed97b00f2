// Package ranking scores merged candidates for topical relevance, classifies
// them into evidence tiers, and selects the final ordered citation list.
package ranking

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/observability"
	"github.com/clindex/research-pipeline-service/internal/queryplan"
)

// Scoring constants. Collected in one place so threshold changes are
// reviewable against ranking shifts.
const (
	// MinDomainTerms is the domain-gate minimum: a candidate must show at
	// least this many distinct clinical vocabulary terms in title+abstract
	// (or match a query term directly) to stay in domain.
	MinDomainTerms = 2

	// TitleMatchWeight and AbstractMatchWeight weight per-term matches in
	// the lexical overlap score. Title matches count more.
	TitleMatchWeight    = 1.0
	AbstractMatchWeight = 0.5

	// SpecificityRatio is the minimum fraction of query terms a candidate
	// must match to escape the specificity cap.
	SpecificityRatio = 0.2

	// RelaxedSpecificityRatio replaces SpecificityRatio for short queries
	// so two-token queries are not starved.
	RelaxedSpecificityRatio = 0.0

	// SpecificityCap caps the score of insufficiently specific candidates.
	SpecificityCap = 0.15

	// IntentBonus is added when the candidate shows vocabulary matching
	// the query's intent category.
	IntentBonus = 0.15

	// DescriptivePenaltyFactor multiplies the score of purely descriptive
	// candidates when the query intent is interventional.
	DescriptivePenaltyFactor = 0.5
)

// Scorer computes relevance scores for merged candidates.
type Scorer struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewScorer creates a Scorer.
func NewScorer(logger zerolog.Logger, metrics *observability.Metrics) *Scorer {
	return &Scorer{logger: logger, metrics: metrics}
}

// Score computes relevance and evidence classification for every merged
// candidate. Out-of-domain candidates get InDomain=false and score 0.
func (s *Scorer) Score(merged []domain.MergedCandidate, plan *queryplan.Plan, classifier *Classifier) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, 0, len(merged))
	outOfDomain := 0

	for _, m := range merged {
		sc := s.scoreOne(m, plan, classifier)
		if !sc.InDomain {
			outOfDomain++
			if s.metrics != nil {
				s.metrics.RecordCandidateOutOfDomain()
			}
		}
		scored = append(scored, sc)
	}

	s.logger.Debug().
		Int("candidates", len(merged)).
		Int("out_of_domain", outOfDomain).
		Msg("relevance scoring complete")

	return scored
}

// scoreOne applies the scoring stages to a single candidate: domain gate,
// lexical overlap, specificity gate, intent bonus/penalty, clamp.
func (s *Scorer) scoreOne(m domain.MergedCandidate, plan *queryplan.Plan, classifier *Classifier) domain.ScoredCandidate {
	sc := domain.ScoredCandidate{MergedCandidate: m}

	title := strings.ToLower(m.Title)
	abstract := strings.ToLower(m.Abstract)
	text := title + " " + abstract
	queryTerms := meaningfulTerms(plan.Terms)

	// Domain gate.
	if !inDomain(text, queryTerms) {
		sc.InDomain = false
		sc.RelevanceScore = 0
		sc.Tier = classifier.Classify(m)
		sc.EvidenceWeight = sc.Tier.Weight()
		return sc
	}
	sc.InDomain = true

	// Lexical overlap, with title matches weighted above abstract matches.
	score := 0.0
	matched := 0
	if len(queryTerms) > 0 {
		perTerm := 1.0 / float64(len(queryTerms))
		for _, term := range queryTerms {
			switch {
			case strings.Contains(title, term):
				score += TitleMatchWeight * perTerm
				matched++
			case strings.Contains(abstract, term):
				score += AbstractMatchWeight * perTerm
				matched++
			}
		}
	}

	// Specificity gate: generic same-domain papers that barely touch the
	// query are capped low regardless of later bonuses.
	ratio := SpecificityRatio
	if plan.ShortQuery {
		ratio = RelaxedSpecificityRatio
	}
	capped := false
	if len(queryTerms) > 0 && float64(matched)/float64(len(queryTerms)) < ratio {
		capped = true
	}

	// Intent bonus and descriptive penalty.
	if plan.Intent != domain.IntentUnknown {
		if hasIntentVocabulary(text, plan.Intent) {
			score += IntentBonus
		} else if plan.Intent == domain.IntentTreatment && isDescriptiveOnly(text) {
			score *= DescriptivePenaltyFactor
		}
	}

	if capped && score > SpecificityCap {
		score = SpecificityCap
	}

	// Clamp.
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	sc.RelevanceScore = score
	sc.Tier = classifier.Classify(m)
	sc.EvidenceWeight = sc.Tier.Weight()
	return sc
}

// inDomain applies the domain gate: enough distinct clinical vocabulary in
// the candidate text. A single clinical term plus a direct query-term match
// also passes, so queries about drugs and conditions outside the fixed
// vocabulary are not gated out; a query-term match alone never passes, or a
// non-medical query would drag its whole result set into domain.
func inDomain(text string, queryTerms []string) bool {
	found := 0
	for term := range domainTerms {
		if strings.Contains(text, term) {
			found++
			if found >= MinDomainTerms {
				return true
			}
		}
	}
	if found == 0 {
		return false
	}

	for _, term := range queryTerms {
		if strings.Contains(text, term) {
			return true
		}
	}

	return false
}

// hasIntentVocabulary reports whether the text contains vocabulary matching
// the intent category.
func hasIntentVocabulary(text string, intent domain.QueryIntent) bool {
	for _, term := range intentVocabulary[string(intent)] {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// isDescriptiveOnly reports whether the text shows descriptive/epidemiology
// markers and no interventional vocabulary.
func isDescriptiveOnly(text string) bool {
	descriptive := false
	for _, marker := range descriptiveMarkers {
		if strings.Contains(text, marker) {
			descriptive = true
			break
		}
	}
	if !descriptive {
		return false
	}
	return !hasIntentVocabulary(text, domain.IntentTreatment)
}

// meaningfulTerms filters scoring stopwords out of the plan's terms.
func meaningfulTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, stop := scoringStopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}
