package ranking

import (
	"regexp"
	"strings"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

// trialRegistryPattern matches ClinicalTrials.gov registry identifiers,
// a strong signal that a work reports a registered trial.
var trialRegistryPattern = regexp.MustCompile(`\bNCT\d{8}\b`)

// publicationTypeTiers maps source-provided publication type labels
// (normalized to lowercase) to tiers. These labels are curated by the
// source and outrank free-text pattern matching.
var publicationTypeTiers = map[string]domain.EvidenceTier{
	"systematic review":           domain.TierSystematicReview,
	"meta-analysis":               domain.TierSystematicReview,
	"metaanalysis":                domain.TierSystematicReview,
	"review-article":              domain.TierSystematicReview,
	"practice guideline":          domain.TierGuideline,
	"guideline":                   domain.TierGuideline,
	"randomized controlled trial": domain.TierRCT,
	"clinical trial":              domain.TierRCT,
	"clinicaltrial":               domain.TierRCT,
	"observational study":         domain.TierCohort,
	"comparative study":           domain.TierCohort,
	"case reports":                domain.TierCaseReport,
	"case report":                 domain.TierCaseReport,
	"casereport":                  domain.TierCaseReport,
	"editorial":                   domain.TierCaseReport,
	"comment":                     domain.TierCaseReport,
	"letter":                      domain.TierCaseReport,
	"drug label":                  domain.TierCaseReport,
}

// tierPatterns are checked against title+venue text, highest tier first, so
// a "systematic review of randomized trials" classifies as the review.
var tierPatterns = []struct {
	tier     domain.EvidenceTier
	patterns []string
}{
	{domain.TierSystematicReview, []string{
		"systematic review", "meta-analysis", "metaanalysis", "meta analysis",
		"pooled analysis", "umbrella review", "cochrane",
	}},
	{domain.TierGuideline, []string{
		"guideline", "consensus statement", "practice parameter",
		"recommendations for", "position statement",
	}},
	{domain.TierRCT, []string{
		"randomized controlled trial", "randomised controlled trial",
		"randomized clinical trial", "randomised clinical trial",
		"randomized trial", "randomised trial", "double-blind",
		"placebo-controlled",
	}},
	{domain.TierCohort, []string{
		"cohort study", "cohort analysis", "case-control", "longitudinal study",
		"prospective study", "retrospective study", "follow-up study",
	}},
	{domain.TierCrossSectional, []string{
		"cross-sectional", "cross sectional", "prevalence study", "survey of",
	}},
}

// Classifier assigns evidence tiers.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the candidate's evidence tier. Source-provided
// publication types are checked first, then title and venue patterns, then
// the trial-registry identifier. Unclassifiable candidates default to the
// lowest tier.
func (c *Classifier) Classify(m domain.MergedCandidate) domain.EvidenceTier {
	best := domain.TierCaseReport
	classified := false

	for _, pt := range m.PublicationTypes {
		if tier, ok := publicationTypeTiers[strings.ToLower(strings.TrimSpace(pt))]; ok {
			if !classified || tier > best {
				best = tier
				classified = true
			}
		}
	}
	if classified {
		return best
	}

	text := strings.ToLower(m.Title + " " + m.Journal)
	for _, group := range tierPatterns {
		for _, pattern := range group.patterns {
			if strings.Contains(text, pattern) {
				return group.tier
			}
		}
	}

	// Registry identifiers can live in the abstract only.
	if trialRegistryPattern.MatchString(m.Title) || trialRegistryPattern.MatchString(m.Abstract) {
		return domain.TierRCT
	}

	return domain.TierCaseReport
}
