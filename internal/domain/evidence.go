package domain

// EvidenceTier is a discrete rank of study-design quality, ordered from the
// strongest evidence (systematic reviews and meta-analyses) down to case
// reports and expert opinion. The tier dominates relevance score in final
// citation ordering.
type EvidenceTier int

// Evidence tiers from strongest to weakest. The zero value is the lowest
// tier so that unclassifiable candidates default safely.
const (
	TierCaseReport EvidenceTier = iota
	TierCrossSectional
	TierCohort
	TierRCT
	TierGuideline
	TierSystematicReview
)

// tierWeights maps each tier to its numeric weight. Weights are strictly
// monotonic with tier and differ by an order of magnitude between top and
// bottom, so a systematic review with a mediocre relevance score still
// outranks a perfectly relevant case report.
var tierWeights = map[EvidenceTier]int{
	TierSystematicReview: 1000,
	TierGuideline:        700,
	TierRCT:              400,
	TierCohort:           200,
	TierCrossSectional:   100,
	TierCaseReport:       50,
}

// tierLabels maps tiers to display labels used in citations.
var tierLabels = map[EvidenceTier]string{
	TierSystematicReview: "Systematic Review / Meta-Analysis",
	TierGuideline:        "Clinical Guideline",
	TierRCT:              "Randomized Controlled Trial",
	TierCohort:           "Cohort / Case-Control Study",
	TierCrossSectional:   "Cross-Sectional Study",
	TierCaseReport:       "Case Report / Expert Opinion",
}

// Weight returns the numeric ordering weight for the tier.
func (t EvidenceTier) Weight() int {
	if w, ok := tierWeights[t]; ok {
		return w
	}
	return tierWeights[TierCaseReport]
}

// Label returns the human-readable label for the tier.
func (t EvidenceTier) Label() string {
	if l, ok := tierLabels[t]; ok {
		return l
	}
	return tierLabels[TierCaseReport]
}
