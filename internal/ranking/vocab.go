package ranking

// vocabVersion identifies the scoring vocabulary revision.
const vocabVersion = "2024-06"

// domainTerms is the clinical/medical vocabulary used by the domain gate.
// A candidate whose title+abstract contains too few of these is considered
// out of domain and never selected.
var domainTerms = map[string]struct{}{
	"patient": {}, "patients": {}, "clinical": {}, "treatment": {},
	"therapy": {}, "disease": {}, "diagnosis": {}, "symptom": {},
	"symptoms": {}, "trial": {}, "randomized": {}, "randomised": {},
	"placebo": {}, "dose": {}, "dosage": {}, "drug": {}, "medication": {},
	"efficacy": {}, "safety": {}, "adverse": {}, "outcome": {},
	"outcomes": {}, "mortality": {}, "morbidity": {}, "prevalence": {},
	"incidence": {}, "cohort": {}, "meta-analysis": {}, "systematic": {},
	"intervention": {}, "prophylaxis": {}, "screening": {}, "prognosis": {},
	"syndrome": {}, "chronic": {}, "acute": {}, "therapeutic": {},
	"medicine": {}, "medical": {}, "health": {}, "hospital": {},
	"physician": {}, "nursing": {}, "surgery": {}, "surgical": {},
	"cancer": {}, "tumor": {}, "cardiovascular": {}, "cardiac": {},
	"diabetes": {}, "hypertension": {}, "infection": {}, "vaccine": {},
	"biomarker": {}, "risk": {}, "prescribing": {}, "contraindication": {},
	"guideline": {}, "guidelines": {}, "pharmacology": {}, "pharmacokinetics": {},
}

// intentVocabulary maps intent categories to candidate vocabulary that earns
// the intent bonus when the query expresses that intent.
var intentVocabulary = map[string][]string{
	"treatment":  {"trial", "therapy", "treatment", "intervention", "efficacy", "randomized", "randomised", "dose"},
	"prevention": {"prevention", "prophylaxis", "vaccine", "vaccination", "preventive", "screening"},
	"diagnosis":  {"diagnostic", "diagnosis", "sensitivity", "specificity", "biomarker", "detection", "screening"},
	"prognosis":  {"prognosis", "prognostic", "survival", "mortality", "follow-up", "outcome", "outcomes"},
}

// descriptiveMarkers indicate a purely descriptive or epidemiological study.
// When the query intent is clearly interventional, candidates showing these
// markers and no interventional vocabulary are penalized.
var descriptiveMarkers = []string{
	"prevalence", "cross-sectional", "survey", "descriptive",
	"epidemiology", "epidemiological", "observational study",
}

// scoringStopwords are dropped from the query before term matching.
var scoringStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "what": {}, "when": {}, "which": {}, "with": {},
	"why": {}, "should": {}, "could": {}, "would": {},
}
