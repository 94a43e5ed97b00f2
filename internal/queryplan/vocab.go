package queryplan

import "github.com/clindex/research-pipeline-service/internal/domain"

// vocabVersion identifies the synonym and intent vocabulary revision so plan
// changes can be correlated with ranking shifts in production.
const vocabVersion = "2024-06"

// maxSynonymsPerConcept bounds OR-expansion so recall gains do not dilute
// precision. Each recognized concept contributes at most this many
// alternatives in addition to the original term.
const maxSynonymsPerConcept = 3

// conceptSynonyms maps recognized clinical concepts to bounded synonym sets.
// Keys are lowercase single tokens or space-joined bigrams. Values are ranked
// most-useful-first; only the first maxSynonymsPerConcept are used.
var conceptSynonyms = map[string][]string{
	// Drug classes and common agents.
	"statins":        {"hmg-coa reductase inhibitors", "atorvastatin", "rosuvastatin"},
	"statin":         {"hmg-coa reductase inhibitors", "atorvastatin", "rosuvastatin"},
	"metformin":      {"biguanide", "glucophage"},
	"semaglutide":    {"glp-1 receptor agonist", "ozempic", "wegovy"},
	"glp-1":          {"glucagon-like peptide-1", "incretin"},
	"sglt2":          {"sodium-glucose cotransporter 2", "empagliflozin", "dapagliflozin"},
	"anticoagulants": {"anticoagulation", "warfarin", "direct oral anticoagulant"},
	"anticoagulant":  {"anticoagulation", "warfarin", "direct oral anticoagulant"},
	"aspirin":        {"acetylsalicylic acid", "antiplatelet"},
	"beta-blockers":  {"beta adrenergic antagonists", "metoprolol", "carvedilol"},
	"ace inhibitors": {"angiotensin-converting enzyme inhibitors", "lisinopril", "enalapril"},
	"antibiotics":    {"antimicrobial", "antibacterial"},
	"antibiotic":     {"antimicrobial", "antibacterial"},

	// Diseases and conditions.
	"diabetes":            {"diabetes mellitus", "type 2 diabetes", "hyperglycemia"},
	"hypertension":        {"high blood pressure", "elevated blood pressure"},
	"heart failure":       {"cardiac failure", "hfref", "hfpef"},
	"myocardial":          {"heart attack", "cardiac"},
	"stroke":              {"cerebrovascular accident", "ischemic stroke"},
	"atrial fibrillation": {"afib", "af"},
	"copd":                {"chronic obstructive pulmonary disease", "emphysema"},
	"asthma":              {"bronchial asthma", "reactive airway disease"},
	"depression":          {"major depressive disorder", "mdd"},
	"obesity":             {"overweight", "adiposity"},
	"osteoporosis":        {"bone density loss", "fragility fracture"},
	"cancer":              {"neoplasm", "malignancy", "carcinoma"},
	"kidney disease":      {"renal disease", "chronic kidney disease", "nephropathy"},
	"covid-19":            {"sars-cov-2", "coronavirus disease 2019"},
	"pneumonia":           {"lower respiratory tract infection", "lung infection"},
	"sepsis":              {"septic shock", "bloodstream infection"},
}

// intentTriggers maps lowercase trigger tokens to the intent they signal.
// Listed longest-phrase-first at lookup time; single tokens here.
var intentTriggers = map[string]domain.QueryIntent{
	"treatment":    domain.IntentTreatment,
	"treat":        domain.IntentTreatment,
	"therapy":      domain.IntentTreatment,
	"therapeutic":  domain.IntentTreatment,
	"management":   domain.IntentTreatment,
	"intervention": domain.IntentTreatment,
	"efficacy":     domain.IntentTreatment,
	"drug":         domain.IntentTreatment,
	"medication":   domain.IntentTreatment,
	"dose":         domain.IntentTreatment,
	"dosing":       domain.IntentTreatment,

	"diagnosis":   domain.IntentDiagnosis,
	"diagnose":    domain.IntentDiagnosis,
	"diagnostic":  domain.IntentDiagnosis,
	"screening":   domain.IntentDiagnosis,
	"detection":   domain.IntentDiagnosis,
	"biomarker":   domain.IntentDiagnosis,
	"sensitivity": domain.IntentDiagnosis,
	"specificity": domain.IntentDiagnosis,

	"prevention":   domain.IntentPrevention,
	"prevent":      domain.IntentPrevention,
	"preventive":   domain.IntentPrevention,
	"prophylaxis":  domain.IntentPrevention,
	"prophylactic": domain.IntentPrevention,
	"vaccination":  domain.IntentPrevention,
	"vaccine":      domain.IntentPrevention,

	"prognosis":   domain.IntentPrognosis,
	"prognostic":  domain.IntentPrognosis,
	"survival":    domain.IntentPrognosis,
	"mortality":   domain.IntentPrognosis,
	"outcome":     domain.IntentPrognosis,
	"outcomes":    domain.IntentPrognosis,
	"recurrence":  domain.IntentPrognosis,
	"progression": domain.IntentPrognosis,
}

// stopwords are dropped when extracting meaningful query terms.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "what": {}, "when": {}, "which": {}, "with": {},
	"why": {}, "should": {}, "could": {}, "would": {}, "patients": {},
	"patient": {}, "use": {}, "used": {}, "using": {}, "effect": {},
	"effects": {}, "versus": {}, "vs": {},
}
