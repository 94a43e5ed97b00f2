package queryplan

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

func newTestBuilder() *Builder {
	return NewBuilder(zerolog.Nop())
}

func TestBuilder_Build_ConceptExpansion(t *testing.T) {
	plan, err := newTestBuilder().Build("statins for primary prevention of stroke")
	require.NoError(t, err)

	assert.Equal(t, domain.IntentPrevention, plan.Intent)
	assert.False(t, plan.ShortQuery)

	var conceptTerms []string
	for _, c := range plan.Concepts {
		conceptTerms = append(conceptTerms, c.Term)
		assert.LessOrEqual(t, len(c.Synonyms), maxSynonymsPerConcept)
	}
	assert.Contains(t, conceptTerms, "statins")
	assert.Contains(t, conceptTerms, "stroke")

	boolean := plan.QueryFor(domain.SourceTypePubMed)
	assert.Contains(t, boolean, " OR ", "recognized concepts should expand to OR-groups")
	assert.Contains(t, boolean, " AND ")
	assert.Contains(t, boolean, "atorvastatin")
}

func TestBuilder_Build_BigramConcept(t *testing.T) {
	plan, err := newTestBuilder().Build("heart failure treatment options")
	require.NoError(t, err)

	var found bool
	for _, c := range plan.Concepts {
		if c.Term == "heart failure" {
			found = true
		}
	}
	assert.True(t, found, "bigram concepts should be recognized from the raw query")
	assert.Equal(t, domain.IntentTreatment, plan.Intent)
}

func TestBuilder_Build_UnclassifiableFallsBackVerbatim(t *testing.T) {
	raw := "zeruvian fluxotropin qualia"
	plan, err := newTestBuilder().Build(raw)
	require.NoError(t, err, "unclassifiable queries must not hard-fail")

	assert.Empty(t, plan.Concepts)
	assert.Equal(t, domain.IntentUnknown, plan.Intent)
	for _, source := range domain.AllSourceTypes() {
		q := plan.QueryFor(source)
		assert.NotEmpty(t, q, "source %s must receive a query", source)
		if source == domain.SourceTypeOpenFDA {
			continue
		}
		assert.Contains(t, q, "zeruvian")
	}
}

func TestBuilder_Build_ShortQuery(t *testing.T) {
	plan, err := newTestBuilder().Build("metformin")
	require.NoError(t, err)
	assert.True(t, plan.ShortQuery)
}

func TestBuilder_Build_Validation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "empty", query: ""},
		{name: "whitespace only", query: "   "},
		{name: "over max length", query: strings.Repeat("a", MaxQueryLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestBuilder().Build(tt.query)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestBuilder_Build_IntentDetection(t *testing.T) {
	tests := []struct {
		query string
		want  domain.QueryIntent
	}{
		{"best therapy for rheumatoid arthritis", domain.IntentTreatment},
		{"screening for colorectal cancer", domain.IntentDiagnosis},
		{"influenza vaccine effectiveness", domain.IntentPrevention},
		{"5 year survival after resection", domain.IntentPrognosis},
		{"gut microbiome composition", domain.IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			plan, err := newTestBuilder().Build(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Intent)
		})
	}
}

func TestBuilder_Build_OpenFDAFieldedQuery(t *testing.T) {
	plan, err := newTestBuilder().Build("semaglutide weight loss")
	require.NoError(t, err)

	q := plan.QueryFor(domain.SourceTypeOpenFDA)
	assert.Contains(t, q, `indications_and_usage:"semaglutide"`)
	assert.Contains(t, q, " AND ")
}

func TestExtractTerms(t *testing.T) {
	terms := extractTerms("What is the best treatment for type 2 diabetes?")
	assert.NotContains(t, terms, "what")
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "for")
	assert.Contains(t, terms, "treatment")
	assert.Contains(t, terms, "diabetes")
	assert.Contains(t, terms, "2")
}

func TestPlan_QueryFor_UnknownSourceFallsBack(t *testing.T) {
	plan := &Plan{RawQuery: "raw", SourceQueries: map[domain.SourceType]string{}}
	assert.Equal(t, "raw", plan.QueryFor(domain.SourceTypePubMed))
}
