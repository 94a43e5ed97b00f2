package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/dedup"
	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/fanout"
	"github.com/clindex/research-pipeline-service/internal/observability"
	"github.com/clindex/research-pipeline-service/internal/papersources"
	"github.com/clindex/research-pipeline-service/internal/queryplan"
	"github.com/clindex/research-pipeline-service/internal/ranking"
)

// stubSource is a controllable SearchSource for end-to-end pipeline tests.
type stubSource struct {
	sourceType domain.SourceType
	candidates []domain.Candidate
	err        error
	delay      time.Duration
	enabled    bool
}

func (s *stubSource) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &papersources.SearchResult{
		Candidates:   s.candidates,
		TotalResults: len(s.candidates),
	}, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return string(s.sourceType) }
func (s *stubSource) IsEnabled() bool               { return s.enabled }

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "-", "_", " ", "_", "#", "_")
	return strings.ToLower(replacer.Replace(name))
}

func newTestPipeline(t *testing.T, opts Options, sources ...papersources.SearchSource) *Pipeline {
	t.Helper()

	logger := zerolog.Nop()
	metrics := observability.NewMetrics("pl_" + sanitize(t.Name()))

	registry := papersources.NewRegistry()
	for _, s := range sources {
		registry.Register(s)
	}

	return New(
		queryplan.NewBuilder(logger),
		fanout.NewCoordinator(registry, logger, metrics),
		dedup.NewMerger(logger, metrics),
		ranking.NewScorer(logger, metrics),
		ranking.NewClassifier(),
		opts,
		logger,
		metrics,
	)
}

func trial(title, doi string, source domain.SourceType, year int) domain.Candidate {
	return domain.Candidate{
		Title:    title,
		Abstract: "A randomized controlled trial of migraine treatment outcomes.",
		Authors:  []domain.Author{{Name: "Jane Smith"}},
		Journal:  "Headache",
		Year:     year,
		DOI:      doi,
		Source:   source,
	}
}

func TestPipeline_PartialDegradationStillSucceeds(t *testing.T) {
	pubmedItems := []domain.Candidate{
		trial("Migraine treatment with topiramate", "10.1000/mt.1", domain.SourceTypePubMed, 2021),
		trial("Migraine treatment with propranolol", "10.1000/mt.2", domain.SourceTypePubMed, 2020),
		trial("Migraine treatment with amitriptyline", "10.1000/mt.3", domain.SourceTypePubMed, 2019),
		trial("Migraine treatment with erenumab", "10.1000/mt.4", domain.SourceTypePubMed, 2022),
		trial("Migraine treatment with rimegepant", "10.1000/mt.5", domain.SourceTypePubMed, 2023),
	}
	crossrefItems := []domain.Candidate{
		trial("Migraine treatment with topiramate", "10.1000/mt.1", domain.SourceTypeCrossRef, 2021), // duplicate DOI
		trial("Migraine treatment with candesartan", "10.1000/mt.6", domain.SourceTypeCrossRef, 2018),
		trial("Migraine treatment with galcanezumab", "10.1000/mt.7", domain.SourceTypeCrossRef, 2021),
	}

	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond, SourceTimeout: 100 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true, candidates: pubmedItems},
		&stubSource{sourceType: domain.SourceTypeEuropePMC, enabled: true, delay: time.Second},
		&stubSource{sourceType: domain.SourceTypeCrossRef, enabled: true, candidates: crossrefItems},
	)

	result, err := p.Run(context.Background(), Request{Query: "migraine treatment"})
	require.NoError(t, err)

	assert.Equal(t, []string{string(domain.SourceTypeEuropePMC)}, result.DegradedSources)
	// 8 candidates, one DOI shared: 7 distinct works, all within the cap.
	assert.Len(t, result.Citations, 7)
	assert.False(t, result.LowConfidence)
}

func TestPipeline_NonMedicalQueryYieldsEmptyLowConfidence(t *testing.T) {
	offDomain := domain.Candidate{
		Title:    "Density functional theory calculations of band structures",
		Abstract: "We compute electronic band structures for perovskite lattices.",
		Authors:  []domain.Author{{Name: "Wei Chen"}},
		Journal:  "Physical Review B",
		Year:     2022,
		DOI:      "10.1000/dft.1",
		Source:   domain.SourceTypeOpenAlex,
	}

	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypeOpenAlex, enabled: true, candidates: []domain.Candidate{offDomain}},
	)

	result, err := p.Run(context.Background(), Request{Query: "density functional theory calculations"})
	require.NoError(t, err)

	assert.Empty(t, result.Citations)
	assert.True(t, result.LowConfidence)
	assert.Empty(t, result.DegradedSources)
}

func TestPipeline_TierDominatesRelevanceInOrdering(t *testing.T) {
	review := domain.Candidate{
		Title:    "Systematic review and meta-analysis of SGLT2 inhibitors in heart failure",
		Abstract: "Pooled analysis of randomized trials of SGLT2 inhibitor therapy.",
		Authors:  []domain.Author{{Name: "Maria Gonzalez"}},
		Journal:  "Circulation",
		Year:     2020,
		DOI:      "10.1000/sr.1",
		Source:   domain.SourceTypePubMed,
	}
	caseReport := domain.Candidate{
		Title:    "Case report: rare adverse event during SGLT2 inhibitor treatment in heart failure",
		Abstract: "A single patient treated with an SGLT2 inhibitor for heart failure.",
		Authors:  []domain.Author{{Name: "Li Wei"}},
		Journal:  "BMJ Case Reports",
		Year:     2024,
		DOI:      "10.1000/cr.1",
		Source:   domain.SourceTypePubMed,
	}

	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true,
			candidates: []domain.Candidate{caseReport, review}},
	)

	result, err := p.Run(context.Background(), Request{Query: "sglt2 inhibitors heart failure treatment"})
	require.NoError(t, err)
	require.Len(t, result.Citations, 2)

	assert.Equal(t, review.Title, result.Citations[0].Title)
	assert.Equal(t, domain.TierSystematicReview.Label(), result.Citations[0].Tier)
	assert.Equal(t, caseReport.Title, result.Citations[1].Title)
	assert.Equal(t, domain.TierCaseReport.Label(), result.Citations[1].Tier)
}

func TestPipeline_CrossSourceDuplicateMergesContributors(t *testing.T) {
	a := trial("Metformin therapy for type 2 diabetes", "10.1000/met.1", domain.SourceTypePubMed, 2021)
	b := trial("Metformin therapy for type 2 diabetes", "10.1000/MET.1", domain.SourceTypeCrossRef, 2021)
	b.Authors = []domain.Author{{Name: "SMITH J"}}

	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true, candidates: []domain.Candidate{a}},
		&stubSource{sourceType: domain.SourceTypeCrossRef, enabled: true, candidates: []domain.Candidate{b}},
	)

	result, err := p.Run(context.Background(), Request{Query: "metformin diabetes treatment"})
	require.NoError(t, err)
	require.Len(t, result.Citations, 1)

	// PubMed outranks CrossRef, so its author casing wins.
	assert.Equal(t, []string{"Jane Smith"}, result.Citations[0].Authors)
}

func TestPipeline_EmptyQueryRejected(t *testing.T) {
	p := newTestPipeline(t, Options{},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true})

	result, err := p.Run(context.Background(), Request{Query: "   "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestPipeline_NoEnabledSources(t *testing.T) {
	p := newTestPipeline(t, Options{},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: false})

	_, err := p.Run(context.Background(), Request{Query: "migraine treatment"})
	assert.ErrorIs(t, err, domain.ErrAllSourcesUnavailable)
}

func TestPipeline_AllSourcesDegraded(t *testing.T) {
	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true,
			err: domain.NewExternalAPIError("PubMed", 500, "boom", nil)},
		&stubSource{sourceType: domain.SourceTypeCrossRef, enabled: true,
			err: domain.NewExternalAPIError("CrossRef", 503, "down", nil)},
	)

	_, err := p.Run(context.Background(), Request{Query: "migraine treatment"})
	assert.ErrorIs(t, err, domain.ErrAllSourcesUnavailable)
}

func TestPipeline_MaxResultsCapsCitations(t *testing.T) {
	items := make([]domain.Candidate, 0, 6)
	for _, c := range []struct {
		title, doi string
	}{
		{"Migraine treatment trial alpha", "10.1/a"},
		{"Migraine treatment trial beta", "10.1/b"},
		{"Migraine treatment trial gamma", "10.1/c"},
		{"Migraine treatment trial delta", "10.1/d"},
		{"Migraine treatment trial epsilon", "10.1/e"},
		{"Migraine treatment trial zeta", "10.1/f"},
	} {
		items = append(items, trial(c.title, c.doi, domain.SourceTypePubMed, 2022))
	}

	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true, candidates: items},
	)

	result, err := p.Run(context.Background(), Request{Query: "migraine treatment", MaxResults: 3})
	require.NoError(t, err)
	assert.Len(t, result.Citations, 3)
}

func TestPipeline_AuthorListsContainOnlyPlainNames(t *testing.T) {
	p := newTestPipeline(t, Options{
		Fanout: fanout.Options{GlobalTimeout: 500 * time.Millisecond},
	},
		&stubSource{sourceType: domain.SourceTypePubMed, enabled: true,
			candidates: []domain.Candidate{trial("Migraine treatment with topiramate", "10.1/x", domain.SourceTypePubMed, 2021)}},
	)

	result, err := p.Run(context.Background(), Request{Query: "migraine treatment"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Citations)

	for _, c := range result.Citations {
		for _, name := range c.Authors {
			assert.NotEmpty(t, name)
			assert.NotContains(t, name, "{")
			assert.NotContains(t, name, "map[")
		}
	}
}
