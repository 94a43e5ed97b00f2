package semanticscholar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/papersources"
)

const searchFixture = `{
	"total": 412,
	"offset": 0,
	"data": [
		{
			"paperId": "649def34f8be52c8b66281af98ae884c09aef38b",
			"title": "SGLT2 inhibitors and heart failure hospitalization: a meta-analysis",
			"abstract": "We pooled randomized trials of SGLT2 inhibitors in patients with heart failure.",
			"year": 2022,
			"venue": "European Heart Journal",
			"journal": {"name": "Eur Heart J", "volume": "43"},
			"authors": [
				{"authorId": "144522", "name": "M. Vaduganathan"},
				{"authorId": "98121", "name": "S. D. Solomon"}
			],
			"publicationTypes": ["JournalArticle", "MetaAnalysis"],
			"url": "https://www.semanticscholar.org/paper/649def34f8be52c8b66281af98ae884c09aef38b",
			"externalIds": {"DOI": "10.1093/eurheartj/ehac123", "PubMed": "35345678"}
		},
		{
			"paperId": "abc123",
			"title": "",
			"abstract": "Record with no title should be skipped."
		}
	]
}`

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "sglt2 inhibitors heart failure", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Contains(t, r.URL.Query().Get("fields"), "externalIds")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	client := New(Config{
		BaseURL:   server.URL,
		Enabled:   true,
		RateLimit: 100,
	})

	result, err := client.Search(context.Background(), papersources.SearchParams{
		Query:      "sglt2 inhibitors heart failure",
		MaxResults: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceTypeSemanticScholar, result.Source)
	assert.Equal(t, 412, result.TotalResults)
	require.Len(t, result.Candidates, 1, "untitled records should be skipped")

	c := result.Candidates[0]
	assert.Equal(t, "SGLT2 inhibitors and heart failure hospitalization: a meta-analysis", c.Title)
	assert.Equal(t, "10.1093/eurheartj/ehac123", c.DOI)
	assert.Equal(t, "35345678", c.PMID)
	assert.Equal(t, "Eur Heart J", c.Journal, "journal name should win over venue")
	assert.Equal(t, 2022, c.Year)
	require.Len(t, c.Authors, 2)
	assert.Equal(t, "M. Vaduganathan", c.Authors[0].Name)
	assert.Contains(t, c.PublicationTypes, "MetaAnalysis")
}

func TestClient_Search_Disabled(t *testing.T) {
	client := New(Config{Enabled: false})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "sglt2"})
	require.ErrorIs(t, err, domain.ErrSourceDisabled)
}

func TestClient_Search_APIErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Unrecognized or unsupported fields: [bogus]"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Enabled: true, RateLimit: 100})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "sglt2"})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Unrecognized")
}

func TestClient_Search_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total": "not-a-number"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Enabled: true, RateLimit: 100})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "sglt2"})
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
}
