package cochrane

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/papersources"
	"github.com/clindex/research-pipeline-service/internal/papersources/europepmc"
)

func testRecord(title string) europepmc.Record {
	return europepmc.Record{
		Title:        title,
		JournalTitle: "Cochrane Database Syst Rev",
		PubYear:      "2022",
	}
}

const searchFixture = `{
	"hitCount": 1,
	"resultList": {
		"result": [
			{
				"id": "36971693",
				"source": "MED",
				"pmid": "36971693",
				"doi": "10.1002/14651858.CD013600.pub3",
				"title": "Exercise-based cardiac rehabilitation for adults with heart failure",
				"authorString": "Molloy C, Long L, Mordi IR.",
				"journalTitle": "Cochrane Database Syst Rev",
				"pubYear": "2023",
				"abstractText": "We assessed exercise-based cardiac rehabilitation against usual care.",
				"pubTypeList": {"pubType": ["Systematic Review", "Review"]}
			}
		]
	}
}`

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		query := r.URL.Query().Get("query")
		assert.Contains(t, query, "cardiac rehabilitation")
		assert.Contains(t, query, `JOURNAL:"Cochrane Database Syst Rev"`, "query must carry the Cochrane journal filter")
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
		Query:      "cardiac rehabilitation heart failure",
		MaxResults: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceTypeCochrane, result.Source)
	require.Len(t, result.Candidates, 1)

	c := result.Candidates[0]
	assert.Equal(t, "Exercise-based cardiac rehabilitation for adults with heart failure", c.Title)
	assert.Equal(t, "10.1002/14651858.CD013600.pub3", c.DOI)
	assert.Equal(t, "36971693", c.PMID)
	assert.Equal(t, domain.SourceTypeCochrane, c.Source)
	assert.Equal(t, "https://doi.org/10.1002/14651858.CD013600.pub3", c.URL)
	assert.Contains(t, c.PublicationTypes, "Systematic Review")
	require.Len(t, c.Authors, 3)
	assert.Equal(t, "Molloy C", c.Authors[0].Name)
}

func TestClient_Search_Disabled(t *testing.T) {
	client := New(Config{Enabled: false})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "rehabilitation"})
	require.ErrorIs(t, err, domain.ErrSourceDisabled)
}

func TestClient_Search_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Enabled: true, RateLimit: 100})

	_, err := client.Search(context.Background(), papersources.SearchParams{Query: "rehabilitation"})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestRecordToCandidate_DefaultPubType(t *testing.T) {
	candidate, ok := recordToCandidate(testRecord("Statins for primary prevention"))
	require.True(t, ok)
	assert.Equal(t, []string{"Systematic Review"}, candidate.PublicationTypes)
}
