package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 2

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 25

	// MaxResultsLimit is a sanity cap on results requested per search.
	MaxResultsLimit = 100

	// maxResponseBytes limits response body reads.
	maxResponseBytes = 10 << 20

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,abstract,year,venue,journal,authors,publicationTypes,url"

	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar adapter.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.SearchSource interface for Semantic Scholar.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.SearchSource = (*Client)(nil)

// New creates a new Semantic Scholar adapter with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			SourceName:   sourceName,
		}),
	}
}

// Search queries Semantic Scholar for candidates matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.ErrSourceDisabled
	}

	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	candidates := make([]domain.Candidate, 0, len(searchResp.Data))
	for _, paper := range searchResp.Data {
		candidate, ok := paperToCandidate(paper)
		if !ok {
			continue
		}
		candidate.SourceRank = len(candidates)
		candidates = append(candidates, candidate)
	}

	return &papersources.SearchResult{
		Candidates:     candidates,
		TotalResults:   searchResp.Total,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	u, err := url.Parse(c.config.BaseURL + "/paper/search")
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}

	q := u.Query()
	q.Set("query", params.Query)
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(maxResults))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// errorFromResponse converts a non-200 response into a domain error,
// extracting the API's error message when the body parses.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	message := strings.TrimSpace(string(body))
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error != "" {
			message = errResp.Error
		} else if errResp.Message != "" {
			message = errResp.Message
		}
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
}

// paperToCandidate converts an API paper record to a domain.Candidate.
// Returns false when the record carries no usable title.
func paperToCandidate(paper PaperResult) (domain.Candidate, bool) {
	title := strings.TrimSpace(paper.Title)
	if title == "" {
		return domain.Candidate{}, false
	}

	journal := paper.Venue
	if paper.Journal != nil && paper.Journal.Name != "" {
		journal = paper.Journal.Name
	}

	var doi, pmid string
	if paper.ExternalIDs != nil {
		doi = paper.ExternalIDs.DOI
		pmid = paper.ExternalIDs.PubMed
	}

	pageURL := paper.URL
	if pageURL == "" && paper.PaperID != "" {
		pageURL = "https://www.semanticscholar.org/paper/" + paper.PaperID
	}

	authors := make([]domain.Author, 0, len(paper.Authors))
	for _, a := range paper.Authors {
		if a.Name == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: a.Name})
	}

	return domain.Candidate{
		Title:            title,
		Abstract:         strings.TrimSpace(paper.Abstract),
		Authors:          authors,
		Journal:          journal,
		Year:             paper.Year,
		DOI:              doi,
		PMID:             pmid,
		URL:              pageURL,
		Source:           domain.SourceTypeSemanticScholar,
		PublicationTypes: paper.PublicationTypes,
	}, true
}
