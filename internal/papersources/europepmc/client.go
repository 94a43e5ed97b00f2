package europepmc

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
	// DefaultBaseURL is the base URL for the Europe PMC REST API.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 25

	// MaxResultsLimit is a sanity cap on results requested per search.
	MaxResultsLimit = 100

	// maxResponseBytes limits response body reads.
	maxResponseBytes = 10 << 20

	sourceName = "Europe PMC"
)

// Config holds the configuration for the Europe PMC adapter.
type Config struct {
	// BaseURL is the base URL for the REST API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Timeout is the request timeout. Defaults to DefaultTimeout if zero.
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

// Client implements the papersources.SearchSource interface for Europe PMC.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.SearchSource = (*Client)(nil)

// New creates a new Europe PMC adapter with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			BurstSize:  cfg.BurstSize,
			SourceName: sourceName,
		}),
	}
}

// Search queries Europe PMC for candidates matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.ErrSourceDisabled
	}

	startTime := time.Now()

	response, err := c.search(ctx, params.Query, params.MaxResults)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(response.ResultList.Result))
	for _, record := range response.ResultList.Result {
		candidate, ok := recordToCandidate(record)
		if !ok {
			continue
		}
		candidate.SourceRank = len(candidates)
		candidates = append(candidates, candidate)
	}

	return &papersources.SearchResult{
		Candidates:     candidates,
		TotalResults:   response.HitCount,
		Source:         domain.SourceTypeEuropePMC,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeEuropePMC
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	u, err := url.Parse(c.config.BaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}

	q := u.Query()
	q.Set("query", query)
	q.Set("format", "json")
	q.Set("resultType", "core")
	q.Set("pageSize", strconv.Itoa(maxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var response SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&response); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	return &response, nil
}

// recordToCandidate converts a Europe PMC record to a domain.Candidate.
// Returns false when the record carries no usable title.
func recordToCandidate(record Record) (domain.Candidate, bool) {
	title := strings.TrimSpace(record.Title)
	if title == "" {
		return domain.Candidate{}, false
	}

	year := 0
	if record.PubYear != "" {
		year, _ = strconv.Atoi(record.PubYear)
	}

	candidate := domain.Candidate{
		Title:            title,
		Abstract:         strings.TrimSpace(record.AbstractText),
		Authors:          extractAuthors(record),
		Journal:          record.JournalTitle,
		Year:             year,
		DOI:              record.DOI,
		PMID:             record.PMID,
		URL:              recordURL(record),
		Source:           domain.SourceTypeEuropePMC,
		PublicationTypes: record.PubTypeList.PubType,
	}

	return candidate, true
}

// extractAuthors prefers the structured author list and falls back to
// splitting the comma-separated authorString.
func extractAuthors(record Record) []domain.Author {
	if record.AuthorList != nil && len(record.AuthorList.Author) > 0 {
		authors := make([]domain.Author, 0, len(record.AuthorList.Author))
		for _, a := range record.AuthorList.Author {
			name := a.FullName
			if name == "" && (a.FirstName != "" || a.LastName != "") {
				name = strings.TrimSpace(a.FirstName + " " + a.LastName)
			}
			if name == "" {
				continue
			}
			authors = append(authors, domain.Author{Name: name})
		}
		return authors
	}

	if record.AuthorString == "" {
		return nil
	}

	parts := strings.Split(strings.TrimSuffix(record.AuthorString, "."), ",")
	authors := make([]domain.Author, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: name})
	}

	return authors
}

func recordURL(record Record) string {
	if record.PMID != "" {
		return "https://europepmc.org/article/MED/" + record.PMID
	}
	if record.Source != "" && record.ID != "" {
		return "https://europepmc.org/article/" + record.Source + "/" + record.ID
	}
	return ""
}
