// Package cochrane provides a search adapter for Cochrane systematic reviews.
//
// The Cochrane Library has no public search API, but every Cochrane review
// is indexed by Europe PMC under the Cochrane Database of Systematic Reviews.
// This adapter searches Europe PMC with a journal restriction so only
// Cochrane reviews match, and reports them under the cochrane source type.
package cochrane

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
	"github.com/clindex/research-pipeline-service/internal/papersources/europepmc"
)

const (
	// DefaultBaseURL is the base URL for the Europe PMC REST API.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

	// cochraneJournalFilter restricts search results to the Cochrane
	// Database of Systematic Reviews.
	cochraneJournalFilter = `JOURNAL:"Cochrane Database Syst Rev"`

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 10

	// MaxResultsLimit is a sanity cap on results requested per search.
	MaxResultsLimit = 50

	// maxResponseBytes limits response body reads.
	maxResponseBytes = 10 << 20

	sourceName = "Cochrane Library"
)

// Config holds the configuration for the Cochrane adapter.
type Config struct {
	// BaseURL is the base URL for the Europe PMC REST API.
	BaseURL string

	// Timeout is the request timeout.
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

// Client implements the papersources.SearchSource interface for Cochrane
// systematic reviews.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.SearchSource = (*Client)(nil)

// New creates a new Cochrane adapter with the given configuration.
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

// Search queries the Cochrane Database of Systematic Reviews for candidates
// matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.ErrSourceDisabled
	}

	startTime := time.Now()

	u, err := url.Parse(c.config.BaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}

	q := u.Query()
	q.Set("query", "("+params.Query+") AND "+cochraneJournalFilter)
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

	var response europepmc.SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&response); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
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
		Source:         domain.SourceTypeCochrane,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCochrane
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// recordToCandidate converts a Europe PMC record of a Cochrane review to a
// domain.Candidate. Returns false when the record carries no usable title.
func recordToCandidate(record europepmc.Record) (domain.Candidate, bool) {
	title := strings.TrimSpace(record.Title)
	if title == "" {
		return domain.Candidate{}, false
	}

	year := 0
	if record.PubYear != "" {
		year, _ = strconv.Atoi(record.PubYear)
	}

	pubTypes := record.PubTypeList.PubType
	if len(pubTypes) == 0 {
		// Every record behind the journal filter is a Cochrane review.
		pubTypes = []string{"Systematic Review"}
	}

	candidate := domain.Candidate{
		Title:            title,
		Abstract:         strings.TrimSpace(record.AbstractText),
		Authors:          extractAuthors(record),
		Journal:          record.JournalTitle,
		Year:             year,
		DOI:              record.DOI,
		PMID:             record.PMID,
		Source:           domain.SourceTypeCochrane,
		PublicationTypes: pubTypes,
	}

	if record.DOI != "" {
		candidate.URL = "https://doi.org/" + record.DOI
	} else if record.PMID != "" {
		candidate.URL = "https://europepmc.org/article/MED/" + record.PMID
	}

	return candidate, true
}

func extractAuthors(record europepmc.Record) []domain.Author {
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
