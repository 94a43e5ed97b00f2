package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for the OpenAlex API.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default requests per second. OpenAlex allows
	// 10 req/s for polite-pool clients.
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

	// maxAbstractWords bounds inverted-index reconstruction against
	// malicious or corrupt payloads.
	maxAbstractWords = 100_000

	// pmidURLPrefix is the prefix OpenAlex uses for PMID identifiers.
	pmidURLPrefix = "https://pubmed.ncbi.nlm.nih.gov/"

	sourceName = "OpenAlex"
)

// Config holds the configuration for the OpenAlex adapter.
type Config struct {
	// BaseURL is the base URL for the API.
	BaseURL string

	// Email is the contact address sent via mailto, routing requests to
	// OpenAlex's polite pool.
	Email string

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

// Client implements the papersources.SearchSource interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.SearchSource = (*Client)(nil)

// New creates a new OpenAlex adapter with the given configuration.
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

// Search queries OpenAlex for candidates matching the given parameters.
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
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	candidates := make([]domain.Candidate, 0, len(searchResp.Results))
	for _, work := range searchResp.Results {
		candidate, ok := workToCandidate(work)
		if !ok {
			continue
		}
		candidate.SourceRank = len(candidates)
		candidates = append(candidates, candidate)
	}

	return &papersources.SearchResult{
		Candidates:     candidates,
		TotalResults:   searchResp.Meta.Count,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
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
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	u.Path = "/works"

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}

	q := url.Values{}
	q.Set("search", params.Query)
	q.Set("per_page", strconv.Itoa(maxResults))
	if c.config.Email != "" {
		q.Set("mailto", c.config.Email)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// workToCandidate converts an OpenAlex work to a domain.Candidate.
// Returns false when the work carries no usable title.
func workToCandidate(work Work) (domain.Candidate, bool) {
	title := strings.TrimSpace(work.Title)
	if title == "" {
		title = strings.TrimSpace(work.DisplayName)
	}
	if title == "" {
		return domain.Candidate{}, false
	}

	journal := ""
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		journal = work.PrimaryLocation.Source.DisplayName
	}

	doi := work.DOI
	if doi == "" {
		doi = work.IDs.DOI
	}

	var pubTypes []string
	if work.Type != "" {
		pubTypes = []string{work.Type}
	}

	return domain.Candidate{
		Title:            title,
		Abstract:         reconstructAbstract(work.AbstractInvertedIndex),
		Authors:          extractAuthors(work.Authorships),
		Journal:          journal,
		Year:             work.PublicationYear,
		DOI:              doi,
		PMID:             strings.TrimPrefix(strings.TrimSuffix(work.IDs.PMID, "/"), pmidURLPrefix),
		URL:              work.ID,
		Source:           domain.SourceTypeOpenAlex,
		PublicationTypes: pubTypes,
	}, true
}

// extractAuthors flattens authorships into display names.
func extractAuthors(authorships []Authorship) []domain.Author {
	if len(authorships) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorships))
	for _, a := range authorships {
		if a.Author.DisplayName == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: a.Author.DisplayName})
	}

	return authors
}

// reconstructAbstract rebuilds the abstract text from OpenAlex's inverted
// index format, which maps each word to its positions in the text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}

	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	// Guard against malicious payloads with excessive position entries.
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}
