package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for the CrossRef REST API.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default requests per second. CrossRef asks
	// polite-pool clients to stay under 50 req/s; we stay well below.
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

	sourceName = "CrossRef"
)

// jatsTagPattern matches JATS XML tags embedded in CrossRef abstracts.
var jatsTagPattern = regexp.MustCompile(`</?[^>]+>`)

// Config holds the configuration for the CrossRef adapter.
type Config struct {
	// BaseURL is the base URL for the REST API.
	BaseURL string

	// MailTo is the contact email sent with requests. Providing one routes
	// requests to CrossRef's polite pool with better service levels.
	MailTo string

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

// Client implements the papersources.SearchSource interface for CrossRef.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.SearchSource = (*Client)(nil)

// New creates a new CrossRef adapter with the given configuration.
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

// Search queries CrossRef for candidates matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.ErrSourceDisabled
	}

	startTime := time.Now()

	u, err := url.Parse(c.config.BaseURL + "/works")
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
	q.Set("query", params.Query)
	q.Set("rows", strconv.Itoa(maxResults))
	q.Set("select", "DOI,title,container-title,abstract,author,issued,published-print,type,URL")
	if c.config.MailTo != "" {
		q.Set("mailto", c.config.MailTo)
	}
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

	var response WorksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&response); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	candidates := make([]domain.Candidate, 0, len(response.Message.Items))
	for _, work := range response.Message.Items {
		candidate, ok := workToCandidate(work)
		if !ok {
			continue
		}
		candidate.SourceRank = len(candidates)
		candidates = append(candidates, candidate)
	}

	return &papersources.SearchResult{
		Candidates:     candidates,
		TotalResults:   response.Message.TotalResults,
		Source:         domain.SourceTypeCrossRef,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossRef
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// workToCandidate converts a CrossRef work to a domain.Candidate.
// Returns false when the work carries no usable title.
func workToCandidate(work Work) (domain.Candidate, bool) {
	if len(work.Title) == 0 {
		return domain.Candidate{}, false
	}
	title := strings.TrimSpace(work.Title[0])
	if title == "" {
		return domain.Candidate{}, false
	}

	journal := ""
	if len(work.ContainerTitle) > 0 {
		journal = work.ContainerTitle[0]
	}

	year := work.Issued.Year()
	if year == 0 {
		year = work.PublishedPrint.Year()
	}

	pageURL := work.URL
	if pageURL == "" && work.DOI != "" {
		pageURL = "https://doi.org/" + work.DOI
	}

	var pubTypes []string
	if work.Type != "" {
		pubTypes = []string{work.Type}
	}

	return domain.Candidate{
		Title:            title,
		Abstract:         stripJATS(work.Abstract),
		Authors:          extractAuthors(work.Author),
		Journal:          journal,
		Year:             year,
		DOI:              work.DOI,
		URL:              pageURL,
		Source:           domain.SourceTypeCrossRef,
		PublicationTypes: pubTypes,
	}, true
}

// extractAuthors flattens CrossRef author records into display names.
func extractAuthors(workAuthors []WorkAuthor) []domain.Author {
	if len(workAuthors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(workAuthors))
	for _, a := range workAuthors {
		var name string
		switch {
		case a.Name != "":
			name = a.Name
		case a.Given != "" || a.Family != "":
			name = strings.TrimSpace(a.Given + " " + a.Family)
		}
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{Name: name})
	}

	return authors
}

// stripJATS removes JATS XML markup that CrossRef embeds in abstracts,
// collapsing the result to plain whitespace-normalized text.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	plain := jatsTagPattern.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(plain), " ")
}
