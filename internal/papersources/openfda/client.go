package openfda

import (
	"context"
	"encoding/json"
	"errors"
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
	// DefaultBaseURL is the base URL for the openFDA API.
	DefaultBaseURL = "https://api.fda.gov"

	// DefaultRateLimit is the default requests per second. openFDA allows
	// 240 requests per minute without an API key.
	DefaultRateLimit = 4.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 4

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 10

	// MaxResultsLimit is a sanity cap on results requested per search.
	MaxResultsLimit = 50

	// maxResponseBytes limits response body reads. Labels are verbose.
	maxResponseBytes = 20 << 20

	// maxAbstractBytes caps the label text carried into a candidate abstract.
	maxAbstractBytes = 4000

	// labelPublicationType is reported so evidence classification can place
	// regulatory labels in the lowest tier.
	labelPublicationType = "Drug Label"

	sourceName = "openFDA"
)

// Config holds the configuration for the openFDA adapter.
type Config struct {
	// BaseURL is the base URL for the API.
	BaseURL string

	// APIKey is the optional openFDA API key for higher rate limits.
	APIKey string

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

// Client implements the papersources.SearchSource interface for openFDA.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.SearchSource = (*Client)(nil)

// New creates a new openFDA adapter with the given configuration.
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

// Search queries openFDA drug labels for candidates matching the parameters.
// An empty result set is returned for queries that match no labels; openFDA
// reports that case as a 404 NOT_FOUND error rather than an empty list.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, domain.ErrSourceDisabled
	}

	startTime := time.Now()

	response, err := c.searchLabels(ctx, params)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &papersources.SearchResult{
				Candidates:     []domain.Candidate{},
				TotalResults:   0,
				Source:         domain.SourceTypeOpenFDA,
				SearchDuration: time.Since(startTime),
			}, nil
		}
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(response.Results))
	for _, label := range response.Results {
		candidate, ok := labelToCandidate(label)
		if !ok {
			continue
		}
		candidate.SourceRank = len(candidates)
		candidates = append(candidates, candidate)
	}

	return &papersources.SearchResult{
		Candidates:     candidates,
		TotalResults:   response.Meta.Results.Total,
		Source:         domain.SourceTypeOpenFDA,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenFDA
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) searchLabels(ctx context.Context, params papersources.SearchParams) (*LabelResponse, error) {
	u, err := url.Parse(c.config.BaseURL + "/drug/label.json")
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
	q.Set("search", params.Query)
	q.Set("limit", strconv.Itoa(maxResults))
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
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

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		message := string(body)
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	var response LabelResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	return &response, nil
}

// labelToCandidate converts a drug label to a domain.Candidate.
// Returns false when the label names no drug.
func labelToCandidate(label Label) (domain.Candidate, bool) {
	generic := firstNonEmpty(label.OpenFDA.GenericName)
	brand := firstNonEmpty(label.OpenFDA.BrandName)

	var title string
	switch {
	case generic != "" && brand != "" && !strings.EqualFold(generic, brand):
		title = fmt.Sprintf("FDA prescribing information: %s (%s)", titleCase(generic), titleCase(brand))
	case generic != "":
		title = "FDA prescribing information: " + titleCase(generic)
	case brand != "":
		title = "FDA prescribing information: " + titleCase(brand)
	default:
		return domain.Candidate{}, false
	}

	var authors []domain.Author
	if m := firstNonEmpty(label.OpenFDA.ManufacturerName); m != "" {
		authors = []domain.Author{{Name: m}}
	}

	candidate := domain.Candidate{
		Title:            title,
		Abstract:         labelAbstract(label),
		Authors:          authors,
		Year:             effectiveYear(label.EffectiveTime),
		Source:           domain.SourceTypeOpenFDA,
		PublicationTypes: []string{labelPublicationType},
	}

	if label.SetID != "" {
		candidate.URL = "https://dailymed.nlm.nih.gov/dailymed/drugInfo.cfm?setid=" + label.SetID
	}

	return candidate, true
}

// labelAbstract joins the indications and warnings sections, truncated to a
// bounded length so one verbose label cannot dominate downstream scoring.
func labelAbstract(label Label) string {
	sections := make([]string, 0, 2)
	if s := strings.TrimSpace(strings.Join(label.Indications, " ")); s != "" {
		sections = append(sections, s)
	}
	if s := strings.TrimSpace(strings.Join(label.Warnings, " ")); s != "" {
		sections = append(sections, s)
	}

	abstract := strings.Join(sections, " ")
	if len(abstract) > maxAbstractBytes {
		abstract = abstract[:maxAbstractBytes]
	}
	return abstract
}

// effectiveYear parses the year from openFDA's YYYYMMDD effective_time.
func effectiveYear(effectiveTime string) int {
	if len(effectiveTime) < 4 {
		return 0
	}
	year, err := strconv.Atoi(effectiveTime[:4])
	if err != nil {
		return 0
	}
	return year
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// titleCase converts openFDA's all-caps drug names to title case.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
