// Package config provides configuration management for the research pipeline service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the research pipeline service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Pipeline contains fan-out and selection settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// LLM contains answer synthesis settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Sources contains research source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port" validate:"gt=0,lte=65535"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port" validate:"gt=0,lte=65535"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the metric name prefix.
	Namespace string `mapstructure:"namespace"`
}

// PipelineConfig holds fan-out and citation selection settings.
type PipelineConfig struct {
	// GlobalTimeout bounds a whole fan-out, all sources included.
	GlobalTimeout time.Duration `mapstructure:"global_timeout"`
	// SourceTimeout bounds each individual source call.
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	// MaxResultsPerSource caps candidates requested from each source.
	MaxResultsPerSource int `mapstructure:"max_results_per_source" validate:"gt=0"`
	// MaxCitations caps the final citation list.
	MaxCitations int `mapstructure:"max_citations" validate:"gt=0"`
	// RelevanceFloor excludes candidates scoring below it (0.0-1.0).
	RelevanceFloor float64 `mapstructure:"relevance_floor" validate:"gte=0,lte=1"`
	// LowConfidenceMinimum flags results with fewer citations than this.
	LowConfidenceMinimum int `mapstructure:"low_confidence_minimum" validate:"gt=0"`
}

// LLMConfig holds answer synthesis configuration.
type LLMConfig struct {
	// Enabled controls whether answer synthesis is offered at all. When
	// false the API serves citations only.
	Enabled bool `mapstructure:"enabled"`
	// Provider is the LLM provider (openai, anthropic).
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
	// Temperature is the LLM temperature setting.
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (loaded from RESEARCH_LLM_OPENAI_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the OpenAI model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the OpenAI API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (loaded from RESEARCH_LLM_ANTHROPIC_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the Anthropic model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the Anthropic API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// SourcesConfig holds configuration for all research source APIs.
type SourcesConfig struct {
	// PubMed contains NCBI E-utilities settings.
	PubMed SourceConfig `mapstructure:"pubmed"`
	// EuropePMC contains Europe PMC REST settings.
	EuropePMC SourceConfig `mapstructure:"europepmc"`
	// Cochrane contains settings for the Cochrane review search.
	Cochrane SourceConfig `mapstructure:"cochrane"`
	// SemanticScholar contains Semantic Scholar Graph API settings.
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	// CrossRef contains CrossRef works API settings.
	CrossRef SourceConfig `mapstructure:"crossref"`
	// OpenAlex contains OpenAlex works API settings.
	OpenAlex SourceConfig `mapstructure:"openalex"`
	// OpenFDA contains openFDA drug label API settings.
	OpenFDA SourceConfig `mapstructure:"openfda"`
}

// SourceConfig holds configuration for a single research source API.
type SourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g.
	// RESEARCH_SOURCES_PUBMED_API_KEY). Most sources work without one.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is the contact address for sources with a polite pool
	// (CrossRef, OpenAlex).
	Email string `mapstructure:"email"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size" validate:"gte=0"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results" validate:"gte=0"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-pipeline-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	// LLM provider API keys.
	cfg.LLM.OpenAI.APIKey = os.Getenv("RESEARCH_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("RESEARCH_LLM_ANTHROPIC_API_KEY")

	// Source API keys.
	cfg.Sources.PubMed.APIKey = os.Getenv("RESEARCH_SOURCES_PUBMED_API_KEY")
	cfg.Sources.SemanticScholar.APIKey = os.Getenv("RESEARCH_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.OpenFDA.APIKey = os.Getenv("RESEARCH_SOURCES_OPENFDA_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research")

	// Pipeline defaults
	v.SetDefault("pipeline.global_timeout", "12s")
	v.SetDefault("pipeline.source_timeout", "8s")
	v.SetDefault("pipeline.max_results_per_source", 25)
	v.SetDefault("pipeline.max_citations", 8)
	v.SetDefault("pipeline.relevance_floor", 0.35)
	v.SetDefault("pipeline.low_confidence_minimum", 3)

	// LLM defaults
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.temperature", 0.2)
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("llm.openai.model", "gpt-4-turbo")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-sonnet-20240229")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Source defaults - PubMed
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "10s")
	v.SetDefault("sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("sources.pubmed.burst_size", 3)
	v.SetDefault("sources.pubmed.max_results", 25)

	// Source defaults - Europe PMC
	v.SetDefault("sources.europepmc.enabled", true)
	v.SetDefault("sources.europepmc.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("sources.europepmc.timeout", "10s")
	v.SetDefault("sources.europepmc.rate_limit", 5.0)
	v.SetDefault("sources.europepmc.burst_size", 5)
	v.SetDefault("sources.europepmc.max_results", 25)

	// Source defaults - Cochrane (served through Europe PMC)
	v.SetDefault("sources.cochrane.enabled", true)
	v.SetDefault("sources.cochrane.base_url", "https://www.ebi.ac.uk/europepmc/webservices/rest")
	v.SetDefault("sources.cochrane.timeout", "10s")
	v.SetDefault("sources.cochrane.rate_limit", 5.0)
	v.SetDefault("sources.cochrane.burst_size", 5)
	v.SetDefault("sources.cochrane.max_results", 25)

	// Source defaults - Semantic Scholar
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "10s")
	v.SetDefault("sources.semantic_scholar.rate_limit", 1.0) // unauthenticated shared pool limit
	v.SetDefault("sources.semantic_scholar.burst_size", 1)
	v.SetDefault("sources.semantic_scholar.max_results", 25)

	// Source defaults - CrossRef
	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.email", "")
	v.SetDefault("sources.crossref.timeout", "10s")
	v.SetDefault("sources.crossref.rate_limit", 10.0)
	v.SetDefault("sources.crossref.burst_size", 10)
	v.SetDefault("sources.crossref.max_results", 25)

	// Source defaults - OpenAlex
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.email", "")
	v.SetDefault("sources.openalex.timeout", "10s")
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.burst_size", 10)
	v.SetDefault("sources.openalex.max_results", 25)

	// Source defaults - openFDA
	v.SetDefault("sources.openfda.enabled", true)
	v.SetDefault("sources.openfda.base_url", "https://api.fda.gov")
	v.SetDefault("sources.openfda.timeout", "10s")
	v.SetDefault("sources.openfda.rate_limit", 4.0)
	v.SetDefault("sources.openfda.burst_size", 4)
	v.SetDefault("sources.openfda.max_results", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			f := fields[0]
			return fmt.Errorf("invalid value for %s: failed %q check", f.Namespace(), f.Tag())
		}
		return err
	}

	// Cross-field checks validator tags cannot express.
	if c.Pipeline.SourceTimeout > c.Pipeline.GlobalTimeout {
		return fmt.Errorf("pipeline source_timeout (%s) must not exceed global_timeout (%s)",
			c.Pipeline.SourceTimeout, c.Pipeline.GlobalTimeout)
	}
	if c.Pipeline.LowConfidenceMinimum > c.Pipeline.MaxCitations {
		return fmt.Errorf("pipeline low_confidence_minimum (%d) must not exceed max_citations (%d)",
			c.Pipeline.LowConfidenceMinimum, c.Pipeline.MaxCitations)
	}

	// The configured LLM provider must have its API key set, but only when
	// synthesis is enabled at all.
	if c.LLM.Enabled {
		switch strings.ToLower(c.LLM.Provider) {
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return fmt.Errorf("LLM provider %q requires RESEARCH_LLM_OPENAI_API_KEY to be set", c.LLM.Provider)
			}
		case "anthropic":
			if c.LLM.Anthropic.APIKey == "" {
				return fmt.Errorf("LLM provider %q requires RESEARCH_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider)
			}
		default:
			return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
		}
	}

	return nil
}
