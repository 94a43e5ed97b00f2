package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withLLMKey sets the API key the default provider requires, so Load can
// succeed without a config file.
func withLLMKey(t *testing.T) {
	t.Helper()
	t.Setenv("RESEARCH_LLM_OPENAI_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	withLLMKey(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, 12*time.Second, cfg.Pipeline.GlobalTimeout)
	assert.Equal(t, 8*time.Second, cfg.Pipeline.SourceTimeout)
	assert.Equal(t, 25, cfg.Pipeline.MaxResultsPerSource)
	assert.Equal(t, 8, cfg.Pipeline.MaxCitations)
	assert.InDelta(t, 0.35, cfg.Pipeline.RelevanceFloor, 0.001)
	assert.Equal(t, 3, cfg.Pipeline.LowConfidenceMinimum)

	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "test-key", cfg.LLM.OpenAI.APIKey)

	assert.True(t, cfg.Sources.PubMed.Enabled)
	assert.Equal(t, "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", cfg.Sources.PubMed.BaseURL)
	assert.InDelta(t, 3.0, cfg.Sources.PubMed.RateLimit, 0.001)
	assert.True(t, cfg.Sources.Cochrane.Enabled)
	assert.True(t, cfg.Sources.OpenFDA.Enabled)
	assert.Equal(t, 10, cfg.Sources.OpenFDA.MaxResults)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	withLLMKey(t)
	t.Setenv("RESEARCH_SERVER_HTTP_PORT", "9999")
	t.Setenv("RESEARCH_LOGGING_LEVEL", "debug")
	t.Setenv("RESEARCH_PIPELINE_MAX_CITATIONS", "5")
	t.Setenv("RESEARCH_SOURCES_OPENALEX_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Pipeline.MaxCitations)
	assert.False(t, cfg.Sources.OpenAlex.Enabled)
}

func TestLoad_SecretsComeFromEnvironment(t *testing.T) {
	withLLMKey(t)
	t.Setenv("RESEARCH_SOURCES_PUBMED_API_KEY", "ncbi-key")
	t.Setenv("RESEARCH_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "s2-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ncbi-key", cfg.Sources.PubMed.APIKey)
	assert.Equal(t, "s2-key", cfg.Sources.SemanticScholar.APIKey)
}

func TestLoad_MissingLLMKeyFails(t *testing.T) {
	t.Setenv("RESEARCH_LLM_OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEARCH_LLM_OPENAI_API_KEY")
}

func TestLoad_SynthesisDisabledNeedsNoKey(t *testing.T) {
	t.Setenv("RESEARCH_LLM_OPENAI_API_KEY", "")
	t.Setenv("RESEARCH_LLM_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LLM.Enabled)
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		withLLMKey(t)
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("invalid log level", func(t *testing.T) {
		cfg := valid(t)
		cfg.Logging.Level = "verbose"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Level")
	})

	t.Run("invalid http port", func(t *testing.T) {
		cfg := valid(t)
		cfg.Server.HTTPPort = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("source timeout exceeds global", func(t *testing.T) {
		cfg := valid(t)
		cfg.Pipeline.SourceTimeout = 20 * time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source_timeout")
	})

	t.Run("low confidence minimum exceeds cap", func(t *testing.T) {
		cfg := valid(t)
		cfg.Pipeline.LowConfidenceMinimum = 20
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "low_confidence_minimum")
	})

	t.Run("unsupported provider", func(t *testing.T) {
		cfg := valid(t)
		cfg.LLM.Provider = "bard"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})

	t.Run("relevance floor out of range", func(t *testing.T) {
		cfg := valid(t)
		cfg.Pipeline.RelevanceFloor = 1.5
		assert.Error(t, cfg.Validate())
	})
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080, MetricsPort: 9091}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}
