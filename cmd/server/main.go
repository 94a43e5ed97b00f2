// Package main provides the entry point for the research pipeline service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clindex/research-pipeline-service/internal/config"
	"github.com/clindex/research-pipeline-service/internal/dedup"
	"github.com/clindex/research-pipeline-service/internal/fanout"
	"github.com/clindex/research-pipeline-service/internal/llm"
	"github.com/clindex/research-pipeline-service/internal/observability"
	"github.com/clindex/research-pipeline-service/internal/papersources"
	"github.com/clindex/research-pipeline-service/internal/papersources/cochrane"
	"github.com/clindex/research-pipeline-service/internal/papersources/crossref"
	"github.com/clindex/research-pipeline-service/internal/papersources/europepmc"
	"github.com/clindex/research-pipeline-service/internal/papersources/openalex"
	"github.com/clindex/research-pipeline-service/internal/papersources/openfda"
	"github.com/clindex/research-pipeline-service/internal/papersources/pubmed"
	"github.com/clindex/research-pipeline-service/internal/papersources/semanticscholar"
	"github.com/clindex/research-pipeline-service/internal/pipeline"
	"github.com/clindex/research-pipeline-service/internal/queryplan"
	"github.com/clindex/research-pipeline-service/internal/ranking"
	httpserver "github.com/clindex/research-pipeline-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("research-pipeline-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// Register the research source adapters.
	registry := buildRegistry(cfg.Sources)
	enabled := registry.EnabledSources()
	if len(enabled) == 0 {
		logger.Warn().Msg("no research sources enabled, all queries will fail")
	} else {
		names := make([]string, 0, len(enabled))
		for _, src := range enabled {
			names = append(names, src.Name())
		}
		logger.Info().Strs("sources", names).Msg("research sources enabled")
	}

	// Assemble the pipeline stages.
	builder := queryplan.NewBuilder(logger)
	coordinator := fanout.NewCoordinator(registry, logger, metrics)
	merger := dedup.NewMerger(logger, metrics)
	scorer := ranking.NewScorer(logger, metrics)
	classifier := ranking.NewClassifier()

	research := pipeline.New(
		builder,
		coordinator,
		merger,
		scorer,
		classifier,
		pipeline.Options{
			Fanout: fanout.Options{
				GlobalTimeout:       cfg.Pipeline.GlobalTimeout,
				SourceTimeout:       cfg.Pipeline.SourceTimeout,
				MaxResultsPerSource: cfg.Pipeline.MaxResultsPerSource,
			},
			Selector: ranking.SelectorConfig{
				MaxCitations:         cfg.Pipeline.MaxCitations,
				RelevanceFloor:       cfg.Pipeline.RelevanceFloor,
				LowConfidenceMinimum: cfg.Pipeline.LowConfidenceMinimum,
			},
		},
		logger,
		metrics,
	)

	// Create the answer synthesizer if synthesis is enabled.
	var synthesizer llm.AnswerSynthesizer
	if cfg.LLM.Enabled {
		synthesizer, err = llm.NewAnswerSynthesizer(llm.FactoryConfig{
			Provider:    cfg.LLM.Provider,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxRetries:  cfg.LLM.MaxRetries,
			OpenAI: llm.OpenAIConfig{
				APIKey:  cfg.LLM.OpenAI.APIKey,
				Model:   cfg.LLM.OpenAI.Model,
				BaseURL: cfg.LLM.OpenAI.BaseURL,
			},
			Anthropic: llm.AnthropicConfig{
				APIKey:  cfg.LLM.Anthropic.APIKey,
				Model:   cfg.LLM.Anthropic.Model,
				BaseURL: cfg.LLM.Anthropic.BaseURL,
			},
		})
		if err != nil {
			return fmt.Errorf("create answer synthesizer: %w", err)
		}
		synthesizer = llm.NewInstrumentedSynthesizer(synthesizer, metrics)
		logger.Info().
			Str("provider", synthesizer.Provider()).
			Str("model", synthesizer.Model()).
			Msg("answer synthesis enabled")
	} else {
		logger.Info().Msg("answer synthesis disabled, serving citations only")
	}

	// Create the HTTP API server.
	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, research, synthesizer, registry, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-pipeline-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down research-pipeline-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("research-pipeline-service shutdown complete")
	return nil
}

// buildRegistry constructs clients for every research source and registers
// them. Disabled sources are registered too so the API can list them.
func buildRegistry(sources config.SourcesConfig) *papersources.Registry {
	registry := papersources.NewRegistry()

	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:    sources.PubMed.BaseURL,
		APIKey:     sources.PubMed.APIKey,
		Timeout:    sources.PubMed.Timeout,
		RateLimit:  sources.PubMed.RateLimit,
		BurstSize:  sources.PubMed.BurstSize,
		MaxResults: sources.PubMed.MaxResults,
		Enabled:    sources.PubMed.Enabled,
	}))

	registry.Register(europepmc.New(europepmc.Config{
		BaseURL:    sources.EuropePMC.BaseURL,
		Timeout:    sources.EuropePMC.Timeout,
		RateLimit:  sources.EuropePMC.RateLimit,
		BurstSize:  sources.EuropePMC.BurstSize,
		MaxResults: sources.EuropePMC.MaxResults,
		Enabled:    sources.EuropePMC.Enabled,
	}))

	registry.Register(cochrane.New(cochrane.Config{
		BaseURL:    sources.Cochrane.BaseURL,
		Timeout:    sources.Cochrane.Timeout,
		RateLimit:  sources.Cochrane.RateLimit,
		BurstSize:  sources.Cochrane.BurstSize,
		MaxResults: sources.Cochrane.MaxResults,
		Enabled:    sources.Cochrane.Enabled,
	}))

	registry.Register(semanticscholar.New(semanticscholar.Config{
		BaseURL:    sources.SemanticScholar.BaseURL,
		APIKey:     sources.SemanticScholar.APIKey,
		Timeout:    sources.SemanticScholar.Timeout,
		RateLimit:  sources.SemanticScholar.RateLimit,
		BurstSize:  sources.SemanticScholar.BurstSize,
		MaxResults: sources.SemanticScholar.MaxResults,
		Enabled:    sources.SemanticScholar.Enabled,
	}))

	registry.Register(crossref.New(crossref.Config{
		BaseURL:    sources.CrossRef.BaseURL,
		MailTo:     sources.CrossRef.Email,
		Timeout:    sources.CrossRef.Timeout,
		RateLimit:  sources.CrossRef.RateLimit,
		BurstSize:  sources.CrossRef.BurstSize,
		MaxResults: sources.CrossRef.MaxResults,
		Enabled:    sources.CrossRef.Enabled,
	}))

	registry.Register(openalex.New(openalex.Config{
		BaseURL:    sources.OpenAlex.BaseURL,
		Email:      sources.OpenAlex.Email,
		Timeout:    sources.OpenAlex.Timeout,
		RateLimit:  sources.OpenAlex.RateLimit,
		BurstSize:  sources.OpenAlex.BurstSize,
		MaxResults: sources.OpenAlex.MaxResults,
		Enabled:    sources.OpenAlex.Enabled,
	}))

	registry.Register(openfda.New(openfda.Config{
		BaseURL:    sources.OpenFDA.BaseURL,
		APIKey:     sources.OpenFDA.APIKey,
		Timeout:    sources.OpenFDA.Timeout,
		RateLimit:  sources.OpenFDA.RateLimit,
		BurstSize:  sources.OpenFDA.BurstSize,
		MaxResults: sources.OpenFDA.MaxResults,
		Enabled:    sources.OpenFDA.Enabled,
	}))

	return registry
}
