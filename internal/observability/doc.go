// Package observability provides logging and metrics support for the
// research pipeline service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for pipeline runs, source fan-out, dedup, and
//     answer synthesis
//   - Context helpers for propagating request-scoped identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//	logger := observability.NewLogger(cfg)
//
// # Metrics
//
// Create metrics with a namespace and record pipeline events:
//
//	metrics := observability.NewMetrics("research_pipeline")
//	metrics.SearchesStarted.WithLabelValues("pubmed").Inc()
package observability
