package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/clindex/research-pipeline-service/internal/domain"
	"github.com/clindex/research-pipeline-service/internal/llm"
	"github.com/clindex/research-pipeline-service/internal/pipeline"
)

// maxRequestBodySize limits research request bodies.
const maxRequestBodySize = 1 << 20 // 1 MB

// researchRequest is the JSON request body for a research query.
type researchRequest struct {
	// Query is the natural-language research question.
	Query string `json:"query"`

	// MaxResults optionally lowers the citation cap for this request.
	MaxResults int `json:"max_results,omitempty"`

	// Synthesize requests a cited prose answer on top of the citation
	// list. Defaults to true when a synthesizer is configured.
	Synthesize *bool `json:"synthesize,omitempty"`
}

// researchResponse is the JSON response for a research query.
type researchResponse struct {
	// Answer is the cited prose answer. Omitted when synthesis is
	// disabled, not requested, or failed.
	Answer string `json:"answer,omitempty"`

	// Citations is the final ordered citation list.
	Citations []domain.Citation `json:"citations"`

	// DegradedSources lists sources that failed during the fan-out.
	DegradedSources []string `json:"degraded_sources"`

	// LowConfidence reports that fewer citations than desired survived
	// relevance filtering.
	LowConfidence bool `json:"low_confidence"`
}

// sourceResponse describes one configured research source.
type sourceResponse struct {
	Source  string `json:"source"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// research handles POST /api/v1/research.
func (s *Server) research(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req researchRequest
	body := io.LimitReader(r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.MaxResults < 0 {
		writeError(w, http.StatusBadRequest, "max_results must not be negative")
		return
	}

	result, err := s.runner.Run(r.Context(), pipeline.Request{
		Query:      req.Query,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrAllSourcesUnavailable):
			writeError(w, http.StatusServiceUnavailable, "research sources unavailable")
		default:
			s.logger.Error().Err(err).Msg("research request failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	resp := researchResponse{
		Citations:       result.Citations,
		DegradedSources: result.DegradedSources,
		LowConfidence:   result.LowConfidence,
	}

	if s.shouldSynthesize(req) && len(result.Citations) > 0 {
		synthResult, synthErr := s.synthesizer.Synthesize(r.Context(), llm.SynthesisRequest{
			Query:           req.Query,
			Citations:       result.Citations,
			LowConfidence:   result.LowConfidence,
			DegradedSources: result.DegradedSources,
		})
		if synthErr != nil {
			// Synthesis failure never hides the citations.
			s.logger.Warn().Err(synthErr).Msg("answer synthesis failed, serving citations only")
		} else {
			resp.Answer = synthResult.Answer
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// shouldSynthesize reports whether an answer should be generated for the
// request. Synthesis requires a configured synthesizer and is on by default,
// with an explicit opt-out per request.
func (s *Server) shouldSynthesize(req researchRequest) bool {
	if s.synthesizer == nil {
		return false
	}
	if req.Synthesize != nil {
		return *req.Synthesize
	}
	return true
}

// listSources handles GET /api/v1/sources.
func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	sources := s.registry.AllSources()
	resp := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		resp = append(resp, sourceResponse{
			Source:  string(src.SourceType()),
			Name:    src.Name(),
			Enabled: src.IsEnabled(),
		})
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Source < resp[j].Source })

	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": resp})
}
