// Package llm provides LLM-based answer synthesis over selected citations.
//
// This package defines the abstractions and prompt construction required to
// turn a ranked citation list into a cited prose answer using large language
// models (OpenAI, Anthropic). The synthesizer is the last pipeline boundary:
// it receives only the final citation list and never influences retrieval,
// scoring, or selection.
//
// Example usage:
//
//	synth, _ := llm.NewAnswerSynthesizer(cfg)
//	req := llm.SynthesisRequest{
//		Query:     "What is the first-line treatment for type 2 diabetes?",
//		Citations: citations,
//	}
//	result, err := synth.Synthesize(ctx, req)
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

// SynthesisRequest contains the inputs for one answer synthesis.
type SynthesisRequest struct {
	// Query is the user's original question.
	Query string

	// Citations is the final ranked citation list. Reference numbers in the
	// generated answer are 1-based positions in this slice.
	Citations []domain.Citation

	// LowConfidence signals that fewer citations than desired survived
	// relevance filtering. The model is instructed to hedge accordingly.
	LowConfidence bool

	// DegradedSources lists sources that failed during retrieval, so the
	// answer can acknowledge partial coverage.
	DegradedSources []string
}

// SynthesisResult contains the generated answer and usage metadata.
type SynthesisResult struct {
	// Answer is the cited prose answer.
	Answer string

	// Model is the LLM model that produced the answer.
	Model string

	// InputTokens is the number of input tokens used.
	InputTokens int

	// OutputTokens is the number of output tokens used.
	OutputTokens int
}

// AnswerSynthesizer defines the interface for LLM-based answer synthesis.
//
// Implementations should handle provider-specific API calls, response parsing,
// and error handling while conforming to this unified interface.
type AnswerSynthesizer interface {
	// Synthesize generates a cited prose answer from the request's citation
	// list. The context should be used for cancellation and deadline
	// propagation.
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)

	// Provider returns the name of the LLM provider (e.g., "openai", "anthropic").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}

// BuildSynthesisPrompt builds the system and user prompts for answer
// synthesis. The system prompt pins the model to the supplied references; the
// user prompt carries the question and the numbered reference list.
func BuildSynthesisPrompt(req SynthesisRequest) (systemPrompt, userPrompt string) {
	return buildSystemPrompt(req), buildUserPrompt(req)
}

func buildSystemPrompt(req SynthesisRequest) string {
	var sb strings.Builder

	sb.WriteString("You are a medical research assistant. Answer the user's question ")
	sb.WriteString("using ONLY the numbered references provided. Do not use any outside ")
	sb.WriteString("knowledge and do not invent citations.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("1. Cite every factual claim with its reference number in square brackets, e.g. [1] or [2,3].\n")
	sb.WriteString("2. Give more weight to references labeled as systematic reviews, guidelines, and randomized trials than to lower-tier evidence.\n")
	sb.WriteString("3. If the references disagree, say so and cite both sides.\n")
	sb.WriteString("4. If the references do not answer the question, say so plainly instead of speculating.\n")
	sb.WriteString("5. Write for a clinically literate reader; keep the answer under 300 words.\n")

	if req.LowConfidence {
		sb.WriteString("\nThe reference list is thinner than usual for this question. ")
		sb.WriteString("State clearly that the evidence base found was limited.\n")
	}
	if len(req.DegradedSources) > 0 {
		sb.WriteString("\nSome literature databases were unavailable during this search ")
		sb.WriteString("(" + strings.Join(req.DegradedSources, ", ") + "), so coverage is partial. ")
		sb.WriteString("Mention this limitation briefly.\n")
	}

	return sb.String()
}

func buildUserPrompt(req SynthesisRequest) string {
	var sb strings.Builder

	sb.WriteString("Question: ")
	sb.WriteString(req.Query)
	sb.WriteString("\n\nReferences:\n")
	sb.WriteString(FormatReferences(req.Citations))

	return sb.String()
}

// FormatReferences renders the citation list as numbered references, one per
// line, in the order used for in-text citation numbers.
func FormatReferences(citations []domain.Citation) string {
	var sb strings.Builder
	for i, c := range citations {
		sb.WriteString(fmt.Sprintf("[%d] %s", i+1, formatAuthors(c.Authors)))
		sb.WriteString(fmt.Sprintf(" \"%s.\"", strings.TrimSuffix(c.Title, ".")))
		if c.Journal != "" {
			sb.WriteString(" " + c.Journal)
			if c.Year > 0 {
				sb.WriteString(fmt.Sprintf(", %d", c.Year))
			}
			sb.WriteString(".")
		} else if c.Year > 0 {
			sb.WriteString(fmt.Sprintf(" %d.", c.Year))
		}
		sb.WriteString(" [" + c.Tier + "]")
		if c.DOI != "" {
			sb.WriteString(" doi:" + c.DOI)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// maxListedAuthors caps the author names rendered per reference; longer lists
// are truncated with "et al.".
const maxListedAuthors = 3

func formatAuthors(authors []string) string {
	if len(authors) == 0 {
		return "[no authors listed]"
	}
	if len(authors) <= maxListedAuthors {
		return strings.Join(authors, ", ") + "."
	}
	return strings.Join(authors[:maxListedAuthors], ", ") + ", et al."
}
