package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIResponse(answer string) chatResponse {
	return chatResponse{
		ID:    "chatcmpl-test",
		Model: "gpt-4-turbo",
		Choices: []chatChoice{
			{Message: chatMessage{Role: "assistant", Content: answer}, FinishReason: "stop"},
		},
		Usage: chatUsage{PromptTokens: 420, CompletionTokens: 133, TotalTokens: 553},
	}
}

func newOpenAIProvider(baseURL string, maxRetries int) *OpenAIProvider {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: baseURL}, 0.2, 5*time.Second, maxRetries)
	p.retryDelay = time.Millisecond
	return p
}

func synthesisRequest() SynthesisRequest {
	return SynthesisRequest{
		Query:     "first-line treatment for type 2 diabetes",
		Citations: testCitations(),
	}
}

func TestOpenAIProvider_Synthesize(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(openAIResponse("Metformin is first-line [1].")))
	}))
	defer server.Close()

	result, err := newOpenAIProvider(server.URL, 0).Synthesize(context.Background(), synthesisRequest())
	require.NoError(t, err)

	assert.Equal(t, "Metformin is first-line [1].", result.Answer)
	assert.Equal(t, "gpt-4-turbo", result.Model)
	assert.Equal(t, 420, result.InputTokens)
	assert.Equal(t, 133, result.OutputTokens)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "[1] Jane Smith, Wei Chen.")
}

func TestOpenAIProvider_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(openAIResponse("answer [1]."))
	}))
	defer server.Close()

	result, err := newOpenAIProvider(server.URL, 2).Synthesize(context.Background(), synthesisRequest())
	require.NoError(t, err)
	assert.Equal(t, "answer [1].", result.Answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIProvider_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	_, err := newOpenAIProvider(server.URL, 3).Synthesize(context.Background(), synthesisRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx errors must not be retried")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "openai", apiErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid api key", apiErr.Message)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
}

func TestOpenAIProvider_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	}))
	defer server.Close()

	_, err := newOpenAIProvider(server.URL, 1).Synthesize(context.Background(), synthesisRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted 1 retries")
}

func TestOpenAIProvider_EmptyCitations(t *testing.T) {
	_, err := newOpenAIProvider("http://127.0.0.1:0", 0).Synthesize(context.Background(), SynthesisRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrNoCitations)
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{ID: "x"})
	}))
	defer server.Close()

	_, err := newOpenAIProvider(server.URL, 0).Synthesize(context.Background(), synthesisRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestOpenAIProvider_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects the client disconnect and
		// cancels the request context; otherwise this handler never returns.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newOpenAIProvider(server.URL, 0).Synthesize(ctx, synthesisRequest())
	assert.Error(t, err)
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, 0.2, 0, -1)
	assert.Equal(t, defaultOpenAIBaseURL, p.baseURL)
	assert.Equal(t, defaultOpenAIModel, p.model)
	assert.Equal(t, "openai", p.Provider())
	assert.Equal(t, defaultOpenAIModel, p.Model())
	assert.Zero(t, p.maxRetries)
}
