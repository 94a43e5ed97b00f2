package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("query", "must not be empty")
	assert.Contains(t, err.Error(), "query")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRateLimitErrorUnwrap(t *testing.T) {
	err := NewRateLimitError("PubMed", 2*time.Second)
	assert.Contains(t, err.Error(), "PubMed")
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestExternalAPIError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewExternalAPIError("CrossRef", 502, "bad gateway", cause)

	assert.Contains(t, err.Error(), "CrossRef")
	assert.Contains(t, err.Error(), "502")
	assert.True(t, errors.Is(err, cause))
}

func TestMalformedResponseErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewMalformedResponseError("OpenAlex", cause)

	assert.Contains(t, err.Error(), "OpenAlex")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestWrappedSentinelSurvivesFmtErrorf(t *testing.T) {
	inner := NewRateLimitError("Europe PMC", time.Second)
	wrapped := fmt.Errorf("fan-out: %w", inner)

	require.True(t, errors.Is(wrapped, ErrRateLimited))

	var rle *RateLimitError
	require.True(t, errors.As(wrapped, &rle))
	assert.Equal(t, "Europe PMC", rle.Source)
}
