package ragerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindMatching(t *testing.T) {
	err := Document("empty file", nil)
	assert.True(t, Is(err, KindDocument))
	assert.False(t, Is(err, KindSession))
	assert.Equal(t, KindDocument, KindOf(err))
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := Processing("split failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")

	wrapped := fmt.Errorf("pipeline: %w", err)
	assert.True(t, Is(wrapped, KindProcessing))
}

func TestValidationErrorsAggregation(t *testing.T) {
	var verrs ValidationErrors
	require.Nil(t, verrs.AsError())

	verrs.Add("top_k must be positive, got %d", -1)
	verrs.Add("similarity_threshold out of range")

	err := verrs.AsError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestIsSentinelComparison(t *testing.T) {
	a := ModelInit("provider down", nil)
	b := &Error{Kind: KindModelInit}
	assert.True(t, errors.Is(a, b))
}
