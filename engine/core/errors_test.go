package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("Should match by code through wrapping", func(t *testing.T) {
		err := fmt.Errorf("pipeline: %w", InvalidConfiguration("chunk_size", "must be positive, got %d", 0))
		assert.True(t, IsInvalidConfiguration(err))
		assert.False(t, IsServiceFailure(err))
		assert.Equal(t, ErrCodeInvalidConfiguration, ErrorCode(err))
	})

	t.Run("Should keep the cause reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := ServiceFailure(cause, "summarize", "chunk", 3)
		require.ErrorIs(t, err, cause)
		assert.True(t, IsServiceFailure(err))
		assert.Equal(t, 3, err.Details["chunk"])
		assert.Equal(t, "service failure (chunk=3, stage=summarize): connection reset", err.Error())
	})

	t.Run("Should return empty code for plain errors", func(t *testing.T) {
		assert.Empty(t, ErrorCode(errors.New("plain")))
	})
}
