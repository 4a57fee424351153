package embedder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relembraq/relembraq/engine/core"
)

type countingEmbedder struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (e *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	n := e.calls.Add(1)
	if n <= e.failures {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1, 2}, nil
}

func testConfig() *Config {
	return &Config{
		Provider:  ProviderMock,
		Model:     "mock",
		BatchSize: 8,
		Timeout:   time.Second,
		Retry: core.RetryPolicy{
			MaxRetries:  2,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
			Jitter:      time.Millisecond,
		},
	}
}

func TestAdapter_EmbedQuery(t *testing.T) {
	t.Run("Should serve repeated texts from cache", func(t *testing.T) {
		cfg := testConfig()
		cfg.CacheSize = 4
		impl := &countingEmbedder{}
		adapter, err := Wrap(cfg, impl)
		require.NoError(t, err)

		first, err := adapter.EmbedQuery(t.Context(), "célula")
		require.NoError(t, err)
		first[0] = 99
		second, err := adapter.EmbedQuery(t.Context(), "célula")
		require.NoError(t, err)

		assert.Equal(t, int32(1), impl.calls.Load())
		assert.Equal(t, []float32{float32(len("célula")), 1, 2}, second)
	})

	t.Run("Should retry transient provider failures", func(t *testing.T) {
		impl := &countingEmbedder{failures: 2, err: errors.New("API returned unexpected status code: 503")}
		adapter, err := Wrap(testConfig(), impl)
		require.NoError(t, err)

		vector, err := adapter.EmbedQuery(t.Context(), "abc")

		require.NoError(t, err)
		assert.Len(t, vector, 3)
		assert.Equal(t, int32(3), impl.calls.Load())
	})

	t.Run("Should not retry authentication failures", func(t *testing.T) {
		impl := &countingEmbedder{failures: 5, err: errors.New("API returned unexpected status code: 401: invalid api key")}
		adapter, err := Wrap(testConfig(), impl)
		require.NoError(t, err)

		_, err = adapter.EmbedQuery(t.Context(), "abc")

		require.Error(t, err)
		assert.ErrorContains(t, err, "401")
		assert.Equal(t, int32(1), impl.calls.Load())
	})

	t.Run("Should reject incomplete configuration", func(t *testing.T) {
		_, err := Wrap(&Config{Provider: ProviderMock, BatchSize: 1}, &countingEmbedder{})
		assert.ErrorIs(t, err, errMissingModel)
	})
}

func TestNew_MockProvider(t *testing.T) {
	t.Run("Should embed deterministically without network access", func(t *testing.T) {
		adapter, err := New(t.Context(), testConfig())
		require.NoError(t, err)

		a, err := adapter.EmbedQuery(t.Context(), "A fotossíntese produz oxigênio")
		require.NoError(t, err)
		b, err := adapter.EmbedQuery(t.Context(), "A fotossíntese produz oxigênio")
		require.NoError(t, err)
		c, err := adapter.EmbedQuery(t.Context(), "Mitocôndrias geram ATP")
		require.NoError(t, err)

		assert.Len(t, a, mockDimension)
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})
}
