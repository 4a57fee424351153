package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIProvider_Load(t *testing.T) {
	t.Run("Should nest known flags and skip the rest", func(t *testing.T) {
		provider := NewCLIProvider(map[string]any{
			"chunk-size": "200",
			"provider":   "mock",
			"log-level":  "debug",
		})

		data, err := provider.Load()

		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"summary": map[string]any{"chunk_size": "200"},
			"llm":     map[string]any{"provider": "mock"},
		}, data)
		assert.Equal(t, SourceCLI, provider.Type())
	})
}

func TestCLIFlagPath(t *testing.T) {
	t.Run("Should resolve bound flags only", func(t *testing.T) {
		path, ok := CLIFlagPath("clusters")
		assert.True(t, ok)
		assert.Equal(t, "cluster.n_clusters", path)

		_, ok = CLIFlagPath("config")
		assert.False(t, ok)
	})
}

func TestSetNested(t *testing.T) {
	t.Run("Should create intermediate maps", func(t *testing.T) {
		m := map[string]any{}
		require.NoError(t, setNested(m, "a.b.c", 1))
		require.NoError(t, setNested(m, "a.b.d", 2))
		assert.Equal(t, map[string]any{"a": map[string]any{"b": map[string]any{"c": 1, "d": 2}}}, m)
	})

	t.Run("Should refuse to descend into a scalar", func(t *testing.T) {
		m := map[string]any{"a": "value"}
		err := setNested(m, "a.b", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `key "a" is not a map`)
	})
}

func TestYAMLProvider_Load(t *testing.T) {
	t.Run("Should drop null values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "relembraq.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cluster:\n  n_clusters: 4\n  seed:\nllm:\n  model:\n"), 0o600))

		data, err := NewYAMLProvider(path).Load()

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"cluster": map[string]any{"n_clusters": 4}}, data)
	})

	t.Run("Should treat a missing file as empty", func(t *testing.T) {
		data, err := NewYAMLProvider(filepath.Join(t.TempDir(), "absent.yaml")).Load()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Should fail on malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("summary: [unterminated"), 0o600))
		_, err := NewYAMLProvider(path).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML file")
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("Should load files without overriding the environment", func(t *testing.T) {
		t.Setenv("RELEMBRAQ_OUTPUT_DIR", "from-env")
		t.Setenv("RELEMBRAQ_LLM_MODEL", "")
		os.Unsetenv("RELEMBRAQ_LLM_MODEL")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("RELEMBRAQ_OUTPUT_DIR=from-file\nRELEMBRAQ_LLM_MODEL=gpt-4o\n"), 0o600))

		require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))

		assert.Equal(t, "from-env", os.Getenv("RELEMBRAQ_OUTPUT_DIR"))
		assert.Equal(t, "gpt-4o", os.Getenv("RELEMBRAQ_LLM_MODEL"))
	})
}
