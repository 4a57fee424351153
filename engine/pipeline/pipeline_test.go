package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/infra/sqlite"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/engine/memory/tokens"
	"github.com/relembraq/relembraq/engine/summary"
	"github.com/relembraq/relembraq/pkg/config"
)

type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (c *scriptedLLM) GenerateContent(_ context.Context, _ *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	reply := c.replies[(c.calls-1)%len(c.replies)]
	return &llmadapter.LLMResponse{Content: reply}, nil
}

func (c *scriptedLLM) Close() error { return nil }

type tableEmbedder struct {
	vectors map[string][]float32
	calls   atomic.Int32
}

func (e *tableEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

type countingObserver struct {
	done []summary.Progress
}

func (o *countingObserver) OnChunkStart(context.Context, summary.Progress) {}

func (o *countingObserver) OnChunkDone(_ context.Context, p summary.Progress) {
	o.done = append(o.done, p)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Provider = "mock"
	cfg.LLM.Model = "mock"
	cfg.Embedder.Provider = "mock"
	cfg.Embedder.Model = "mock"
	cfg.Summary.ChunkSize = 50
	cfg.Cluster.NClusters = 2
	cfg.Retry.MaxRetries = 0
	cfg.Output.Dir = t.TempDir()
	cfg.Checkpoint.Enabled = false
	return cfg
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("palavra%d", i)
	}
	return strings.Join(parts, " ")
}

func abDeps() (*Deps, *scriptedLLM, *tableEmbedder) {
	llm := &scriptedLLM{replies: []string{
		`[{"resumo":"A"}]`,
		`[{"resumo":"A"},{"resumo":"B"}]`,
	}}
	emb := &tableEmbedder{vectors: map[string][]float32{
		"A": {1, 0, 0},
		"B": {0, 1, 0},
	}}
	return &Deps{LLM: llm, Embedder: emb, Counter: tokens.WordCounter{}}, llm, emb
}

func TestPipeline_Run(t *testing.T) {
	t.Run("Should dedupe and cluster the two-chunk scenario", func(t *testing.T) {
		cfg := testConfig(t)
		deps, llm, emb := abDeps()
		observer := &countingObserver{}
		p, err := New(cfg, deps, WithObserver(observer))
		require.NoError(t, err)

		out, err := p.Run(t.Context(), &Input{Text: words(100)})

		require.NoError(t, err)
		assert.Equal(t, 2, llm.calls)
		assert.Equal(t, 2, out.Chunks)
		assert.Len(t, observer.done, 2)
		assert.Equal(t, []summary.Record{{Resumo: "A"}, {Resumo: "A"}, {Resumo: "B"}}, out.Records)
		assert.Equal(t, []summary.Record{{Resumo: "A"}, {Resumo: "B"}}, out.Unique)
		assert.Equal(t, int32(2), emb.calls.Load())
		require.Len(t, out.Cluster.Assignment, 2)
		assert.Len(t, out.Cluster.Assignment[0], 1)
		assert.Len(t, out.Cluster.Assignment[1], 1)
		assert.NotEqual(t, out.Cluster.Labels[0], out.Cluster.Labels[1])
		assert.Nil(t, out.Points)

		data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "resumo_aula.json"))
		require.NoError(t, err)
		assert.Equal(t,
			"[\n    {\n        \"resumo\": \"A\"\n    },\n    {\n        \"resumo\": \"B\"\n    }\n]\n",
			string(data),
		)
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, "mapa_mental.txt"))
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, "mapa_mental.md"))
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, "mapa_mental.pdf"))
		assert.NoFileExists(t, filepath.Join(cfg.Output.Dir, "clusters_3d.pdf"))
	})

	t.Run("Should reject a cluster count above the distinct summaries before embedding", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Cluster.NClusters = 5
		deps, _, emb := abDeps()
		p, err := New(cfg, deps)
		require.NoError(t, err)

		_, err = p.Run(t.Context(), &Input{Text: words(100)})

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
		assert.Zero(t, emb.calls.Load())
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, "resumo_aula.json"))
	})

	t.Run("Should abort naming the failed chunk", func(t *testing.T) {
		cfg := testConfig(t)
		deps, llm, _ := abDeps()
		llm.err = llmadapter.NewErrorWithCode(llmadapter.ErrCodeUnauthorized, "invalid key", "openai", nil)
		p, err := New(cfg, deps)
		require.NoError(t, err)

		_, err = p.Run(t.Context(), &Input{Text: words(100)})

		require.Error(t, err)
		assert.True(t, core.IsServiceFailure(err))
		assert.Contains(t, err.Error(), "chunk=1")
		assert.Equal(t, 1, llm.calls)
	})

	t.Run("Should reject input without text", func(t *testing.T) {
		deps, llm, _ := abDeps()
		p, err := New(testConfig(t), deps)
		require.NoError(t, err)

		_, err = p.Run(t.Context(), &Input{Text: "   \n\t "})

		assert.True(t, core.IsInvalidConfiguration(err))
		assert.Zero(t, llm.calls)
	})

	t.Run("Should reject input without documents", func(t *testing.T) {
		deps, _, _ := abDeps()
		p, err := New(testConfig(t), deps)
		require.NoError(t, err)

		_, err = p.Run(t.Context(), &Input{})

		assert.True(t, core.IsInvalidConfiguration(err))
	})

	t.Run("Should stop when the context is canceled", func(t *testing.T) {
		deps, llm, _ := abDeps()
		p, err := New(testConfig(t), deps)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err = p.Run(ctx, &Input{Text: words(100)})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, llm.calls)
	})
}

func TestPipeline_New(t *testing.T) {
	t.Run("Should reject an invalid chunk size before any call", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Summary.ChunkSize = 10
		deps, llm, _ := abDeps()

		_, err := New(cfg, deps)

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
		assert.Zero(t, llm.calls)
	})

	t.Run("Should reject missing clients", func(t *testing.T) {
		_, err := New(testConfig(t), &Deps{})
		assert.True(t, core.IsInvalidConfiguration(err))
	})
}

func TestPipeline_Checkpoints(t *testing.T) {
	t.Run("Should resume completed chunks without calling the model", func(t *testing.T) {
		cfg := testConfig(t)
		store, err := sqlite.NewStore(t.Context(), &sqlite.Config{Path: filepath.Join(t.TempDir(), "relembraq.db")})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		repo := sqlite.NewCheckpointRepo(store.DB())
		text := words(100)

		deps, llm, _ := abDeps()
		deps.Checkpoints = repo
		p, err := New(cfg, deps)
		require.NoError(t, err)
		first, err := p.Run(t.Context(), &Input{Text: text})
		require.NoError(t, err)
		require.Equal(t, 2, llm.calls)

		deps2, llm2, _ := abDeps()
		llm2.err = llmadapter.NewErrorWithCode(llmadapter.ErrCodeUnauthorized, "offline", "openai", nil)
		deps2.Checkpoints = repo
		observer := &countingObserver{}
		p2, err := New(cfg, deps2, WithObserver(observer))
		require.NoError(t, err)
		second, err := p2.Run(t.Context(), &Input{Text: text})

		require.NoError(t, err)
		assert.Zero(t, llm2.calls)
		assert.Equal(t, first.Unique, second.Unique)
		assert.Equal(t, first.Document, second.Document)
		assert.NotEqual(t, first.RunID, second.RunID)
		require.Len(t, observer.done, 2)
		assert.True(t, observer.done[0].Resumed)
		run, err := repo.GetRun(t.Context(), second.RunID)
		require.NoError(t, err)
		assert.Equal(t, sqlite.RunStatusCompleted, run.Status)
	})
}

func TestNewDeps(t *testing.T) {
	t.Run("Should run end to end on the offline providers", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Checkpoint.Enabled = true
		cfg.Checkpoint.Path = filepath.Join(t.TempDir(), "relembraq.db")
		deps, err := NewDeps(t.Context(), cfg)
		require.NoError(t, err)
		defer func() { assert.NoError(t, deps.Close()) }()
		deps.Counter = tokens.WordCounter{}
		sentences := make([]string, 10)
		for i := range sentences {
			sentences[i] = fmt.Sprintf(
				"Tema%d explica conceito%d com exemplo%d sobre biologia celular e energia.", i, i, i,
			)
		}
		p, err := New(cfg, deps)
		require.NoError(t, err)

		out, err := p.Run(t.Context(), &Input{Text: strings.Join(sentences, " ")})

		require.NoError(t, err)
		assert.Len(t, out.Unique, 4)
		assert.Len(t, out.Points, 4)
		total := 0
		for _, members := range out.Cluster.Assignment {
			total += len(members)
		}
		assert.Equal(t, 4, total)
		assert.FileExists(t, filepath.Join(cfg.Output.Dir, "clusters_3d.pdf"))
		assert.Len(t, out.Artifacts, 5)
	})
}

func TestNewDeps_Prompt(t *testing.T) {
	t.Run("Should load the configured prompt file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Summary.PromptFile = filepath.Join(t.TempDir(), "curto.tmpl")
		require.NoError(t, os.WriteFile(cfg.Summary.PromptFile, []byte("Resuma: {{ .Text }}"), 0o600))

		deps, err := NewDeps(t.Context(), cfg)

		require.NoError(t, err)
		defer func() { assert.NoError(t, deps.Close()) }()
		require.NotNil(t, deps.Prompt)
		assert.Equal(t, "curto.tmpl", deps.Prompt.Name())
	})

	t.Run("Should reject a broken prompt file as invalid configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Summary.PromptFile = filepath.Join(t.TempDir(), "quebrado.tmpl")
		require.NoError(t, os.WriteFile(cfg.Summary.PromptFile, []byte("{{ .Texto }}"), 0o600))

		_, err := NewDeps(t.Context(), cfg)

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
		assert.Contains(t, err.Error(), "param=summary.prompt_file")
	})
}

func TestPipeline_Tracing(t *testing.T) {
	newProvider := func(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
		t.Helper()
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		t.Cleanup(func() { _ = tp.Shutdown(context.WithoutCancel(t.Context())) })
		return tp, recorder
	}

	t.Run("Should record one span per stage", func(t *testing.T) {
		tp, recorder := newProvider(t)
		deps, _, _ := abDeps()
		p, err := New(testConfig(t), deps, WithTracerProvider(tp))
		require.NoError(t, err)

		_, err = p.Run(t.Context(), &Input{Text: words(100)})

		require.NoError(t, err)
		names := make([]string, 0, len(recorder.Ended()))
		for _, span := range recorder.Ended() {
			names = append(names, span.Name())
			assert.NotEqual(t, codes.Error, span.Status().Code)
		}
		assert.ElementsMatch(t, []string{
			"relembraq.pipeline.summarize",
			"relembraq.pipeline.cluster",
			"relembraq.pipeline.project",
			"relembraq.pipeline.run",
		}, names)
	})

	t.Run("Should mark the failing stage and the run as errors", func(t *testing.T) {
		tp, recorder := newProvider(t)
		cfg := testConfig(t)
		cfg.Cluster.NClusters = 5
		deps, _, _ := abDeps()
		p, err := New(cfg, deps, WithTracerProvider(tp))
		require.NoError(t, err)

		_, err = p.Run(t.Context(), &Input{Text: words(100)})

		require.Error(t, err)
		failed := map[string]bool{}
		for _, span := range recorder.Ended() {
			failed[span.Name()] = span.Status().Code == codes.Error
		}
		assert.False(t, failed["relembraq.pipeline.summarize"])
		assert.True(t, failed["relembraq.pipeline.cluster"])
		assert.True(t, failed["relembraq.pipeline.run"])
		assert.NotContains(t, failed, "relembraq.pipeline.project")
	})
}

func TestLLMLimits(t *testing.T) {
	t.Run("Should pass the configured burst to the llm limiter", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LLM.Concurrency = 2
		cfg.LLM.RateLimit = 1.5
		cfg.LLM.Burst = 6

		limits := llmLimits(cfg)

		assert.Equal(t, llmadapter.Limits{Concurrency: 2, RequestsPerSecond: 1.5, Burst: 6}, limits)
	})
}
