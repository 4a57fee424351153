package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/knowledge/chunk"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/engine/llm/orchestrator"
)

type scriptedReply struct {
	content string
	err     error
}

type scriptedClient struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests []*llmadapter.LLMRequest
}

func (c *scriptedClient) GenerateContent(_ context.Context, req *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &llmadapter.LLMResponse{Content: next.content}, nil
}

func (c *scriptedClient) Close() error { return nil }

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type memoryCheckpointer struct {
	saved map[int][]Record
}

func (m *memoryCheckpointer) Load(_ context.Context, index int, _ string) ([]Record, bool, error) {
	records, ok := m.saved[index]
	return records, ok, nil
}

func (m *memoryCheckpointer) Save(_ context.Context, index int, _ string, records []Record) error {
	if m.saved == nil {
		m.saved = map[int][]Record{}
	}
	m.saved[index] = records
	return nil
}

type recordingObserver struct {
	started []Progress
	done    []Progress
}

func (o *recordingObserver) OnChunkStart(_ context.Context, p Progress) { o.started = append(o.started, p) }
func (o *recordingObserver) OnChunkDone(_ context.Context, p Progress)  { o.done = append(o.done, p) }

type stubInvoker struct {
	content string
	calls   int
}

func (s *stubInvoker) Invoke(
	context.Context,
	llmadapter.LLMClient,
	*llmadapter.LLMRequest,
) (*llmadapter.LLMResponse, error) {
	s.calls++
	return &llmadapter.LLMResponse{Content: s.content}, nil
}

func testOptions(mode string) Options {
	return Options{
		MemoryMode:  mode,
		MaxMessages: 8,
		Invoker: orchestrator.Settings{
			Timeout: time.Second,
			Retry: core.RetryPolicy{
				MaxRetries:  2,
				BaseBackoff: time.Millisecond,
				MaxBackoff:  2 * time.Millisecond,
				Jitter:      time.Millisecond,
			},
		},
	}
}

func buildChunks(t *testing.T, text string, size int) []chunk.Chunk {
	t.Helper()
	chunks, err := chunk.Build(text, size)
	require.NoError(t, err)
	return chunks
}

func TestLoop_Run(t *testing.T) {
	t.Run("Should keep a malformed reply as one raw record", func(t *testing.T) {
		client := &scriptedClient{replies: []scriptedReply{{content: "Resumo: o tema é fotossíntese."}}}
		loop := NewLoop(client, testOptions(MemoryModeWindow))

		result, err := loop.Run(t.Context(), buildChunks(t, "a fotossíntese ocorre nas folhas", 150))

		require.NoError(t, err)
		assert.Equal(t, []Record{{Resumo: "Resumo: o tema é fotossíntese."}}, result.Records)
	})

	t.Run("Should collect records in chunk order", func(t *testing.T) {
		client := &scriptedClient{replies: []scriptedReply{
			{content: `[{"resumo":"A"}]`},
			{content: `[{"resumo":"A"},{"resumo":"B"}]`},
		}}
		loop := NewLoop(client, testOptions(MemoryModeWindow))

		result, err := loop.Run(t.Context(), buildChunks(t, "um dois três quatro", 2))

		require.NoError(t, err)
		assert.Equal(t, []Record{{Resumo: "A"}, {Resumo: "A"}, {Resumo: "B"}}, result.Records)
		assert.Equal(t, []Record{{Resumo: "A"}, {Resumo: "B"}}, Dedupe(result.Records))
		require.Len(t, result.Memory, 2)
		for _, m := range result.Memory {
			assert.Equal(t, llmadapter.RoleUser, m.Role)
		}
	})

	t.Run("Should send the growing conversation in window mode", func(t *testing.T) {
		client := &scriptedClient{replies: []scriptedReply{{content: "[]"}, {content: "[]"}, {content: "[]"}}}
		loop := NewLoop(client, testOptions(MemoryModeWindow))

		_, err := loop.Run(t.Context(), buildChunks(t, "a b c", 1))

		require.NoError(t, err)
		require.Len(t, client.requests, 3)
		assert.Len(t, client.requests[0].Messages, 1)
		assert.Len(t, client.requests[1].Messages, 2)
		assert.Len(t, client.requests[2].Messages, 3)
		assert.Contains(t, client.requests[2].Messages[2].Content, "Gere um resumo do seguinte texto:\nc\n")
	})

	t.Run("Should send only the newest prompt in latest mode", func(t *testing.T) {
		client := &scriptedClient{replies: []scriptedReply{{content: "[]"}, {content: "[]"}}}
		loop := NewLoop(client, testOptions(MemoryModeLatest))

		result, err := loop.Run(t.Context(), buildChunks(t, "a b", 1))

		require.NoError(t, err)
		require.Len(t, client.requests, 2)
		require.Len(t, client.requests[1].Messages, 1)
		assert.Contains(t, client.requests[1].Messages[0].Content, "\nb\n")
		assert.Len(t, result.Memory, 2)
	})

	t.Run("Should retry transient failures before summarizing", func(t *testing.T) {
		client := &scriptedClient{replies: []scriptedReply{
			{err: errors.New("HTTP 503 service unavailable")},
			{content: `{"resumo":"único"}`},
		}}
		loop := NewLoop(client, testOptions(MemoryModeWindow))

		result, err := loop.Run(t.Context(), buildChunks(t, "texto curto", 150))

		require.NoError(t, err)
		assert.Equal(t, []Record{{Resumo: "único"}}, result.Records)
		assert.Equal(t, 2, client.calls())
	})

	t.Run("Should abort with a service failure naming the chunk", func(t *testing.T) {
		authErr := llmadapter.NewErrorWithCode(llmadapter.ErrCodeUnauthorized, "invalid key", "openai", nil)
		client := &scriptedClient{replies: []scriptedReply{
			{content: `[{"resumo":"A"}]`},
			{err: authErr},
		}}
		loop := NewLoop(client, testOptions(MemoryModeWindow))

		result, err := loop.Run(t.Context(), buildChunks(t, "um dois três", 2))

		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, core.IsServiceFailure(err))
		assert.ErrorIs(t, err, authErr)
		var coded *core.Error
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, 2, coded.Details["chunk"])
		assert.Equal(t, StageSummarize, coded.Details["stage"])
		assert.Equal(t, 2, client.calls())
	})

	t.Run("Should resume from checkpoints without calling the service", func(t *testing.T) {
		chunks := buildChunks(t, "um dois três quatro", 2)
		store := &memoryCheckpointer{saved: map[int][]Record{0: {{Resumo: "salvo"}}}}
		client := &scriptedClient{replies: []scriptedReply{{content: `[{"resumo":"novo"}]`}}}
		observer := &recordingObserver{}
		loop := NewLoop(client, testOptions(MemoryModeWindow), WithCheckpointer(store), WithObserver(observer))

		result, err := loop.Run(t.Context(), chunks)

		require.NoError(t, err)
		assert.Equal(t, []Record{{Resumo: "salvo"}, {Resumo: "novo"}}, result.Records)
		require.Len(t, client.requests, 1)
		assert.Len(t, client.requests[0].Messages, 2, "resumed prompt stays in memory")
		assert.Equal(t, []Record{{Resumo: "novo"}}, store.saved[1])
		require.Len(t, observer.done, 2)
		assert.True(t, observer.done[0].Resumed)
		assert.False(t, observer.done[1].Resumed)
		assert.Equal(t, 2, observer.done[1].Index)
		assert.Equal(t, 2, observer.done[1].Total)
		require.Len(t, observer.started, 1)
	})

	t.Run("Should stop between chunks when canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		client := &scriptedClient{}
		loop := NewLoop(client, testOptions(MemoryModeWindow))

		_, err := loop.Run(ctx, buildChunks(t, "a b", 1))

		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, client.calls())
	})

	t.Run("Should reject a prompt failing on chunk text before any call", func(t *testing.T) {
		tmpl, err := ParsePrompt("seletivo", `{{ if eq .Text "b" }}{{ fail "texto recusado" }}{{ end }}{{ .Text }}`)
		require.NoError(t, err)
		client := &scriptedClient{replies: []scriptedReply{{content: `[{"resumo":"A"}]`}}}
		opts := testOptions(MemoryModeWindow)
		opts.Prompt = tmpl

		_, err = NewLoop(client, opts).Run(t.Context(), buildChunks(t, "a b", 1))

		require.Error(t, err)
		assert.True(t, core.IsInvalidConfiguration(err))
		assert.Contains(t, err.Error(), "texto recusado")
		var coded *core.Error
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, 2, coded.Details["chunk"])
		assert.Zero(t, client.calls())
	})

	t.Run("Should route completions through a custom invoker", func(t *testing.T) {
		client := &scriptedClient{}
		invoker := &stubInvoker{content: `[{"resumo":"via invoker"}]`}
		loop := NewLoop(client, testOptions(MemoryModeWindow), WithInvoker(invoker))

		result, err := loop.Run(t.Context(), buildChunks(t, "a b", 1))

		require.NoError(t, err)
		assert.Equal(t, []Record{{Resumo: "via invoker"}, {Resumo: "via invoker"}}, result.Records)
		assert.Equal(t, 2, invoker.calls)
		assert.Zero(t, client.calls())
	})

	t.Run("Should return empty records for no chunks", func(t *testing.T) {
		result, err := NewLoop(&scriptedClient{}, testOptions("")).Run(t.Context(), nil)

		require.NoError(t, err)
		assert.Empty(t, result.Records)
		assert.Empty(t, result.Memory)
	})
}
