package summary

import (
	"context"
	"fmt"
	"text/template"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/knowledge/chunk"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/engine/llm/orchestrator"
	"github.com/relembraq/relembraq/engine/memory/tokens"
	"github.com/relembraq/relembraq/pkg/logger"
)

const (
	StageSummarize  = "summarize"
	StageCheckpoint = "checkpoint"
	indexKey        = "chunk"
)

// Options configures a summarization loop.
type Options struct {
	SystemPrompt string
	Call         llmadapter.CallOptions
	Invoker      orchestrator.Settings
	MemoryMode   string
	MaxMessages  int
	MaxTokens    int
	Counter      tokens.Counter
	Prompt       *template.Template
}

// Result holds every record in chunk order and the final memory.
type Result struct {
	Records []Record
	Memory  []llmadapter.Message
}

// Loop summarizes chunks one at a time, carrying the prompts issued so far as
// conversational memory.
type Loop struct {
	client       llmadapter.LLMClient
	invoker      orchestrator.LLMInvoker
	opts         Options
	observer     Observer
	checkpointer Checkpointer
}

type LoopOption func(*Loop)

func WithObserver(o Observer) LoopOption {
	return func(l *Loop) { l.observer = o }
}

func WithCheckpointer(c Checkpointer) LoopOption {
	return func(l *Loop) { l.checkpointer = c }
}

// WithInvoker replaces the retrying invoker built from Options.Invoker.
func WithInvoker(inv orchestrator.LLMInvoker) LoopOption {
	return func(l *Loop) { l.invoker = inv }
}

func NewLoop(client llmadapter.LLMClient, opts Options, options ...LoopOption) *Loop {
	if opts.MemoryMode == "" {
		opts.MemoryMode = MemoryModeWindow
	}
	if opts.Prompt == nil {
		opts.Prompt = DefaultPrompt()
	}
	l := &Loop{
		client:  client,
		invoker: orchestrator.NewLLMInvoker(opts.Invoker),
		opts:    opts,
	}
	for _, o := range options {
		o(l)
	}
	if l.observer == nil {
		l.observer = Observers(nil)
	}
	return l
}

// Run summarizes chunks in order. A completion failure aborts the run with a
// SERVICE_FAILURE naming the 1-based chunk index; records of chunks already
// checkpointed survive for the next run.
func (l *Loop) Run(ctx context.Context, chunks []chunk.Chunk) (*Result, error) {
	log := logger.FromContext(ctx)
	prompts, err := l.renderPrompts(chunks)
	if err != nil {
		return nil, err
	}
	memory := NewMemory(l.opts.Counter)
	result := &Result{Records: make([]Record, 0, len(chunks))}
	total := len(chunks)
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ch := &chunks[i]
		progress := Progress{Index: i + 1, Total: total, ChunkID: ch.ID}
		prompt := prompts[i]
		if records, ok, err := l.resume(ctx, ch); err != nil {
			return nil, core.ServiceFailure(err, StageCheckpoint, indexKey, progress.Index)
		} else if ok {
			memory.Append(ctx, prompt)
			result.Records = append(result.Records, records...)
			progress.Records = records
			progress.Resumed = true
			l.observer.OnChunkDone(ctx, progress)
			recordChunk(ctx, ReplyStructured, true, len(records))
			continue
		}
		l.observer.OnChunkStart(ctx, progress)
		memory.Append(ctx, prompt)
		reply, err := l.summarize(ctx, memory)
		if err != nil {
			log.Error("Chunk summarization failed",
				"chunk", progress.Index,
				"total", total,
				"retries_exhausted", orchestrator.IsExhausted(err),
				"error", err,
			)
			return nil, core.ServiceFailure(err, StageSummarize, indexKey, progress.Index)
		}
		if reply.Kind == ReplyUnstructured {
			log.Debug("Reply is not JSON, keeping raw text", "chunk", progress.Index, "error", reply.Err)
		}
		if l.checkpointer != nil {
			if err := l.checkpointer.Save(ctx, ch.Index, ch.Hash, reply.Records); err != nil {
				return nil, core.ServiceFailure(err, StageCheckpoint, indexKey, progress.Index)
			}
		}
		result.Records = append(result.Records, reply.Records...)
		progress.Records = reply.Records
		l.observer.OnChunkDone(ctx, progress)
		recordChunk(ctx, reply.Kind, false, len(reply.Records))
	}
	result.Memory = memory.Messages()
	return result, nil
}

// renderPrompts renders every chunk up front so a template failing on real
// text is reported before the first completion call.
func (l *Loop) renderPrompts(chunks []chunk.Chunk) ([]string, error) {
	prompts := make([]string, len(chunks))
	for i := range chunks {
		prompt, err := BuildPrompt(l.opts.Prompt, chunks[i].Text)
		if err != nil {
			return nil, core.NewError(err, core.ErrCodeInvalidConfiguration, map[string]any{
				"param":  "prompt",
				indexKey: i + 1,
			})
		}
		prompts[i] = prompt
	}
	return prompts, nil
}

func (l *Loop) resume(ctx context.Context, ch *chunk.Chunk) ([]Record, bool, error) {
	if l.checkpointer == nil || ch.Hash == "" {
		return nil, false, nil
	}
	records, ok, err := l.checkpointer.Load(ctx, ch.Index, ch.Hash)
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint for %s: %w", ch.ID, err)
	}
	return records, ok, nil
}

func (l *Loop) summarize(ctx context.Context, memory *Memory) (Reply, error) {
	req := &llmadapter.LLMRequest{
		SystemPrompt: l.opts.SystemPrompt,
		Messages:     memory.Window(l.opts.MemoryMode, l.opts.MaxMessages, l.opts.MaxTokens),
		Options:      l.opts.Call,
	}
	resp, err := l.invoker.Invoke(ctx, l.client, req)
	if err != nil {
		return Reply{}, err
	}
	return ParseReply(resp.Content), nil
}
