package summary

import (
	"context"
	"strings"

	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/engine/memory/tokens"
	"github.com/relembraq/relembraq/pkg/logger"
)

const (
	// MemoryModeWindow sends the most recent prompts, bounded by count and tokens.
	MemoryModeWindow = "window"
	// MemoryModeLatest sends only the prompt for the current chunk.
	MemoryModeLatest = "latest"
)

type memoryEntry struct {
	message llmadapter.Message
	tokens  int
}

// Memory is the append-only list of user prompts issued during a run.
// It has a single writer and is not safe for concurrent use.
type Memory struct {
	entries []memoryEntry
	counter tokens.Counter
}

func NewMemory(counter tokens.Counter) *Memory {
	if counter == nil {
		counter = tokens.WordCounter{}
	}
	return &Memory{counter: counter}
}

// Append records a user prompt. Assistant replies are never stored.
func (m *Memory) Append(ctx context.Context, content string) {
	count, err := m.counter.CountTokens(ctx, content)
	if err != nil {
		logger.FromContext(ctx).Debug("Token count failed, using word count", "error", err)
		count = len(strings.Fields(content))
	}
	m.entries = append(m.entries, memoryEntry{
		message: llmadapter.Message{Role: llmadapter.RoleUser, Content: content},
		tokens:  count,
	})
}

func (m *Memory) Len() int {
	return len(m.entries)
}

// Messages returns a copy of every stored message in append order.
func (m *Memory) Messages() []llmadapter.Message {
	out := make([]llmadapter.Message, len(m.entries))
	for i := range m.entries {
		out[i] = m.entries[i].message
	}
	return out
}

// Window selects the messages sent with the next request. The newest message
// is always included; older ones are evicted oldest first until both the
// message and token limits hold. Non-positive limits are ignored.
func (m *Memory) Window(mode string, maxMessages, maxTokens int) []llmadapter.Message {
	if len(m.entries) == 0 {
		return nil
	}
	if mode == MemoryModeLatest {
		return []llmadapter.Message{m.entries[len(m.entries)-1].message}
	}
	start := 0
	if maxMessages > 0 && len(m.entries) > maxMessages {
		start = len(m.entries) - maxMessages
	}
	total := 0
	for _, e := range m.entries[start:] {
		total += e.tokens
	}
	for maxTokens > 0 && total > maxTokens && start < len(m.entries)-1 {
		total -= m.entries[start].tokens
		start++
	}
	out := make([]llmadapter.Message, 0, len(m.entries)-start)
	for _, e := range m.entries[start:] {
		out = append(out, e.message)
	}
	return out
}
