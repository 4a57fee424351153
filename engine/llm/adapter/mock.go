package llmadapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const mockSummaryWords = 16

// MockLLM is an offline langchaingo model. It answers with a JSON array of
// {"resumo": ...} records built from the sentences of the last user message,
// ignoring instruction lines (those ending in ':' or holding JSON punctuation).
type MockLLM struct {
	model string
}

// NewMockLLM creates a new mock LLM
func NewMockLLM(model string) *MockLLM {
	return &MockLLM{model: model}
}

// GenerateContent implements the llms.Model interface with deterministic replies.
func (m *MockLLM) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var prompt string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text + "\n"
			}
		}
		break
	}
	body, err := json.Marshal(mockSummaries(prompt))
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: string(body)}},
	}, nil
}

// Call implements the legacy Call interface
func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func mockSummaries(prompt string) []map[string]string {
	var content []string
	for _, line := range strings.Split(prompt, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasSuffix(trimmed, ":") || strings.ContainsAny(trimmed, "{}[]") {
			continue
		}
		content = append(content, trimmed)
	}
	text := strings.Join(content, " ")
	out := make([]map[string]string, 0, 2)
	for _, sentence := range strings.Split(text, ". ") {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}
		if len(words) > mockSummaryWords {
			words = words[:mockSummaryWords]
		}
		out = append(out, map[string]string{"resumo": strings.TrimSuffix(strings.Join(words, " "), ".")})
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, map[string]string{"resumo": "Sem conteúdo para resumir"})
	}
	return out
}
