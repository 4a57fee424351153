package llmadapter

import (
	"context"
	"fmt"

	"github.com/relembraq/relembraq/engine/core"
)

// Role constants for message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMRequest represents a request to the LLM, independent of provider
type LLMRequest struct {
	SystemPrompt string
	Messages     []Message
	Options      CallOptions
}

// Message represents a conversation message
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// CallOptions represents options for the LLM call
type CallOptions struct {
	Temperature float64
	MaxTokens   int32
	StopWords   []string
	UseJSONMode bool
}

// LLMResponse represents the response from the LLM
type LLMResponse struct {
	Content string
	Usage   *Usage
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient is the main interface for LLM interactions
type LLMClient interface {
	// GenerateContent sends a request to the LLM and returns a response
	GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
	// Close cleans up any resources held by the client
	Close() error
}

// Factory creates LLMClient instances based on provider configuration
type Factory interface {
	CreateClient(ctx context.Context, config *core.ProviderConfig) (LLMClient, error)
}

// ValidateConversation rejects empty conversations and unknown roles.
func ValidateConversation(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("conversation must contain at least one message")
	}
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message[%d] has unsupported role %q", i, m.Role)
		}
	}
	return nil
}
