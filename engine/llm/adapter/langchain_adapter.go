package llmadapter

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/relembraq/relembraq/engine/core"
)

// LangChainAdapter adapts langchaingo to our LLMClient interface
type LangChainAdapter struct {
	model    llms.Model
	provider core.ProviderConfig
	parser   *ErrorParser
}

// NewLangChainAdapter creates a new LangChain adapter for the configured provider
func NewLangChainAdapter(ctx context.Context, config *core.ProviderConfig) (*LangChainAdapter, error) {
	model, err := CreateLLMFactory(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM model: %w", err)
	}
	return WrapModel(config, model), nil
}

// WrapModel adapts an already constructed langchaingo model.
func WrapModel(config *core.ProviderConfig, model llms.Model) *LangChainAdapter {
	return &LangChainAdapter{
		model:    model,
		provider: *config,
		parser:   NewErrorParser(string(config.Provider)),
	}
}

// GenerateContent implements LLMClient interface
func (a *LangChainAdapter) GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if err := ValidateConversation(req.Messages); err != nil {
		return nil, err
	}
	messages := a.convertMessages(req)
	options := a.buildCallOptions(req)
	response, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		if parsed := a.parser.ParseError(err); parsed != nil {
			return nil, parsed
		}
		return nil, fmt.Errorf("langchain GenerateContent failed: %w", err)
	}
	return a.convertResponse(response)
}

// Close releases nothing; langchaingo clients hold no persistent resources.
func (a *LangChainAdapter) Close() error {
	return nil
}

// convertMessages converts our Message format to langchain MessageContent
func (a *LangChainAdapter) convertMessages(req *LLMRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		messages = append(messages, llms.TextParts(a.mapMessageRole(msg.Role), msg.Content))
	}
	return messages
}

func (a *LangChainAdapter) mapMessageRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (a *LangChainAdapter) buildCallOptions(req *LLMRequest) []llms.CallOption {
	var options []llms.CallOption
	if req.Options.Temperature > 0 {
		options = append(options, llms.WithTemperature(req.Options.Temperature))
	}
	if req.Options.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(int(req.Options.MaxTokens)))
	}
	if len(req.Options.StopWords) > 0 {
		options = append(options, llms.WithStopWords(req.Options.StopWords))
	}
	if req.Options.UseJSONMode {
		options = append(options, llms.WithJSONMode())
	}
	return options
}

func (a *LangChainAdapter) convertResponse(resp *llms.ContentResponse) (*LLMResponse, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, NewErrorWithCode(ErrCodeEmptyResponse, "empty response from LLM", string(a.provider.Provider), nil)
	}
	choice := resp.Choices[0]
	return &LLMResponse{
		Content: choice.Content,
		Usage:   usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

// usageFromGenerationInfo reads the token counters some providers report.
func usageFromGenerationInfo(info map[string]any) *Usage {
	if len(info) == 0 {
		return nil
	}
	prompt, okPrompt := asInt(info["PromptTokens"])
	completion, okCompletion := asInt(info["CompletionTokens"])
	total, okTotal := asInt(info["TotalTokens"])
	if !okPrompt && !okCompletion && !okTotal {
		return nil
	}
	if !okTotal {
		total = prompt + completion
	}
	return &Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
