package core

// ProviderName identifies a model provider
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderGroq      ProviderName = "groq"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
	ProviderOllama    ProviderName = "ollama"
	ProviderDeepSeek  ProviderName = "deepseek"
	ProviderXAI       ProviderName = "xai"
	ProviderMock      ProviderName = "mock" // scripted replies, no network
)

type PromptParams struct {
	MaxTokens   int32   `json:"max_tokens,omitempty"  yaml:"max_tokens,omitempty"  mapstructure:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" mapstructure:"temperature,omitempty"`
}

// ProviderConfig represents provider-specific connection options
type ProviderConfig struct {
	Provider     ProviderName `json:"provider"     yaml:"provider"     mapstructure:"provider"`
	Model        string       `json:"model"        yaml:"model"        mapstructure:"model"`
	APIKey       string       `json:"-"            yaml:"-"            mapstructure:"api_key"`
	APIURL       string       `json:"api_url"      yaml:"api_url"      mapstructure:"api_url"`
	Params       PromptParams `json:"params"       yaml:"params"       mapstructure:"params"`
	Organization string       `json:"organization" yaml:"organization" mapstructure:"organization"`
}

// NewProviderConfig creates a new ProviderConfig
func NewProviderConfig(provider ProviderName, model string, apiKey string) *ProviderConfig {
	return &ProviderConfig{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
	}
}

// RequiresAPIKey reports whether the provider authenticates with a key.
func (p ProviderName) RequiresAPIKey() bool {
	switch p {
	case ProviderOllama, ProviderMock:
		return false
	default:
		return true
	}
}
