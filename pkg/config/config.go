package config

import (
	"context"
	"time"
)

// Config is the full runtime configuration of a summarization run.
type Config struct {
	LLM        LLMConfig        `koanf:"llm"        json:"llm"        yaml:"llm"`
	Embedder   EmbedderConfig   `koanf:"embedder"   json:"embedder"   yaml:"embedder"`
	Retry      RetryConfig      `koanf:"retry"      json:"retry"      yaml:"retry"`
	Summary    SummaryConfig    `koanf:"summary"    json:"summary"    yaml:"summary"`
	Cluster    ClusterConfig    `koanf:"cluster"    json:"cluster"    yaml:"cluster"`
	Output     OutputConfig     `koanf:"output"     json:"output"     yaml:"output"`
	Checkpoint CheckpointConfig `koanf:"checkpoint" json:"checkpoint" yaml:"checkpoint"`
	Metrics    MetricsConfig    `koanf:"metrics"    json:"metrics"    yaml:"metrics"`
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	Provider     string          `koanf:"provider"     json:"provider"     yaml:"provider"     env:"RELEMBRAQ_LLM_PROVIDER" validate:"required,oneof=openai anthropic groq ollama google deepseek xai mock"`
	Model        string          `koanf:"model"        json:"model"        yaml:"model"        env:"RELEMBRAQ_LLM_MODEL"    validate:"required"`
	APIKey       SensitiveString `koanf:"api_key"      json:"api_key"      yaml:"api_key"      env:"OPENAI_API_KEY"         sensitive:"true"`
	BaseURL      string          `koanf:"base_url"     json:"base_url"     yaml:"base_url"     env:"RELEMBRAQ_LLM_BASE_URL"`
	Organization string          `koanf:"organization" json:"organization" yaml:"organization" env:"OPENAI_ORGANIZATION"`
	Temperature  float64         `koanf:"temperature"  json:"temperature"  yaml:"temperature"                               validate:"gte=0,lte=2"`
	MaxTokens    int             `koanf:"max_tokens"   json:"max_tokens"   yaml:"max_tokens"                                validate:"gte=0"`
	Timeout      time.Duration   `koanf:"timeout"      json:"timeout"      yaml:"timeout"      env:"RELEMBRAQ_LLM_TIMEOUT"  validate:"gt=0"`
	JSONMode     bool            `koanf:"json_mode"    json:"json_mode"    yaml:"json_mode"`

	// Concurrency caps in-flight completion calls; the loop itself issues one at a time.
	Concurrency int     `koanf:"concurrency" json:"concurrency" yaml:"concurrency" validate:"gte=1"`
	RateLimit   float64 `koanf:"rate_limit"  json:"rate_limit"  yaml:"rate_limit"  validate:"gte=0"`

	// Burst is the token bucket size; zero derives it from RateLimit.
	Burst int `koanf:"burst" json:"burst" yaml:"burst" validate:"gte=0"`
}

// EmbedderConfig configures the embedding service.
type EmbedderConfig struct {
	Provider    string          `koanf:"provider"    json:"provider"    yaml:"provider"    env:"RELEMBRAQ_EMBEDDER_PROVIDER" validate:"required,oneof=openai ollama google mock"`
	Model       string          `koanf:"model"       json:"model"       yaml:"model"       env:"RELEMBRAQ_EMBEDDER_MODEL"    validate:"required"`
	APIKey      SensitiveString `koanf:"api_key"     json:"api_key"     yaml:"api_key"     env:"RELEMBRAQ_EMBEDDER_API_KEY"  sensitive:"true"`
	BaseURL     string          `koanf:"base_url"    json:"base_url"    yaml:"base_url"`
	BatchSize   int             `koanf:"batch_size"  json:"batch_size"  yaml:"batch_size"                                    validate:"gte=1"`
	CacheSize   int             `koanf:"cache_size"  json:"cache_size"  yaml:"cache_size"                                    validate:"gte=0"`
	Timeout     time.Duration   `koanf:"timeout"     json:"timeout"     yaml:"timeout"                                       validate:"gt=0"`
	Concurrency int             `koanf:"concurrency" json:"concurrency" yaml:"concurrency"                                   validate:"gte=1"`
	RateLimit   float64         `koanf:"rate_limit"  json:"rate_limit"  yaml:"rate_limit"                                    validate:"gte=0"`
	Burst       int             `koanf:"burst"       json:"burst"       yaml:"burst"                                         validate:"gte=1"`
}

// RetryConfig bounds the backoff applied to service calls.
type RetryConfig struct {
	MaxRetries  uint64        `koanf:"max_retries"  json:"max_retries"  yaml:"max_retries"`
	BaseBackoff time.Duration `koanf:"base_backoff" json:"base_backoff" yaml:"base_backoff" validate:"gt=0"`
	MaxBackoff  time.Duration `koanf:"max_backoff"  json:"max_backoff"  yaml:"max_backoff"  validate:"gt=0"`
}

type SummaryConfig struct {
	ChunkSize       int    `koanf:"chunk_size"        json:"chunk_size"        yaml:"chunk_size"        env:"RELEMBRAQ_CHUNK_SIZE" validate:"min=50,max=500"`
	MemoryMode      string `koanf:"memory_mode"       json:"memory_mode"       yaml:"memory_mode"                                  validate:"oneof=window latest"`
	MemoryWindow    int    `koanf:"memory_window"     json:"memory_window"     yaml:"memory_window"                                validate:"gte=1"`
	MemoryMaxTokens int    `koanf:"memory_max_tokens" json:"memory_max_tokens" yaml:"memory_max_tokens"                            validate:"gte=0"`
	TokenEncoding   string `koanf:"token_encoding"    json:"token_encoding"    yaml:"token_encoding"                               validate:"token_encoding"`

	// PromptFile replaces the built-in instruction with a text/template file.
	PromptFile string `koanf:"prompt_file" json:"prompt_file" yaml:"prompt_file" env:"RELEMBRAQ_PROMPT_FILE"`
}

type ClusterConfig struct {
	NClusters     int    `koanf:"n_clusters"     json:"n_clusters"     yaml:"n_clusters"     env:"RELEMBRAQ_N_CLUSTERS" validate:"min=2,max=10"`
	Seed          uint64 `koanf:"seed"           json:"seed"           yaml:"seed"`
	MaxIterations int    `koanf:"max_iterations" json:"max_iterations" yaml:"max_iterations"                            validate:"gte=1"`
	Restarts      int    `koanf:"restarts"       json:"restarts"       yaml:"restarts"                                  validate:"gte=1"`
}

// OutputConfig names the artifacts written into Dir.
type OutputConfig struct {
	Dir          string `koanf:"dir"           json:"dir"           yaml:"dir"           env:"RELEMBRAQ_OUTPUT_DIR" validate:"required"`
	JSONFile     string `koanf:"json_file"     json:"json_file"     yaml:"json_file"                                validate:"required"`
	TextFile     string `koanf:"text_file"     json:"text_file"     yaml:"text_file"`
	MarkdownFile string `koanf:"markdown_file" json:"markdown_file" yaml:"markdown_file"`
	MindMapPDF   string `koanf:"mindmap_pdf"   json:"mindmap_pdf"   yaml:"mindmap_pdf"`
	ScatterPDF   string `koanf:"scatter_pdf"   json:"scatter_pdf"   yaml:"scatter_pdf"`
	Terminal     bool   `koanf:"terminal"      json:"terminal"      yaml:"terminal"`
}

type CheckpointConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `koanf:"path"    json:"path"    yaml:"path"    env:"RELEMBRAQ_CHECKPOINT_PATH"`
}

// MetricsConfig enables the Prometheus text file written next to the artifacts.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled" env:"RELEMBRAQ_METRICS_ENABLED"`
	File    string `koanf:"file"    json:"file"    yaml:"file"`
}

// Service loads and validates configuration.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a specific key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns the configuration used when no source overrides a value.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     2 * time.Minute,
			JSONMode:    false,
			Concurrency: 1,
		},
		Embedder: EmbedderConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			BatchSize:   64,
			CacheSize:   1024,
			Timeout:     30 * time.Second,
			Concurrency: 4,
			Burst:       4,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseBackoff: 500 * time.Millisecond,
			MaxBackoff:  20 * time.Second,
		},
		Summary: SummaryConfig{
			ChunkSize:       150,
			MemoryMode:      "window",
			MemoryWindow:    8,
			MemoryMaxTokens: 6000,
			TokenEncoding:   "cl100k_base",
		},
		Cluster: ClusterConfig{
			NClusters:     5,
			Seed:          42,
			MaxIterations: 300,
			Restarts:      10,
		},
		Output: OutputConfig{
			Dir:          "outputs",
			JSONFile:     "resumo_aula.json",
			TextFile:     "mapa_mental.txt",
			MarkdownFile: "mapa_mental.md",
			MindMapPDF:   "mapa_mental.pdf",
			ScatterPDF:   "clusters_3d.pdf",
			Terminal:     true,
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
			Path:    "outputs/relembraq.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			File:    "metricas.prom",
		},
	}
}
