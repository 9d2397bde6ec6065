// Provider factory.
//
// Quick start:
//
//	// Read the API key from the provider's environment variable
//	primary := llm.ProviderAnthropic.FromEnv(llm.Config{})
//
//	// Explicit configuration
//	embedder := llm.NewProvider(llm.ProviderOpenAI, llm.Config{
//	    APIKey: key,
//	    Model:  llm.ModelOpenAIGPT4oMini,
//	})
//
// A missing credential never fails construction: the resulting adapter
// reports IsAvailable() == false and every call fails with the
// provider_unavailable kind. Availability is the gateway's concern.

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGemini:
		return "gemini"
	case ProviderDeepSeek:
		return "deepseek"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default chat model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT4o
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderGemini:
		return ModelGeminiFlash2
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	default:
		return ""
	}
}

// DefaultEmbedModel returns the default embedding model, or "" for providers
// without an embeddings endpoint.
func (p ProviderType) DefaultEmbedModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIEmbedding3Small
	case ProviderGemini:
		return ModelGeminiEmbedding
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// Config holds per-adapter construction parameters. Adapters are immutable
// after construction; the credential and model overrides are read exactly
// once, here.
type Config struct {
	// APIKey is the provider credential. Empty means the adapter is
	// constructed unavailable.
	APIKey string

	// Model overrides the provider's default chat model.
	Model string

	// EmbedModel overrides the provider's default embedding model.
	EmbedModel string

	// MaxTokens caps completion length; 0 means the adapter default.
	MaxTokens uint32

	// Temperature is the default sampling temperature; 0 uses the
	// adapter default.
	Temperature float32
}

// withDefaults fills zero-valued tuning fields.
func (c Config) withDefaults() Config {
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	return c
}

// NewProvider constructs the adapter for the given provider type.
func NewProvider(pt ProviderType, cfg Config) Provider {
	cfg = cfg.withDefaults()
	switch pt {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg)
	case ProviderGemini:
		return NewGeminiProvider(cfg)
	case ProviderDeepSeek:
		return NewDeepSeekProvider(cfg)
	default:
		panic(fmt.Sprintf("unknown provider type: %v", pt))
	}
}

// FromEnv constructs the adapter with the API key read from the provider's
// environment variable. Any key already set in cfg wins.
func (p ProviderType) FromEnv(cfg Config) Provider {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(p.EnvVar())
	}
	return NewProvider(p, cfg)
}

// Model identifier constants for the supported providers.

// OpenAI model identifiers
const (
	// ModelOpenAIGPT4o is GPT-4o: default chat model.
	ModelOpenAIGPT4o = "gpt-4o"
	// ModelOpenAIGPT4oMini is GPT-4o-mini: fast and inexpensive.
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
	// ModelOpenAIEmbedding3Small is the default embedding model.
	ModelOpenAIEmbedding3Small = "text-embedding-3-small"
	// ModelOpenAIEmbedding3Large is the higher-dimensional embedding model.
	ModelOpenAIEmbedding3Large = "text-embedding-3-large"
)

// Anthropic model identifiers
const (
	// ModelAnthropicClaudeSonnet4 is Claude Sonnet 4: balanced performance.
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	// ModelAnthropicClaudeHaiku4 is Claude Haiku 4: fast and efficient.
	ModelAnthropicClaudeHaiku4 = "claude-haiku-4-20250514"
)

// Gemini model identifiers
const (
	// ModelGeminiFlash2 is Gemini 2.0 Flash: default chat model.
	ModelGeminiFlash2 = "gemini-2.0-flash"
	// ModelGeminiEmbedding is the Gemini embedding model.
	ModelGeminiEmbedding = "gemini-embedding-001"
)

// DeepSeek model identifiers
const (
	// ModelDeepSeekChat is the general chat model.
	ModelDeepSeekChat = "deepseek-chat"
	// ModelDeepSeekReasoner is the chain-of-thought reasoning model.
	ModelDeepSeekReasoner = "deepseek-reasoner"
)
