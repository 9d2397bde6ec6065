// Package config provides gateway settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// Credentials are read once here; adapters are immutable after construction.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings holds all gateway configuration.
type Settings struct {
	Gateway GatewayConfig
	Trace   TraceConfig
}

// GatewayConfig selects the adapters and their shared tuning defaults.
type GatewayConfig struct {
	// Primary serves chat and stream calls.
	Primary string
	// Fallback takes over when the primary is unavailable or fails with a
	// retry-eligible error. Empty means no fallback.
	Fallback string
	// Embedding serves all embedding calls, independent of Primary.
	Embedding string

	MaxTokens   uint32
	Temperature float64
}

// TraceConfig controls run recording.
type TraceConfig struct {
	Enabled bool
	DBPath  string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv          string
	defaultModel      string
	apiKeyEnv         string
	embedModelEnv     string
	defaultEmbedModel string
}

// Supported providers and their configuration. Providers without an
// embeddings endpoint have no embed entries.
var providers = map[string]providerInfo{
	"openai": {
		modelEnv:          "OPENAI_MODEL",
		defaultModel:      "gpt-4o",
		apiKeyEnv:         "OPENAI_API_KEY",
		embedModelEnv:     "OPENAI_EMBED_MODEL",
		defaultEmbedModel: "text-embedding-3-small",
	},
	"anthropic": {
		modelEnv:     "ANTHROPIC_MODEL",
		defaultModel: "claude-sonnet-4-20250514",
		apiKeyEnv:    "ANTHROPIC_API_KEY",
	},
	"gemini": {
		modelEnv:          "GEMINI_MODEL",
		defaultModel:      "gemini-2.0-flash",
		apiKeyEnv:         "GEMINI_API_KEY",
		embedModelEnv:     "GEMINI_EMBED_MODEL",
		defaultEmbedModel: "gemini-embedding-001",
	},
	"deepseek": {
		modelEnv:     "DEEPSEEK_MODEL",
		defaultModel: "deepseek-chat",
		apiKeyEnv:    "DEEPSEEK_API_KEY",
	},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New loads gateway settings from environment variables. Returns an error if
// a named provider is unknown or an environment variable contains an invalid
// value.
func New() (Settings, error) {
	primary := normalizeProvider(getEnvString("MODELGATE_PRIMARY", "openai"))
	if _, err := getProviderInfo(primary); err != nil {
		return Settings{}, fmt.Errorf("MODELGATE_PRIMARY: %w", err)
	}

	fallback := normalizeProvider(os.Getenv("MODELGATE_FALLBACK"))
	if fallback != "" {
		if _, err := getProviderInfo(fallback); err != nil {
			return Settings{}, fmt.Errorf("MODELGATE_FALLBACK: %w", err)
		}
	}

	embedding := normalizeProvider(getEnvString("MODELGATE_EMBED_PROVIDER", "openai"))
	info, err := getProviderInfo(embedding)
	if err != nil {
		return Settings{}, fmt.Errorf("MODELGATE_EMBED_PROVIDER: %w", err)
	}
	if info.defaultEmbedModel == "" {
		return Settings{}, fmt.Errorf("MODELGATE_EMBED_PROVIDER: %q does not support embeddings", embedding)
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	traceEnabled, err := getEnvBool("TRACE_ENABLED", false)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Gateway: GatewayConfig{
			Primary:     primary,
			Fallback:    fallback,
			Embedding:   embedding,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Trace: TraceConfig{
			Enabled: traceEnabled,
			DBPath:  getEnvString("TRACE_DB", ".modelgate/runs.db"),
		},
	}, nil
}

// MustNew loads gateway settings. Panics on invalid configuration.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
// An unset key returns "", not an error: an adapter without a credential is
// constructed unavailable, and whether that matters is the gateway's call.
func APIKeyFor(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}
	return os.Getenv(info.apiKeyEnv), nil
}

// ModelFor returns the chat model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}
	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// EmbedModelFor returns the embedding model for a provider, checking
// environment first. Fails for providers without an embeddings endpoint.
func EmbedModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)
	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}
	if info.defaultEmbedModel == "" {
		return "", fmt.Errorf("provider %q does not support embeddings", provider)
	}
	if val := os.Getenv(info.embedModelEnv); val != "" {
		return val, nil
	}
	return info.defaultEmbedModel, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
