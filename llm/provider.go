// Provider interface - the abstract contract for LLM providers.
// Each adapter implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error normalization into the taxonomy

package llm

import (
	"context"
)

// Provider defines the capability set of one external LLM service. Not every
// adapter implements every operation; unsupported operations fail with the
// capability_unsupported kind rather than degrading silently.
//
// Adapters are immutable after construction and hold no per-call state, so a
// single instance is safe for concurrent use.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// IsAvailable reports whether a non-empty credential is configured.
	// Pure and side-effect free: it never depends on prior call history.
	IsAvailable() bool

	// ModelFor resolves the default model identifier for a task. Fails
	// with capability_unsupported for tasks the adapter does not offer.
	ModelFor(task Task) (string, error)

	// Chat sends a blocking chat completion request.
	Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (ChatResponse, error)

	// Stream starts a streamed chat completion. The returned Stream is a
	// finite, non-restartable sequence of text chunks in provider order.
	Stream(ctx context.Context, messages []ChatMessage, opts *StreamOptions) (*Stream, error)

	// Embed produces an embedding vector for the given text.
	Embed(ctx context.Context, text string, opts *EmbedOptions) (EmbedResponse, error)
}
