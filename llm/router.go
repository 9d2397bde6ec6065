// Gateway router: provider selection and single-hop failover. This is the
// only type other subsystems call directly; adapters stay behind it.

package llm

import (
	"context"
	"fmt"
)

// Gateway routes chat and stream calls to a primary adapter with an optional
// fallback, and embedding calls to a fixed, capability-complete embedding
// adapter that is independent of the chat selection.
//
// A Gateway is immutable after construction and holds no per-call state;
// concurrent calls run fully independently.
type Gateway struct {
	primary  Provider
	fallback Provider
	embedder Provider
}

// NewGateway constructs a Gateway. primary and fallback serve chat and
// stream; embedder serves embeddings. fallback and embedder may be nil.
// Fails with ErrNoProviderConfigured when neither chat adapter has a
// credential: a gateway that can never serve a chat call is a deployment
// error worth surfacing at startup.
func NewGateway(primary, fallback, embedder Provider) (*Gateway, error) {
	primaryUp := primary != nil && primary.IsAvailable()
	fallbackUp := fallback != nil && fallback.IsAvailable()
	if !primaryUp && !fallbackUp {
		return nil, ErrNoProviderConfigured
	}
	return &Gateway{primary: primary, fallback: fallback, embedder: embedder}, nil
}

// pick selects the adapter for a chat or stream call: primary when
// available, else fallback. usedPrimary reports which one was chosen so the
// caller knows whether a failover hop remains.
func (g *Gateway) pick() (selected Provider, usedPrimary bool, err error) {
	if g.primary != nil && g.primary.IsAvailable() {
		return g.primary, true, nil
	}
	if g.fallback != nil && g.fallback.IsAvailable() {
		return g.fallback, false, nil
	}
	return nil, false, &ProviderError{Kind: KindProviderUnavailable, Message: "no chat provider available"}
}

// canFailover reports whether a failed primary call gets its single retry
// against the fallback.
func (g *Gateway) canFailover(usedPrimary bool, err error) bool {
	return usedPrimary &&
		g.fallback != nil &&
		g.fallback.IsAvailable() &&
		Retryable(err)
}

// Chat routes a chat completion. A retry-eligible failure on the primary is
// retried exactly once against the fallback; if the fallback also fails, the
// fallback's error is surfaced. There is no further retry.
func (g *Gateway) Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (ChatResponse, error) {
	selected, usedPrimary, err := g.pick()
	if err != nil {
		return ChatResponse{}, err
	}

	resp, err := selected.Chat(ctx, messages, opts)
	if err != nil && g.canFailover(usedPrimary, err) {
		return g.fallback.Chat(ctx, messages, opts)
	}
	return resp, err
}

// Stream routes a streamed chat completion with the same selection rule as
// Chat. Failover applies only to starting the stream: once chunks are
// flowing, a failure terminates the sequence with an error and the caller
// may re-invoke Stream to retry from scratch.
func (g *Gateway) Stream(ctx context.Context, messages []ChatMessage, opts *StreamOptions) (*Stream, error) {
	selected, usedPrimary, err := g.pick()
	if err != nil {
		return nil, err
	}

	stream, err := selected.Stream(ctx, messages, opts)
	if err != nil && g.canFailover(usedPrimary, err) {
		return g.fallback.Stream(ctx, messages, opts)
	}
	return stream, err
}

// Embed routes an embedding call to the fixed embedding adapter, regardless
// of which adapter served the last chat call. Empty input is rejected before
// any network call.
func (g *Gateway) Embed(ctx context.Context, text string, opts *EmbedOptions) (EmbedResponse, error) {
	if text == "" {
		return EmbedResponse{}, ErrEmptyEmbedInput
	}
	if g.embedder == nil {
		return EmbedResponse{}, &ProviderError{Kind: KindProviderUnavailable, Message: "no embedding provider configured"}
	}
	return g.embedder.Embed(ctx, text, opts)
}

// EmbedBatch embeds each text independently, preserving input order in the
// output. Any failure fails the whole batch; there is no partial success.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string, opts *EmbedOptions) ([]EmbedResponse, error) {
	results := make([]EmbedResponse, 0, len(texts))
	for i, text := range texts {
		resp, err := g.Embed(ctx, text, opts)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		results = append(results, resp)
	}
	return results, nil
}

// IsReady reports whether the gateway can serve both chat and embedding
// calls: a single boolean health signal for startup checks.
func (g *Gateway) IsReady() bool {
	chatUp := (g.primary != nil && g.primary.IsAvailable()) ||
		(g.fallback != nil && g.fallback.IsAvailable())
	embedUp := g.embedder != nil && g.embedder.IsAvailable()
	return chatUp && embedUp
}
