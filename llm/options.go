// Call tuning parameters. All fields are optional; adapters apply their
// configured defaults for anything left unset. Pointer fields distinguish
// "not set" from an explicit zero.

package llm

// ChatOptions tunes a single chat or stream call. Immutable per call:
// adapters read it, they never write back.
type ChatOptions struct {
	// Model overrides the adapter's configured chat model.
	Model string

	// Temperature controls sampling randomness (0 = deterministic).
	Temperature *float32

	// MaxTokens caps the completion length.
	MaxTokens *uint32

	// TopP sets the nucleus sampling threshold.
	TopP *float32

	// FrequencyPenalty discourages token repetition (-2.0 to 2.0).
	FrequencyPenalty *float32

	// PresencePenalty discourages reusing topics already present (-2.0 to 2.0).
	PresencePenalty *float32

	// Stop lists sequences that end generation.
	Stop []string
}

// StreamOptions extends ChatOptions with optional callbacks. Callbacks are a
// convenience side-channel layered on top of the pulled Stream; the stream's
// own chunks and error remain the single source of truth. Each callback fires
// at most once per corresponding event, from the consumer's goroutine.
type StreamOptions struct {
	ChatOptions

	// OnChunk is invoked for every yielded chunk, in order.
	OnChunk func(chunk string)

	// OnComplete is invoked once with the full concatenated text when the
	// stream ends without error.
	OnComplete func(full string)

	// OnError is invoked once if the stream terminates with an error.
	OnError func(err error)
}

// EmbedOptions tunes a single embedding call.
type EmbedOptions struct {
	// Model overrides the adapter's configured embedding model.
	Model string

	// Dimensions requests a specific output vector length, for providers
	// that support shortened embeddings.
	Dimensions *int
}

// Adapter defaults applied when options leave a field unset.
const (
	defaultMaxTokens   uint32  = 4096
	defaultTemperature float32 = 0.7
)

// chatParams is a ChatOptions with adapter defaults resolved in.
type chatParams struct {
	Model            string
	Temperature      float32
	MaxTokens        uint32
	TopP             *float32
	FrequencyPenalty *float32
	PresencePenalty  *float32
	Stop             []string
}

// resolveChatParams merges call options over the adapter's configured
// defaults. opts may be nil.
func resolveChatParams(opts *ChatOptions, model string, maxTokens uint32, temperature float32) chatParams {
	p := chatParams{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = defaultMaxTokens
	}
	if opts == nil {
		return p
	}
	if opts.Model != "" {
		p.Model = opts.Model
	}
	if opts.Temperature != nil {
		p.Temperature = *opts.Temperature
	}
	if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
		p.MaxTokens = *opts.MaxTokens
	}
	p.TopP = opts.TopP
	p.FrequencyPenalty = opts.FrequencyPenalty
	p.PresencePenalty = opts.PresencePenalty
	p.Stop = opts.Stop
	return p
}

// chatOptions returns the embedded ChatOptions, tolerating a nil receiver.
func (o *StreamOptions) chatOptions() *ChatOptions {
	if o == nil {
		return nil
	}
	return &o.ChatOptions
}
