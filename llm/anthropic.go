// Anthropic adapter implementation using the official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Messages API request shape: system turns are not part of the message
//   sequence and must be folded into a single system directive
// - Native error normalization into the taxonomy
//
// Anthropic offers no embeddings endpoint; Embed and ModelFor(TaskEmbed)
// report capability_unsupported.

package llm

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	apiKey      string
	model       string
	maxTokens   uint32
	temperature float32
}

// NewAnthropicProvider creates a new Anthropic adapter. An empty API key
// yields an unavailable adapter: construction never fails, calls do.
func NewAnthropicProvider(cfg Config) *AnthropicProvider {
	model := cfg.Model
	if model == "" {
		model = ModelAnthropicClaudeSonnet4
	}
	return &AnthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		apiKey:      cfg.APIKey,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable reports whether an API key is configured.
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// ModelFor resolves the default model for a task.
func (p *AnthropicProvider) ModelFor(task Task) (string, error) {
	switch task {
	case TaskChat, TaskStream:
		return p.model, nil
	default:
		return "", errUnsupported(p.Name(), task)
	}
}

// Chat sends a chat completion request.
func (p *AnthropicProvider) Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (ChatResponse, error) {
	if !p.IsAvailable() {
		return ChatResponse{}, errUnavailable(p.Name())
	}

	params := p.buildParams(messages, resolveChatParams(opts, p.model, p.maxTokens, p.temperature))
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, mapAnthropicError(err)
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}

	var usage *TokenUsage
	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(message.Usage.InputTokens),
			CompletionTokens: uint32(message.Usage.OutputTokens),
			TotalTokens:      uint32(message.Usage.InputTokens + message.Usage.OutputTokens),
		}
	}

	return ChatResponse{
		Content:      content,
		Model:        string(message.Model),
		Usage:        usage,
		FinishReason: string(message.StopReason),
	}, nil
}

// Stream starts a streamed chat completion.
func (p *AnthropicProvider) Stream(ctx context.Context, messages []ChatMessage, opts *StreamOptions) (*Stream, error) {
	if !p.IsAvailable() {
		return nil, errUnavailable(p.Name())
	}

	params := p.buildParams(messages, resolveChatParams(opts.chatOptions(), p.model, p.maxTokens, p.temperature))

	return NewStream(ctx, opts, func(ctx context.Context, emit func(string) error) (*TokenUsage, error) {
		stream := p.client.Messages.NewStreaming(ctx, params)

		var usage *TokenUsage
		for stream.Next() {
			event := stream.Current()

			switch eventVariant := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				// Input tokens arrive with the message start.
				if eventVariant.Message.Usage.InputTokens > 0 {
					usage = &TokenUsage{
						PromptTokens: uint32(eventVariant.Message.Usage.InputTokens),
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text != "" {
						if err := emit(deltaVariant.Text); err != nil {
							return usage, err
						}
					}
				}
			case anthropic.MessageDeltaEvent:
				// Output tokens arrive with the message delta.
				if eventVariant.Usage.OutputTokens > 0 {
					if usage == nil {
						usage = &TokenUsage{}
					}
					usage.CompletionTokens = uint32(eventVariant.Usage.OutputTokens)
					usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
				}
			}
		}

		if err := stream.Err(); err != nil {
			return usage, mapAnthropicError(err)
		}
		return usage, nil
	}), nil
}

// Embed reports that Anthropic offers no embeddings endpoint.
func (p *AnthropicProvider) Embed(ctx context.Context, text string, opts *EmbedOptions) (EmbedResponse, error) {
	return EmbedResponse{}, errUnsupported(p.Name(), TaskEmbed)
}

// buildParams assembles Messages API parameters from resolved options.
func (p *AnthropicProvider) buildParams(messages []ChatMessage, params chatParams) anthropic.MessageNewParams {
	anthropicMessages, systemPrompt := convertToAnthropicMessages(messages)

	out := anthropic.MessageNewParams{
		Model:       anthropic.Model(params.Model),
		MaxTokens:   int64(params.MaxTokens),
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(float64(params.Temperature)),
	}
	if params.TopP != nil {
		out.TopP = anthropic.Float(float64(*params.TopP))
	}
	if len(params.Stop) > 0 {
		out.StopSequences = params.Stop
	}
	if systemPrompt != "" {
		out.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}
	return out
}

// convertToAnthropicMessages converts our ChatMessage to Anthropic format.
// All system turns are concatenated into a single directive returned
// separately, since the Messages API takes system text outside the turn
// sequence. The API also rejects conversations whose first turn is from the
// assistant, so a minimal placeholder user turn is synthesized in that case.
func convertToAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var systemParts []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			if len(anthropicMessages) == 0 {
				anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
					anthropic.NewTextBlock("..."),
				))
			}
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return anthropicMessages, strings.Join(systemParts, "\n\n")
}

// "prompt is too long: 210946 tokens > 204698 maximum"
var anthropicContextRe = regexp.MustCompile(`>\s*(\d+) maximum`)

// mapAnthropicError normalizes anthropic-sdk-go errors into the taxonomy.
func mapAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	if mapped := mapContextError("anthropic", err); mapped != nil {
		return mapped
	}

	var apierr *anthropic.Error
	if !errors.As(err, &apierr) {
		return &ProviderError{Provider: "anthropic", Kind: KindGeneric, Message: err.Error(), Cause: err}
	}

	message := err.Error()
	switch {
	case apierr.StatusCode == http.StatusTooManyRequests:
		pe := &ProviderError{Provider: "anthropic", Kind: KindRateLimited, Message: message, Cause: err}
		if apierr.Response != nil {
			pe.RetryAfter = retryAfterFromHeader(apierr.Response.Header)
		}
		return pe
	case apierr.StatusCode == http.StatusUnauthorized || apierr.StatusCode == http.StatusForbidden:
		return &ProviderError{Provider: "anthropic", Kind: KindAuthenticationFailed, Message: message, Cause: err}
	case apierr.StatusCode >= http.StatusInternalServerError:
		return &ProviderError{Provider: "anthropic", Kind: KindServerError, Message: message, Cause: err}
	case strings.Contains(message, "prompt is too long"):
		pe := &ProviderError{Provider: "anthropic", Kind: KindContextLengthExceeded, Message: message, Cause: err}
		if m := anthropicContextRe.FindStringSubmatch(message); m != nil {
			if v, perr := strconv.ParseUint(m[1], 10, 32); perr == nil {
				pe.MaxContextTokens = uint32(v)
			}
		}
		return pe
	default:
		return &ProviderError{Provider: "anthropic", Kind: KindGeneric, Message: message, Cause: err}
	}
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
