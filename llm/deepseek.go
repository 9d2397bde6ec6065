// DeepSeek adapter implementation using the go-openai library.
//
// Information Hiding:
// - OpenAI-compatible API behind a different base URL
// - Native error normalization shared with the OpenAI adapter
//
// DeepSeek serves chat and streaming only; embeddings report
// capability_unsupported.

package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   uint32
	temperature float32
}

// NewDeepSeekProvider creates a new DeepSeek adapter. An empty API key
// yields an unavailable adapter: construction never fails, calls do.
func NewDeepSeekProvider(cfg Config) *DeepSeekProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = deepseekBaseURL

	model := cfg.Model
	if model == "" {
		model = ModelDeepSeekChat
	}
	return &DeepSeekProvider{
		client:      openai.NewClientWithConfig(config),
		apiKey:      cfg.APIKey,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// IsAvailable reports whether an API key is configured.
func (p *DeepSeekProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// ModelFor resolves the default model for a task.
func (p *DeepSeekProvider) ModelFor(task Task) (string, error) {
	switch task {
	case TaskChat, TaskStream:
		return p.model, nil
	default:
		return "", errUnsupported(p.Name(), task)
	}
}

// Chat sends a chat completion request.
func (p *DeepSeekProvider) Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (ChatResponse, error) {
	if !p.IsAvailable() {
		return ChatResponse{}, errUnavailable(p.Name())
	}

	req := p.buildRequest(messages, resolveChatParams(opts, p.model, p.maxTokens, p.temperature))
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ChatResponse{}, mapOpenAICompatError(p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, errEmptyResponse(p.Name(), "chat")
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		Usage:        usage,
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// Stream starts a streamed chat completion.
func (p *DeepSeekProvider) Stream(ctx context.Context, messages []ChatMessage, opts *StreamOptions) (*Stream, error) {
	if !p.IsAvailable() {
		return nil, errUnavailable(p.Name())
	}

	req := p.buildRequest(messages, resolveChatParams(opts.chatOptions(), p.model, p.maxTokens, p.temperature))
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	return NewStream(ctx, opts, func(ctx context.Context, emit func(string) error) (*TokenUsage, error) {
		stream, err := p.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return nil, mapOpenAICompatError(p.Name(), err)
		}
		defer stream.Close()

		var usage *TokenUsage
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return usage, nil
			}
			if err != nil {
				return usage, mapOpenAICompatError(p.Name(), err)
			}

			if response.Usage != nil {
				usage = &TokenUsage{
					PromptTokens:     uint32(response.Usage.PromptTokens),
					CompletionTokens: uint32(response.Usage.CompletionTokens),
					TotalTokens:      uint32(response.Usage.TotalTokens),
				}
			}

			if len(response.Choices) > 0 {
				if content := response.Choices[0].Delta.Content; content != "" {
					if err := emit(content); err != nil {
						return usage, err
					}
				}
			}
		}
	}), nil
}

// Embed reports that DeepSeek offers no embeddings endpoint.
func (p *DeepSeekProvider) Embed(ctx context.Context, text string, opts *EmbedOptions) (EmbedResponse, error) {
	return EmbedResponse{}, errUnsupported(p.Name(), TaskEmbed)
}

// buildRequest assembles a chat completion request from resolved parameters.
// DeepSeek expects max_completion_tokens rather than the legacy max_tokens.
func (p *DeepSeekProvider) buildRequest(messages []ChatMessage, params chatParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:               params.Model,
		Messages:            convertToOpenAIMessages(messages),
		MaxCompletionTokens: int(params.MaxTokens),
		Temperature:         params.Temperature,
		Stop:                params.Stop,
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.FrequencyPenalty != nil {
		req.FrequencyPenalty = *params.FrequencyPenalty
	}
	if params.PresencePenalty != nil {
		req.PresencePenalty = *params.PresencePenalty
	}
	return req
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)
