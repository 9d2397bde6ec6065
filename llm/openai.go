// OpenAI adapter implementation using the go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Chat Completions and Embeddings
// - Native error normalization into the taxonomy
//
// This is the capability-complete adapter: chat, streaming and embeddings.

package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	apiKey      string
	model       string
	embedModel  string
	maxTokens   uint32
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI adapter. An empty API key yields an
// unavailable adapter: construction never fails, calls do.
func NewOpenAIProvider(cfg Config) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = ModelOpenAIGPT4o
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = ModelOpenAIEmbedding3Small
	}
	return &OpenAIProvider{
		client:      openai.NewClient(cfg.APIKey),
		apiKey:      cfg.APIKey,
		model:       model,
		embedModel:  embedModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable reports whether an API key is configured.
func (p *OpenAIProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// ModelFor resolves the default model for a task.
func (p *OpenAIProvider) ModelFor(task Task) (string, error) {
	switch task {
	case TaskChat, TaskStream:
		return p.model, nil
	case TaskEmbed:
		return p.embedModel, nil
	default:
		return "", errUnsupported(p.Name(), task)
	}
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (ChatResponse, error) {
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
func (p *OpenAIProvider) Stream(ctx context.Context, messages []ChatMessage, opts *StreamOptions) (*Stream, error) {
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

			// Usage arrives in the final chunk when IncludeUsage is set.
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

// Embed produces an embedding vector for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string, opts *EmbedOptions) (EmbedResponse, error) {
	if !p.IsAvailable() {
		return EmbedResponse{}, errUnavailable(p.Name())
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(overrideEmbedModel(p.embedModel, opts)),
	}
	if opts != nil && opts.Dimensions != nil {
		req.Dimensions = *opts.Dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return EmbedResponse{}, mapOpenAICompatError(p.Name(), err)
	}
	if len(resp.Data) == 0 {
		return EmbedResponse{}, errEmptyResponse(p.Name(), "embedding")
	}

	return EmbedResponse{
		Embedding: resp.Data[0].Embedding,
		Model:     string(resp.Model),
		Usage: &TokenUsage{
			PromptTokens: uint32(resp.Usage.PromptTokens),
			TotalTokens:  uint32(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildRequest assembles a chat completion request from resolved parameters.
func (p *OpenAIProvider) buildRequest(messages []ChatMessage, params chatParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		Messages:    convertToOpenAIMessages(messages),
		MaxTokens:   int(params.MaxTokens),
		Temperature: params.Temperature,
		Stop:        params.Stop,
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

// convertToOpenAIMessages converts our ChatMessage to openai.ChatCompletionMessage.
// OpenAI accepts system messages inline, so the sequence maps one to one.
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
