// Google Gemini adapter implementation using the official
// google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - System instruction handling via config
// - Streaming via the SDK's iterator
// - Embeddings via Models.EmbedContent

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	apiKey      string
	model       string
	embedModel  string
	maxTokens   uint32
	temperature float32
	initErr     error // client initialization error, reported on first use
}

// NewGeminiProvider creates a new Gemini adapter. An empty API key yields an
// unavailable adapter; a client initialization failure is stored and
// returned on first use so the constructor signature stays uniform.
func NewGeminiProvider(cfg Config) *GeminiProvider {
	model := cfg.Model
	if model == "" {
		model = ModelGeminiFlash2
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = ModelGeminiEmbedding
	}

	p := &GeminiProvider{
		apiKey:      cfg.APIKey,
		model:       model,
		embedModel:  embedModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if cfg.APIKey == "" {
		return p
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable reports whether an API key is configured.
func (p *GeminiProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// ModelFor resolves the default model for a task.
func (p *GeminiProvider) ModelFor(task Task) (string, error) {
	switch task {
	case TaskChat, TaskStream:
		return p.model, nil
	case TaskEmbed:
		return p.embedModel, nil
	default:
		return "", errUnsupported(p.Name(), task)
	}
}

// ready guards every call: credential configured and client initialized.
func (p *GeminiProvider) ready() error {
	if !p.IsAvailable() {
		return errUnavailable(p.Name())
	}
	if p.initErr != nil {
		return &ProviderError{Provider: p.Name(), Kind: KindGeneric, Message: p.initErr.Error(), Cause: p.initErr}
	}
	return nil
}

// Chat sends a chat completion request.
func (p *GeminiProvider) Chat(ctx context.Context, messages []ChatMessage, opts *ChatOptions) (ChatResponse, error) {
	if err := p.ready(); err != nil {
		return ChatResponse{}, err
	}

	params := resolveChatParams(opts, p.model, p.maxTokens, p.temperature)
	contents, config := p.buildRequest(messages, params)

	response, err := p.client.Models.GenerateContent(ctx, params.Model, contents, config)
	if err != nil {
		return ChatResponse{}, mapGeminiError(err)
	}

	content := response.Text()
	if content == "" {
		return ChatResponse{}, errEmptyResponse(p.Name(), "chat")
	}

	finishReason := ""
	if len(response.Candidates) > 0 {
		finishReason = string(response.Candidates[0].FinishReason)
	}

	return ChatResponse{
		Content:      content,
		Model:        params.Model,
		Usage:        geminiUsage(response.UsageMetadata),
		FinishReason: finishReason,
	}, nil
}

// Stream starts a streamed chat completion.
func (p *GeminiProvider) Stream(ctx context.Context, messages []ChatMessage, opts *StreamOptions) (*Stream, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	params := resolveChatParams(opts.chatOptions(), p.model, p.maxTokens, p.temperature)
	contents, config := p.buildRequest(messages, params)

	return NewStream(ctx, opts, func(ctx context.Context, emit func(string) error) (*TokenUsage, error) {
		var usage *TokenUsage
		// GenerateContentStream returns iter.Seq2[*GenerateContentResponse, error]
		for response, err := range p.client.Models.GenerateContentStream(ctx, params.Model, contents, config) {
			if err != nil {
				return usage, mapGeminiError(err)
			}

			if u := geminiUsage(response.UsageMetadata); u != nil {
				usage = u
			}

			if text := response.Text(); text != "" {
				if err := emit(text); err != nil {
					return usage, err
				}
			}
		}
		return usage, nil
	}), nil
}

// Embed produces an embedding vector for the given text.
func (p *GeminiProvider) Embed(ctx context.Context, text string, opts *EmbedOptions) (EmbedResponse, error) {
	if err := p.ready(); err != nil {
		return EmbedResponse{}, err
	}

	model := overrideEmbedModel(p.embedModel, opts)
	config := &genai.EmbedContentConfig{}
	if opts != nil && opts.Dimensions != nil {
		config.OutputDimensionality = genai.Ptr(int32(*opts.Dimensions))
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	response, err := p.client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return EmbedResponse{}, mapGeminiError(err)
	}
	if response == nil || len(response.Embeddings) == 0 || len(response.Embeddings[0].Values) == 0 {
		return EmbedResponse{}, errEmptyResponse(p.Name(), "embedding")
	}

	embedding := response.Embeddings[0]
	var usage *TokenUsage
	if embedding.Statistics != nil && embedding.Statistics.TokenCount > 0 {
		usage = &TokenUsage{TotalTokens: uint32(embedding.Statistics.TokenCount)}
	}

	return EmbedResponse{
		Embedding: embedding.Values,
		Model:     model,
		Usage:     usage,
	}, nil
}

// buildRequest assembles contents and generation config from resolved
// parameters. System turns become a single system instruction.
func (p *GeminiProvider) buildRequest(messages []ChatMessage, params chatParams) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents, systemInstruction := convertToGeminiMessages(messages)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(params.Temperature),
		MaxOutputTokens: int32(params.MaxTokens),
	}
	if params.TopP != nil {
		config.TopP = genai.Ptr(*params.TopP)
	}
	if params.FrequencyPenalty != nil {
		config.FrequencyPenalty = genai.Ptr(*params.FrequencyPenalty)
	}
	if params.PresencePenalty != nil {
		config.PresencePenalty = genai.Ptr(*params.PresencePenalty)
	}
	if len(params.Stop) > 0 {
		config.StopSequences = params.Stop
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	return contents, config
}

// convertToGeminiMessages converts our ChatMessage to Gemini format.
// System messages are concatenated and returned separately.
func convertToGeminiMessages(messages []ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemParts []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}

	return contents, strings.Join(systemParts, "\n\n")
}

// geminiUsage converts SDK usage metadata, tolerating its absence.
func geminiUsage(meta *genai.GenerateContentResponseUsageMetadata) *TokenUsage {
	if meta == nil {
		return nil
	}
	return &TokenUsage{
		PromptTokens:     uint32(meta.PromptTokenCount),
		CompletionTokens: uint32(meta.CandidatesTokenCount),
		TotalTokens:      uint32(meta.TotalTokenCount),
	}
}

// mapGeminiError normalizes genai SDK errors into the taxonomy.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}
	if mapped := mapContextError("gemini", err); mapped != nil {
		return mapped
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return &ProviderError{Provider: "gemini", Kind: KindGeneric, Message: err.Error(), Cause: err}
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		// Gemini reports quota exhaustion without a machine-readable
		// retry hint in the error body.
		return &ProviderError{Provider: "gemini", Kind: KindRateLimited, Message: apiErr.Message, Cause: err}
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return &ProviderError{Provider: "gemini", Kind: KindAuthenticationFailed, Message: apiErr.Message, Cause: err}
	case apiErr.Code >= http.StatusInternalServerError:
		return &ProviderError{Provider: "gemini", Kind: KindServerError, Message: apiErr.Message, Cause: err}
	case strings.Contains(apiErr.Message, "exceeds the maximum number of tokens"):
		return &ProviderError{Provider: "gemini", Kind: KindContextLengthExceeded, Message: apiErr.Message, Cause: err}
	default:
		return &ProviderError{Provider: "gemini", Kind: KindGeneric, Message: apiErr.Message, Cause: err}
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
