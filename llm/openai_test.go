package llm

import (
	"context"
	"testing"
)

func TestOpenAIUnavailableWithoutKey(t *testing.T) {
	provider := NewOpenAIProvider(Config{})
	if provider.IsAvailable() {
		t.Error("Adapter without API key should be unavailable")
	}

	// Calls fail before any network activity
	_, err := provider.Chat(context.Background(), []ChatMessage{UserMessage("hi")}, nil)
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != KindProviderUnavailable {
		t.Errorf("Expected provider_unavailable, got %v", err)
	}

	_, err = provider.Embed(context.Background(), "text", nil)
	pe, ok = AsProviderError(err)
	if !ok || pe.Kind != KindProviderUnavailable {
		t.Errorf("Expected provider_unavailable for embed, got %v", err)
	}
}

func TestOpenAIAvailabilityIsPure(t *testing.T) {
	provider := NewOpenAIProvider(Config{APIKey: "sk-test-key"})
	// Repeated checks observe the same configuration, no probing involved
	for i := 0; i < 3; i++ {
		if !provider.IsAvailable() {
			t.Fatal("Adapter with API key should be available")
		}
	}
}

func TestOpenAIModelFor(t *testing.T) {
	provider := NewOpenAIProvider(Config{APIKey: "sk-test-key"})

	model, err := provider.ModelFor(TaskChat)
	if err != nil || model != ModelOpenAIGPT4o {
		t.Errorf("Expected default chat model, got %q (%v)", model, err)
	}

	embedModel, err := provider.ModelFor(TaskEmbed)
	if err != nil || embedModel != ModelOpenAIEmbedding3Small {
		t.Errorf("Expected default embed model, got %q (%v)", embedModel, err)
	}

	// Configured models win over defaults
	custom := NewOpenAIProvider(Config{APIKey: "sk-test-key", Model: ModelOpenAIGPT4oMini})
	model, _ = custom.ModelFor(TaskStream)
	if model != ModelOpenAIGPT4oMini {
		t.Errorf("Expected configured model, got %q", model)
	}
}

func TestOpenAIBuildRequest(t *testing.T) {
	provider := NewOpenAIProvider(Config{APIKey: "sk-test-key", MaxTokens: 2048, Temperature: 0.3})

	topP := float32(0.9)
	params := resolveChatParams(&ChatOptions{TopP: &topP, Stop: []string{"END"}}, provider.model, provider.maxTokens, provider.temperature)
	req := provider.buildRequest([]ChatMessage{SystemMessage("be brief"), UserMessage("hi")}, params)

	if req.Model != ModelOpenAIGPT4o {
		t.Errorf("Expected model %q, got %q", ModelOpenAIGPT4o, req.Model)
	}
	if req.MaxTokens != 2048 {
		t.Errorf("Expected max tokens 2048, got %d", req.MaxTokens)
	}
	if req.Temperature != 0.3 {
		t.Errorf("Expected temperature 0.3, got %f", req.Temperature)
	}
	if req.TopP != 0.9 {
		t.Errorf("Expected top_p 0.9, got %f", req.TopP)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "END" {
		t.Errorf("Expected stop sequence, got %v", req.Stop)
	}

	// System messages pass through inline, one turn per message
	if len(req.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("Unexpected roles: %s, %s", req.Messages[0].Role, req.Messages[1].Role)
	}
}
