package llm

import (
	"context"
	"testing"
)

func TestDeepSeekChatOnly(t *testing.T) {
	provider := NewDeepSeekProvider(Config{APIKey: "sk-test"})

	model, err := provider.ModelFor(TaskChat)
	if err != nil || model != ModelDeepSeekChat {
		t.Errorf("Expected default chat model, got %q (%v)", model, err)
	}

	// No embeddings endpoint
	_, err = provider.Embed(context.Background(), "text", nil)
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != KindCapabilityUnsupported {
		t.Errorf("Expected capability_unsupported, got %v", err)
	}
	if _, err := provider.ModelFor(TaskEmbed); err == nil {
		t.Error("Expected ModelFor(TaskEmbed) to fail")
	}
}

func TestDeepSeekUnavailableWithoutKey(t *testing.T) {
	provider := NewDeepSeekProvider(Config{})
	if provider.IsAvailable() {
		t.Error("Adapter without API key should be unavailable")
	}

	_, err := provider.Chat(context.Background(), []ChatMessage{UserMessage("hi")}, nil)
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != KindProviderUnavailable {
		t.Errorf("Expected provider_unavailable, got %v", err)
	}
}
