package llm

import (
	"context"
	"testing"
)

func TestConvertToAnthropicMessagesFoldsSystem(t *testing.T) {
	messages := []ChatMessage{
		SystemMessage("You are terse."),
		UserMessage("hello"),
		SystemMessage("Answer in English."),
		AssistantMessage("hi"),
	}

	converted, system := convertToAnthropicMessages(messages)

	// Every system turn folds into one directive, in order
	if system != "You are terse.\n\nAnswer in English." {
		t.Errorf("Unexpected system directive: %q", system)
	}
	if len(converted) != 2 {
		t.Errorf("Expected 2 turns after folding, got %d", len(converted))
	}
}

func TestConvertToAnthropicMessagesLeadingAssistant(t *testing.T) {
	messages := []ChatMessage{
		SystemMessage("context"),
		AssistantMessage("previously generated text"),
		UserMessage("continue"),
	}

	converted, _ := convertToAnthropicMessages(messages)

	// The Messages API rejects assistant-first conversations, so a
	// placeholder user turn is synthesized
	if len(converted) != 3 {
		t.Fatalf("Expected placeholder + 2 turns, got %d", len(converted))
	}
	if converted[0].Role != "user" {
		t.Errorf("Expected synthesized user turn first, got role %q", converted[0].Role)
	}
}

func TestAnthropicEmbedUnsupported(t *testing.T) {
	provider := NewAnthropicProvider(Config{APIKey: "sk-ant-test"})

	_, err := provider.Embed(context.Background(), "text", nil)
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != KindCapabilityUnsupported {
		t.Errorf("Expected capability_unsupported, got %v", err)
	}
	if Retryable(err) {
		t.Error("Missing capability must not trigger failover")
	}

	if _, err := provider.ModelFor(TaskEmbed); err == nil {
		t.Error("Expected ModelFor(TaskEmbed) to fail")
	}
}

func TestAnthropicUnavailableWithoutKey(t *testing.T) {
	provider := NewAnthropicProvider(Config{})
	if provider.IsAvailable() {
		t.Error("Adapter without API key should be unavailable")
	}

	_, err := provider.Chat(context.Background(), []ChatMessage{UserMessage("hi")}, nil)
	pe, ok := AsProviderError(err)
	if !ok || pe.Kind != KindProviderUnavailable {
		t.Errorf("Expected provider_unavailable, got %v", err)
	}
}

func TestAnthropicContextLimitPattern(t *testing.T) {
	m := anthropicContextRe.FindStringSubmatch("prompt is too long: 210946 tokens > 204698 maximum")
	if m == nil || m[1] != "204698" {
		t.Errorf("Expected advertised limit 204698, got %v", m)
	}
}
