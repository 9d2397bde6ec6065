package llm

import (
	"context"
	"net/http"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiUnavailableWithoutKey(t *testing.T) {
	provider := NewGeminiProvider(Config{})
	if provider.IsAvailable() {
		t.Error("Adapter without API key should be unavailable")
	}

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

func TestConvertToGeminiMessages(t *testing.T) {
	messages := []ChatMessage{
		SystemMessage("be brief"),
		UserMessage("hello"),
		AssistantMessage("hi"),
		SystemMessage("stay polite"),
	}

	contents, system := convertToGeminiMessages(messages)

	if system != "be brief\n\nstay polite" {
		t.Errorf("Unexpected system instruction: %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("Expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Errorf("Expected user role, got %q", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("Expected model role for assistant turn, got %q", contents[1].Role)
	}
}

func TestMapGeminiError(t *testing.T) {
	cases := []struct {
		name string
		err  genai.APIError
		kind ErrorKind
	}{
		{"rate limited", genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded"}, KindRateLimited},
		{"auth", genai.APIError{Code: http.StatusForbidden, Message: "invalid key"}, KindAuthenticationFailed},
		{"server", genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}, KindServerError},
		{"context", genai.APIError{Code: http.StatusBadRequest, Message: "input exceeds the maximum number of tokens"}, KindContextLengthExceeded},
		{"generic", genai.APIError{Code: http.StatusBadRequest, Message: "bad request"}, KindGeneric},
	}

	for _, tc := range cases {
		mapped := mapGeminiError(tc.err)
		pe, ok := AsProviderError(mapped)
		if !ok {
			t.Errorf("%s: expected ProviderError, got %T", tc.name, mapped)
			continue
		}
		if pe.Kind != tc.kind {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.kind, pe.Kind)
		}
		if pe.Provider != "gemini" {
			t.Errorf("%s: expected gemini provider tag, got %q", tc.name, pe.Provider)
		}
	}
}

func TestGeminiUsageToleratesAbsence(t *testing.T) {
	if geminiUsage(nil) != nil {
		t.Error("Expected nil usage for absent metadata")
	}

	usage := geminiUsage(&genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     10,
		CandidatesTokenCount: 4,
		TotalTokenCount:      14,
	})
	if usage == nil || usage.PromptTokens != 10 || usage.CompletionTokens != 4 || usage.TotalTokens != 14 {
		t.Errorf("Unexpected usage: %+v", usage)
	}
}
