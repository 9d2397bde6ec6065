// Package llm provides shared data models for LLM providers.
package llm

// Message roles. Conversations are ordered sequences of these; adapters
// translate them into whatever shape their provider expects.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// TokenUsage contains token usage statistics.
// TotalTokens == PromptTokens + CompletionTokens whenever both are known.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// ChatResponse represents a completed chat call.
type ChatResponse struct {
	Content      string
	Model        string
	Usage        *TokenUsage
	FinishReason string
}

// EmbedResponse represents an embedding call result.
// Embedding preserves the provider's vector order.
type EmbedResponse struct {
	Embedding []float32
	Model     string
	Usage     *TokenUsage
}

// Task identifies a gateway operation for model resolution.
type Task int

const (
	// TaskChat is a blocking chat completion.
	TaskChat Task = iota
	// TaskStream is a streamed chat completion.
	TaskStream
	// TaskEmbed is an embedding request.
	TaskEmbed
)

// String returns the task name.
func (t Task) String() string {
	switch t {
	case TaskChat:
		return "chat"
	case TaskStream:
		return "stream"
	case TaskEmbed:
		return "embed"
	default:
		return "unknown"
	}
}
