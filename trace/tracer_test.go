package trace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avencia/modelgate/llm"
)

// fakeSink records everything it receives.
type fakeSink struct {
	creates    []Run
	outcomes   map[string]Outcome
	nextID     string
	createErr  error
	updateErr  error
	updateDone int
}

func newFakeSink() *fakeSink {
	return &fakeSink{outcomes: map[string]Outcome{}, nextID: "run-1"}
}

func (f *fakeSink) CreateRun(ctx context.Context, run Run) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates = append(f.creates, run)
	return f.nextID, nil
}

func (f *fakeSink) UpdateRun(ctx context.Context, runID string, outcome Outcome) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.outcomes[runID] = outcome
	f.updateDone++
	return nil
}

// stubService is a scriptable gateway for tracer tests.
type stubService struct {
	chatResp llm.ChatResponse
	chatErr  error

	embedResp llm.EmbedResponse
	embedErr  error

	streamChunks []string
	streamErr    error
	streamEndErr error
	usage        *llm.TokenUsage
}

func (s *stubService) Chat(ctx context.Context, messages []llm.ChatMessage, opts *llm.ChatOptions) (llm.ChatResponse, error) {
	return s.chatResp, s.chatErr
}

func (s *stubService) Stream(ctx context.Context, messages []llm.ChatMessage, opts *llm.StreamOptions) (*llm.Stream, error) {
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	chunks := s.streamChunks
	endErr := s.streamEndErr
	usage := s.usage
	return llm.NewStream(ctx, opts, func(ctx context.Context, emit func(string) error) (*llm.TokenUsage, error) {
		for _, c := range chunks {
			if err := emit(c); err != nil {
				return nil, err
			}
		}
		return usage, endErr
	}), nil
}

func (s *stubService) Embed(ctx context.Context, text string, opts *llm.EmbedOptions) (llm.EmbedResponse, error) {
	return s.embedResp, s.embedErr
}

func (s *stubService) EmbedBatch(ctx context.Context, texts []string, opts *llm.EmbedOptions) ([]llm.EmbedResponse, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	out := make([]llm.EmbedResponse, len(texts))
	for i := range texts {
		out[i] = s.embedResp
	}
	return out, nil
}

func (s *stubService) IsReady() bool { return true }

func TestChatRecordsRun(t *testing.T) {
	sink := newFakeSink()
	usage := &llm.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}
	inner := &stubService{chatResp: llm.ChatResponse{Content: "hello there", Usage: usage}}
	gw := NewGateway(inner, sink)

	resp, err := gw.Chat(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, &Metadata{Feature: FeatureCoaching})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Content != "hello there" {
		t.Errorf("Response altered by tracing: %q", resp.Content)
	}

	if len(sink.creates) != 1 {
		t.Fatalf("Expected one run record, got %d", len(sink.creates))
	}
	run := sink.creates[0]
	if run.Operation != "chat" || run.Name != "gateway.chat" {
		t.Errorf("Unexpected run identity: %s / %s", run.Name, run.Operation)
	}
	if !strings.Contains(run.Input, "user: hi") {
		t.Errorf("Expected rendered input, got %q", run.Input)
	}
	if run.Metadata["feature"] != "coaching" {
		t.Errorf("Expected feature metadata, got %v", run.Metadata)
	}

	outcome := sink.outcomes["run-1"]
	if outcome.Output != "hello there" {
		t.Errorf("Expected output recorded, got %q", outcome.Output)
	}
	if outcome.Usage == nil || outcome.Usage.TotalTokens != 15 {
		t.Errorf("Expected usage recorded, got %+v", outcome.Usage)
	}
	if outcome.Error != "" {
		t.Errorf("Unexpected error in outcome: %q", outcome.Error)
	}
}

func TestChatErrorReRaisedUnchanged(t *testing.T) {
	sink := newFakeSink()
	chatErr := &llm.ProviderError{Provider: "openai", Kind: llm.KindRateLimited, Message: "slow down"}
	inner := &stubService{chatErr: chatErr}
	gw := NewGateway(inner, sink)

	_, err := gw.Chat(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, nil)
	if !errors.Is(err, chatErr) {
		t.Errorf("Tracing must re-raise the original error, got %v", err)
	}

	outcome := sink.outcomes["run-1"]
	if outcome.Error == "" {
		t.Error("Expected error recorded in outcome")
	}
}

func TestSinkFailureDoesNotFailCall(t *testing.T) {
	sink := newFakeSink()
	sink.createErr = errors.New("sink down")
	inner := &stubService{chatResp: llm.ChatResponse{Content: "ok"}}
	gw := NewGateway(inner, sink)

	resp, err := gw.Chat(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, nil)
	if err != nil {
		t.Fatalf("A failing sink must not fail the call: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Unexpected response: %q", resp.Content)
	}
	if sink.updateDone != 0 {
		t.Error("No outcome should be recorded when the start record failed")
	}
}

func TestNilSinkPassThrough(t *testing.T) {
	inner := &stubService{chatResp: llm.ChatResponse{Content: "ok"}}
	gw := NewGateway(inner, nil)

	resp, err := gw.Chat(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, nil)
	if err != nil || resp.Content != "ok" {
		t.Errorf("Expected pass-through, got %q / %v", resp.Content, err)
	}
	if !gw.IsReady() {
		t.Error("Readiness should pass through")
	}
}

func TestUserIDHashed(t *testing.T) {
	sink := newFakeSink()
	inner := &stubService{chatResp: llm.ChatResponse{Content: "ok"}}
	gw := NewGateway(inner, sink)

	const rawID = "user-12345@example.com"
	_, err := gw.Chat(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, &Metadata{UserID: rawID})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	got := sink.creates[0].Metadata["user_id"]
	if got == rawID || strings.Contains(got, "12345") {
		t.Errorf("Raw user ID leaked to sink: %q", got)
	}
	if !strings.HasPrefix(got, "u:") {
		t.Errorf("Expected hashed form, got %q", got)
	}
	// Same input, same hash: runs stay correlatable per user
	if got != HashUserID(rawID) {
		t.Error("Hash is not deterministic")
	}
	if HashUserID("other") == HashUserID(rawID) {
		t.Error("Different IDs must hash differently")
	}
}

func TestLongInputTruncated(t *testing.T) {
	sink := newFakeSink()
	inner := &stubService{chatResp: llm.ChatResponse{Content: strings.Repeat("y", 5000)}}
	gw := NewGateway(inner, sink)

	long := strings.Repeat("x", 5000)
	_, err := gw.Chat(context.Background(), []llm.ChatMessage{llm.UserMessage(long)}, nil, nil)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if n := len([]rune(sink.creates[0].Input)); n > maxLoggedChars+1 {
		t.Errorf("Input not truncated: %d runes", n)
	}
	if n := len([]rune(sink.outcomes["run-1"].Output)); n > maxLoggedChars+1 {
		t.Errorf("Output not truncated: %d runes", n)
	}
}

func TestStreamRecordsOnCompletion(t *testing.T) {
	sink := newFakeSink()
	usage := &llm.TokenUsage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}
	inner := &stubService{streamChunks: []string{"Hel", "lo"}, usage: usage}
	gw := NewGateway(inner, sink)

	var userChunks []string
	opts := &llm.StreamOptions{OnChunk: func(c string) { userChunks = append(userChunks, c) }}

	stream, err := gw.Stream(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, opts, nil)
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// Nothing recorded until the consumer finishes pulling
	if sink.updateDone != 0 {
		t.Error("Outcome recorded before the stream ended")
	}

	text, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if text != "Hello" {
		t.Errorf("Chunks altered by tracing: %q", text)
	}

	// The caller's own callback still fires, per chunk and in order
	if len(userChunks) != 2 || userChunks[0] != "Hel" {
		t.Errorf("User callback disturbed: %v", userChunks)
	}

	outcome := sink.outcomes["run-1"]
	if outcome.Output != "Hello" {
		t.Errorf("Expected full text recorded, got %q", outcome.Output)
	}
	if outcome.Usage == nil || outcome.Usage.TotalTokens != 7 {
		t.Errorf("Expected usage recorded, got %+v", outcome.Usage)
	}
}

func TestStreamFailureRecordsPartialText(t *testing.T) {
	sink := newFakeSink()
	streamErr := &llm.ProviderError{Provider: "openai", Kind: llm.KindServerError, Message: "dropped"}
	inner := &stubService{streamChunks: []string{"par", "tial"}, streamEndErr: streamErr}
	gw := NewGateway(inner, sink)

	stream, err := gw.Stream(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, nil)
	if err != nil {
		t.Fatalf("Stream creation failed: %v", err)
	}

	text, err := stream.Collect()
	if !errors.Is(err, streamErr) {
		t.Errorf("Expected stream error to surface, got %v", err)
	}
	if text != "partial" {
		t.Errorf("Expected partial text, got %q", text)
	}

	outcome := sink.outcomes["run-1"]
	if outcome.Error == "" {
		t.Error("Expected error recorded")
	}
	if outcome.Output != "partial" {
		t.Errorf("Expected partial text recorded, got %q", outcome.Output)
	}
}

func TestStreamCreationFailureRecordsImmediately(t *testing.T) {
	sink := newFakeSink()
	streamErr := &llm.ProviderError{Provider: "openai", Kind: llm.KindAuthenticationFailed, Message: "bad key"}
	inner := &stubService{streamErr: streamErr}
	gw := NewGateway(inner, sink)

	_, err := gw.Stream(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")}, nil, nil)
	if !errors.Is(err, streamErr) {
		t.Errorf("Expected creation error to surface, got %v", err)
	}
	if sink.outcomes["run-1"].Error == "" {
		t.Error("Expected immediate outcome record for creation failure")
	}
}

func TestEmbedOutputSummarized(t *testing.T) {
	sink := newFakeSink()
	inner := &stubService{embedResp: llm.EmbedResponse{Embedding: []float32{0.123456, 0.654321, 0.5}}}
	gw := NewGateway(inner, sink)

	_, err := gw.Embed(context.Background(), "some document", nil, nil)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	outcome := sink.outcomes["run-1"]
	if outcome.Output != "vector[3]" {
		t.Errorf("Expected vector summary, got %q", outcome.Output)
	}
	if strings.Contains(outcome.Output, "0.123") {
		t.Error("Raw vector values must never reach the sink")
	}
}

func TestMetadataNamedFieldsWinOverExtra(t *testing.T) {
	md := &Metadata{
		SessionID: "s-1",
		Extra:     map[string]string{"session_id": "spoofed", "team": "growth"},
	}
	got := md.sanitized()
	if got["session_id"] != "s-1" {
		t.Errorf("Named field should win on collision, got %q", got["session_id"])
	}
	if got["team"] != "growth" {
		t.Errorf("Extra entries should carry through, got %v", got)
	}
}
