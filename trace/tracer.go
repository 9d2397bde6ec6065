// Tracing gateway decorator. Wraps the llm gateway with a four-phase
// protocol: record start, run the operation, record the outcome, re-raise
// any failure unchanged. For streams the returned sequence itself is the
// forwarding wrapper; chunks pass through unmodified and in order while the
// full text accumulates for the end record.

package trace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/avencia/modelgate/llm"
)

// Feature identifies the calling product surface.
type Feature string

const (
	FeatureCoaching        Feature = "coaching"
	FeatureRAG             Feature = "rag"
	FeatureAssessment      Feature = "assessment"
	FeatureContentAnalysis Feature = "content_analysis"
	FeatureGeneral         Feature = "general"
)

// Metadata annotates a traced call. All fields are optional. UserID is
// hashed before leaving the tracer; the raw value is never forwarded to the
// sink. Extra carries free-form annotations that have no named field.
type Metadata struct {
	UserID    string
	SessionID string
	Feature   Feature
	Pillar    string
	Mode      string
	Extra     map[string]string
}

// sanitized renders the metadata as sink-safe key/value pairs.
func (m *Metadata) sanitized() map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string)
	if m.UserID != "" {
		out["user_id"] = HashUserID(m.UserID)
	}
	if m.SessionID != "" {
		out["session_id"] = m.SessionID
	}
	if m.Feature != "" {
		out["feature"] = string(m.Feature)
	}
	if m.Pillar != "" {
		out["pillar"] = m.Pillar
	}
	if m.Mode != "" {
		out["mode"] = m.Mode
	}
	for k, v := range m.Extra {
		// Named fields win over extension entries on key collision.
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// HashUserID deterministically pseudonymizes a user identifier. The same
// input always yields the same hash, so runs remain correlatable per user
// without the sink ever seeing the raw ID.
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return "u:" + hex.EncodeToString(sum[:])[:16]
}

// maxLoggedChars bounds logged inputs and outputs so run records cannot grow
// without limit.
const maxLoggedChars = 800

// Service is the gateway surface the tracer wraps. *llm.Gateway satisfies it.
type Service interface {
	Chat(ctx context.Context, messages []llm.ChatMessage, opts *llm.ChatOptions) (llm.ChatResponse, error)
	Stream(ctx context.Context, messages []llm.ChatMessage, opts *llm.StreamOptions) (*llm.Stream, error)
	Embed(ctx context.Context, text string, opts *llm.EmbedOptions) (llm.EmbedResponse, error)
	EmbedBatch(ctx context.Context, texts []string, opts *llm.EmbedOptions) ([]llm.EmbedResponse, error)
	IsReady() bool
}

// Gateway decorates a Service with run recording. With a nil sink it is a
// pure pass-through.
type Gateway struct {
	inner   Service
	sink    Sink
	enabled bool
}

// NewGateway wraps inner. A nil sink disables tracing.
func NewGateway(inner Service, sink Sink) *Gateway {
	return &Gateway{inner: inner, sink: sink, enabled: sink != nil}
}

// tracing reports whether run records should be emitted.
func (g *Gateway) tracing() bool {
	return g.enabled && g.sink != nil
}

// start emits the run-start record. A sink failure disables recording for
// this call only; the operation proceeds regardless.
func (g *Gateway) start(ctx context.Context, operation, input string, md *Metadata) (string, bool) {
	runID, err := g.sink.CreateRun(context.WithoutCancel(ctx), Run{
		Name:      "gateway." + operation,
		Operation: operation,
		Input:     truncate(input),
		Metadata:  md.sanitized(),
		StartedAt: time.Now(),
	})
	if err != nil {
		return "", false
	}
	return runID, true
}

// finish emits the run-end record. Failures are ignored: recording must
// never alter the business outcome. The sink call is detached from the
// request context so a cancelled call still gets its end record.
func (g *Gateway) finish(ctx context.Context, runID string, outcome Outcome) {
	outcome.CompletedAt = time.Now()
	_ = g.sink.UpdateRun(context.WithoutCancel(ctx), runID, outcome)
}

// Chat runs a traced chat completion.
func (g *Gateway) Chat(ctx context.Context, messages []llm.ChatMessage, opts *llm.ChatOptions, md *Metadata) (llm.ChatResponse, error) {
	if !g.tracing() {
		return g.inner.Chat(ctx, messages, opts)
	}

	runID, recording := g.start(ctx, "chat", renderMessages(messages), md)
	started := time.Now()

	resp, err := g.inner.Chat(ctx, messages, opts)
	if recording {
		outcome := Outcome{Latency: time.Since(started)}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Output = truncate(resp.Content)
			outcome.Usage = resp.Usage
		}
		g.finish(ctx, runID, outcome)
	}
	return resp, err
}

// Stream runs a traced streamed completion. The tracer interposes on the
// stream's terminal events, so the record is written when the consumer
// finishes pulling chunks — including a failure mid-stream, which is
// recorded with whatever partial text accumulated.
func (g *Gateway) Stream(ctx context.Context, messages []llm.ChatMessage, opts *llm.StreamOptions, md *Metadata) (*llm.Stream, error) {
	if !g.tracing() {
		return g.inner.Stream(ctx, messages, opts)
	}

	runID, recording := g.start(ctx, "stream", renderMessages(messages), md)
	started := time.Now()

	var wrapped llm.StreamOptions
	if opts != nil {
		wrapped = *opts
	}
	userChunk := wrapped.OnChunk
	userComplete := wrapped.OnComplete
	userError := wrapped.OnError

	var stream *llm.Stream
	var full strings.Builder

	wrapped.OnChunk = func(chunk string) {
		full.WriteString(chunk)
		if userChunk != nil {
			userChunk(chunk)
		}
	}
	wrapped.OnComplete = func(text string) {
		if recording {
			outcome := Outcome{
				Output:  truncate(text),
				Latency: time.Since(started),
			}
			if stream != nil {
				outcome.Usage = stream.Usage()
			}
			g.finish(ctx, runID, outcome)
		}
		if userComplete != nil {
			userComplete(text)
		}
	}
	wrapped.OnError = func(err error) {
		if recording {
			g.finish(ctx, runID, Outcome{
				Output:  truncate(full.String()),
				Latency: time.Since(started),
				Error:   err.Error(),
			})
		}
		if userError != nil {
			userError(err)
		}
	}

	stream, err := g.inner.Stream(ctx, messages, &wrapped)
	if err != nil {
		if recording {
			g.finish(ctx, runID, Outcome{
				Latency: time.Since(started),
				Error:   err.Error(),
			})
		}
		return nil, err
	}
	return stream, nil
}

// Embed runs a traced embedding call. Vectors are summarized, not logged.
func (g *Gateway) Embed(ctx context.Context, text string, opts *llm.EmbedOptions, md *Metadata) (llm.EmbedResponse, error) {
	if !g.tracing() {
		return g.inner.Embed(ctx, text, opts)
	}

	runID, recording := g.start(ctx, "embed", text, md)
	started := time.Now()

	resp, err := g.inner.Embed(ctx, text, opts)
	if recording {
		outcome := Outcome{Latency: time.Since(started)}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Output = fmt.Sprintf("vector[%d]", len(resp.Embedding))
			outcome.Usage = resp.Usage
		}
		g.finish(ctx, runID, outcome)
	}
	return resp, err
}

// EmbedBatch runs a traced batch embedding call as a single run.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string, opts *llm.EmbedOptions, md *Metadata) ([]llm.EmbedResponse, error) {
	if !g.tracing() {
		return g.inner.EmbedBatch(ctx, texts, opts)
	}

	runID, recording := g.start(ctx, "embed", fmt.Sprintf("batch[%d]", len(texts)), md)
	started := time.Now()

	results, err := g.inner.EmbedBatch(ctx, texts, opts)
	if recording {
		outcome := Outcome{Latency: time.Since(started)}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Output = fmt.Sprintf("vectors[%d]", len(results))
		}
		g.finish(ctx, runID, outcome)
	}
	return results, err
}

// IsReady passes the health signal through untraced.
func (g *Gateway) IsReady() bool {
	return g.inner.IsReady()
}

// truncate bounds logged content to the character budget.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxLoggedChars {
		return s
	}
	return string(runes[:maxLoggedChars]) + "…"
}

// renderMessages flattens a conversation for the run record.
func renderMessages(messages []llm.ChatMessage) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}
