// Package trace instruments gateway calls with best-effort run records sent
// to an observability sink. Tracing never blocks or fails the wrapped
// operation: a sink that is down, slow to configure, or rejecting writes
// degrades the tracer to a pass-through.
package trace

import (
	"context"
	"time"

	"github.com/avencia/modelgate/llm"
)

// Run describes a gateway call at the moment it starts. Inputs and metadata
// are already sanitized and truncated by the tracer before a Run leaves it.
type Run struct {
	// Name is the span name, e.g. "gateway.chat".
	Name string

	// Operation is the gateway operation: chat, stream or embed.
	Operation string

	// Input is the truncated rendering of the call input.
	Input string

	// Metadata carries the sanitized call metadata. User identifiers are
	// hashed; raw IDs never appear here.
	Metadata map[string]string

	StartedAt time.Time
}

// Outcome describes how a run ended.
type Outcome struct {
	// Output is the truncated call output. Empty on failure beyond any
	// partial stream text accumulated before the error.
	Output string

	// Usage is the provider-reported token usage, when known.
	Usage *llm.TokenUsage

	// Latency is the measured wall-clock duration of the call.
	Latency time.Duration

	// Error is the failure message; empty on success.
	Error string

	CompletedAt time.Time
}

// Sink receives run records. Implementations must tolerate concurrent calls;
// they need not tolerate high latency, since the tracer calls them inline.
// The reference implementation is storage.RunStore.
type Sink interface {
	// CreateRun records a started run and returns its identifier.
	CreateRun(ctx context.Context, run Run) (string, error)

	// UpdateRun records the outcome for a previously created run.
	UpdateRun(ctx context.Context, runID string, outcome Outcome) error
}
