// Canonical error taxonomy. Every adapter maps its native failures into one
// of these kinds so the gateway and its callers can reason uniformly,
// independent of which provider produced the failure.

package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	// KindProviderUnavailable means no credential is configured for the
	// adapter. Never retried.
	KindProviderUnavailable ErrorKind = "provider_unavailable"

	// KindCapabilityUnsupported means the adapter does not offer the
	// requested operation (e.g. embeddings on a chat-only provider).
	// Never retried.
	KindCapabilityUnsupported ErrorKind = "capability_unsupported"

	// KindRateLimited maps HTTP 429 responses. Eligible for one failover.
	KindRateLimited ErrorKind = "rate_limited"

	// KindContextLengthExceeded means the input exceeded the model's
	// context window. Failover would hit the same limit, so never retried.
	KindContextLengthExceeded ErrorKind = "context_length_exceeded"

	// KindAuthenticationFailed maps HTTP 401/403 responses. Indicates
	// misconfiguration; never retried.
	KindAuthenticationFailed ErrorKind = "authentication_failed"

	// KindServerError maps 5xx responses and timeouts. Eligible for one
	// failover.
	KindServerError ErrorKind = "server_error"

	// KindGeneric is everything else. Eligible for one failover.
	KindGeneric ErrorKind = "generic"
)

// ProviderError is the canonical, provider-independent failure record.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string

	// RetryAfter is the provider's retry hint in seconds, for rate-limit
	// errors. nil when the provider supplied no hint (never zero-valued).
	RetryAfter *int

	// MaxContextTokens is the advertised context limit, for
	// context-length errors. Zero when unknown.
	MaxContextTokens uint32

	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Provider != "" {
		return fmt.Sprintf("llm %s: %s", e.Provider, msg)
	}
	return fmt.Sprintf("llm: %s", msg)
}

// Unwrap returns the native cause, if any.
func (e *ProviderError) Unwrap() error { return e.Cause }

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Retryable reports whether a failure is eligible for a single failover
// attempt. Unavailability, unsupported capabilities, authentication failures
// and context-length overruns are not: a second provider either cannot help
// or would fail identically.
func Retryable(err error) bool {
	pe, ok := AsProviderError(err)
	if !ok {
		return false
	}
	switch pe.Kind {
	case KindRateLimited, KindServerError, KindGeneric:
		return true
	default:
		return false
	}
}

// ErrNoProviderConfigured is returned by NewGateway when neither the primary
// nor the fallback adapter has a credential.
var ErrNoProviderConfigured = errors.New("no chat provider configured")

// ErrEmptyEmbedInput is returned before any network call when an embedding is
// requested for empty text.
var ErrEmptyEmbedInput = errors.New("embed: text must not be empty")

// errUnavailable builds the standard no-credential error for a provider.
func errUnavailable(provider string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     KindProviderUnavailable,
		Message:  "no API key configured",
	}
}

// errUnsupported builds the standard missing-capability error.
func errUnsupported(provider string, task Task) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     KindCapabilityUnsupported,
		Message:  fmt.Sprintf("%s is not supported by this provider", task),
	}
}
