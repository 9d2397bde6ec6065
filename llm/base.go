// Shared adapter plumbing: normalization of OpenAI-compatible SDK errors into
// the taxonomy, and the message-substring parsers the mappings rely on. The
// substrings are provider wire-format details and stay local to this layer.

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// mapOpenAICompatError normalizes errors from the go-openai client, which
// serves both the OpenAI and DeepSeek adapters.
func mapOpenAICompatError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if mapped := mapContextError(provider, err); mapped != nil {
		return mapped
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		if code == "context_length_exceeded" || strings.Contains(apiErr.Message, "maximum context length") {
			return &ProviderError{
				Provider:         provider,
				Kind:             KindContextLengthExceeded,
				Message:          apiErr.Message,
				MaxContextTokens: parseContextLimit(apiErr.Message),
				Cause:            err,
			}
		}
		return mapHTTPStatus(provider, apiErr.HTTPStatusCode, apiErr.Message, parseRetrySeconds(apiErr.Message), err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return mapHTTPStatus(provider, reqErr.HTTPStatusCode, reqErr.Error(), nil, err)
	}

	return &ProviderError{Provider: provider, Kind: KindGeneric, Message: err.Error(), Cause: err}
}

// mapContextError handles cancellation and deadline expiry uniformly across
// adapters. Deadline expiry counts as a server-class failure so the gateway
// may fail over; cancellation is the caller's own doing and is not retried.
func mapContextError(provider string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ProviderError{
			Provider: provider,
			Kind:     KindServerError,
			Message:  "request deadline exceeded",
			Cause:    err,
		}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return nil
	}
}

// mapHTTPStatus classifies a native HTTP status into the taxonomy.
func mapHTTPStatus(provider string, status int, message string, retryAfter *int, cause error) *ProviderError {
	pe := &ProviderError{Provider: provider, Message: message, Cause: cause}
	switch {
	case status == http.StatusTooManyRequests:
		pe.Kind = KindRateLimited
		pe.RetryAfter = retryAfter
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		pe.Kind = KindAuthenticationFailed
	case status >= http.StatusInternalServerError:
		pe.Kind = KindServerError
	default:
		pe.Kind = KindGeneric
	}
	return pe
}

// OpenAI embeds retry hints in the message text ("Please try again in 20s" /
// "in 350ms") rather than a header the client surfaces.
var retryHintRe = regexp.MustCompile(`try again in (\d+(?:\.\d+)?)\s*(ms|s)`)

// parseRetrySeconds extracts a retry hint from an error message. Returns nil
// when no hint is present; sub-second hints round up to one second.
func parseRetrySeconds(message string) *int {
	m := retryHintRe.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if m[2] == "ms" {
		v /= 1000
	}
	secs := int(math.Ceil(v))
	if secs < 1 {
		secs = 1
	}
	return &secs
}

// "This model's maximum context length is 128000 tokens. ..."
var contextLimitRe = regexp.MustCompile(`maximum context length is (\d+) tokens`)

// parseContextLimit extracts the advertised context window from an error
// message. Returns 0 when the message carries no limit.
func parseContextLimit(message string) uint32 {
	m := contextLimitRe.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// retryAfterFromHeader reads a whole-second Retry-After response header.
func retryAfterFromHeader(h http.Header) *int {
	if h == nil {
		return nil
	}
	raw := strings.TrimSpace(h.Get("retry-after"))
	if raw == "" {
		return nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return nil
	}
	return &secs
}

// overrideEmbedModel applies a per-call embedding model override.
func overrideEmbedModel(configured string, opts *EmbedOptions) string {
	if opts != nil && opts.Model != "" {
		return opts.Model
	}
	return configured
}

// errEmptyResponse flags a structurally valid but contentless provider reply.
func errEmptyResponse(provider string, op string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     KindGeneric,
		Message:  fmt.Sprintf("empty %s response", op),
	}
}
