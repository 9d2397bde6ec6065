// Command execution for CLI commands.
//
// Information Hiding:
// - Gateway and adapter wiring hidden
// - Trace sink setup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avencia/modelgate/config"
	"github.com/avencia/modelgate/llm"
	"github.com/avencia/modelgate/storage"
	"github.com/avencia/modelgate/trace"
)

// Options holds CLI execution options.
type Options struct {
	// Primary overrides the configured primary chat provider.
	Primary string
	// Fallback overrides the configured fallback chat provider.
	Fallback string
	// EmbedProvider overrides the configured embedding provider.
	EmbedProvider string
	// Model overrides the chat model for the primary provider.
	Model   string
	Verbose bool
}

// buildGateway assembles the traced gateway from configuration plus CLI
// overrides. The returned cleanup closes the trace store when one was opened;
// it is never nil.
func buildGateway(opts Options) (*trace.Gateway, func(), error) {
	settings, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	primaryName := settings.Gateway.Primary
	if opts.Primary != "" {
		primaryName = opts.Primary
	}
	fallbackName := settings.Gateway.Fallback
	if opts.Fallback != "" {
		fallbackName = opts.Fallback
	}
	embedName := settings.Gateway.Embedding
	if opts.EmbedProvider != "" {
		embedName = opts.EmbedProvider
	}

	primary, err := buildAdapter(primaryName, opts.Model, settings)
	if err != nil {
		return nil, nil, err
	}

	var fallback llm.Provider
	if fallbackName != "" {
		fallback, err = buildAdapter(fallbackName, "", settings)
		if err != nil {
			return nil, nil, err
		}
	}

	embedder, err := buildAdapter(embedName, "", settings)
	if err != nil {
		return nil, nil, err
	}

	gateway, err := llm.NewGateway(primary, fallback, embedder)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var sink trace.Sink
	if settings.Trace.Enabled {
		store, err := storage.OpenRunStore(settings.Trace.DBPath)
		if err != nil {
			// Tracing is best-effort; a broken store must not block the call.
			fmt.Fprintf(os.Stderr, "Warning: tracing disabled, failed to open run store: %v\n", err)
		} else {
			sink = store
			cleanup = func() { _ = store.Close() }
		}
	}

	return trace.NewGateway(gateway, sink), cleanup, nil
}

// buildAdapter constructs one provider adapter from configuration. A missing
// API key yields an unavailable adapter, not an error.
func buildAdapter(name, modelOverride string, settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(name)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(name)
	if err != nil {
		return nil, err
	}

	model := modelOverride
	if model == "" {
		model, err = config.ModelFor(name)
		if err != nil {
			return nil, err
		}
	}

	cfg := llm.Config{
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   settings.Gateway.MaxTokens,
		Temperature: float32(settings.Gateway.Temperature),
	}
	if embedModel, err := config.EmbedModelFor(name); err == nil {
		cfg.EmbedModel = embedModel
	}

	return llm.NewProvider(providerType, cfg), nil
}

// Chat runs a single chat completion and prints the response.
func Chat(ctx context.Context, prompt, systemPrompt string, opts Options) error {
	gateway, cleanup, err := buildGateway(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	messages := buildMessages(prompt, systemPrompt)

	started := time.Now()
	resp, err := gateway.Chat(ctx, messages, nil, &trace.Metadata{Feature: trace.FeatureGeneral})
	if err != nil {
		return err
	}

	fmt.Println(resp.Content)

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "\nmodel: %s\n", resp.Model)
		fmt.Fprintf(os.Stderr, "finish: %s\n", resp.FinishReason)
		fmt.Fprintf(os.Stderr, "latency: %s\n", time.Since(started).Round(time.Millisecond))
		printUsage(resp.Usage)
	}
	return nil
}

// Stream runs a streamed chat completion, printing chunks as they arrive.
func Stream(ctx context.Context, prompt, systemPrompt string, opts Options) error {
	gateway, cleanup, err := buildGateway(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	messages := buildMessages(prompt, systemPrompt)

	stream, err := gateway.Stream(ctx, messages, nil, &trace.Metadata{Feature: trace.FeatureGeneral})
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		fmt.Print(stream.Current())
	}
	fmt.Println()

	if err := stream.Err(); err != nil {
		return err
	}
	if opts.Verbose {
		printUsage(stream.Usage())
	}
	return nil
}

// Embed embeds a single text and prints a summary of the vector.
func Embed(ctx context.Context, text string, opts Options) error {
	gateway, cleanup, err := buildGateway(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := gateway.Embed(ctx, text, nil, &trace.Metadata{Feature: trace.FeatureGeneral})
	if err != nil {
		return err
	}

	fmt.Printf("model: %s\n", resp.Model)
	fmt.Printf("dimensions: %d\n", len(resp.Embedding))
	fmt.Printf("head: %s\n", formatVectorHead(resp.Embedding, 5))
	if opts.Verbose {
		printUsage(resp.Usage)
	}
	return nil
}

// Health reports adapter availability and overall gateway readiness.
func Health(opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	primaryName := settings.Gateway.Primary
	if opts.Primary != "" {
		primaryName = opts.Primary
	}
	fallbackName := settings.Gateway.Fallback
	if opts.Fallback != "" {
		fallbackName = opts.Fallback
	}
	embedName := settings.Gateway.Embedding
	if opts.EmbedProvider != "" {
		embedName = opts.EmbedProvider
	}

	printAdapterHealth("primary", primaryName, settings)
	if fallbackName != "" {
		printAdapterHealth("fallback", fallbackName, settings)
	} else {
		fmt.Printf("fallback:  (none)\n")
	}
	printAdapterHealth("embedding", embedName, settings)

	gateway, cleanup, err := buildGateway(opts)
	if err != nil {
		fmt.Printf("\ngateway: not ready (%v)\n", err)
		return nil
	}
	defer cleanup()

	if gateway.IsReady() {
		fmt.Printf("\ngateway: ready\n")
	} else {
		fmt.Printf("\ngateway: not ready\n")
	}
	return nil
}

func printAdapterHealth(role, name string, settings config.Settings) {
	adapter, err := buildAdapter(name, "", settings)
	if err != nil {
		fmt.Printf("%-10s %s: error (%v)\n", role+":", name, err)
		return
	}
	status := "unavailable (no API key)"
	if adapter.IsAvailable() {
		status = "available"
	}
	fmt.Printf("%-10s %s: %s\n", role+":", name, status)
}

// Runs lists recent trace records from the run store.
func Runs(ctx context.Context, limit int, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	store, err := storage.OpenRunStore(settings.Trace.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer store.Close()

	records, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, r := range records {
		status := "ok"
		if r.Error != "" {
			status = "error"
		} else if r.CompletedAt == nil {
			status = "pending"
		}
		fmt.Printf("%s  %-7s %-6s %5dms  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Operation,
			status,
			r.LatencyMS,
			r.ID,
		)
		if opts.Verbose {
			fmt.Printf("    input:  %s\n", firstLine(r.Input))
			if r.Output != "" {
				fmt.Printf("    output: %s\n", firstLine(r.Output))
			}
			if r.Error != "" {
				fmt.Printf("    error:  %s\n", r.Error)
			}
			if r.Usage != nil {
				fmt.Printf("    tokens: %d prompt / %d completion / %d total\n",
					r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens)
			}
		}
	}
	return nil
}

// Helper functions

func buildMessages(prompt, systemPrompt string) []llm.ChatMessage {
	var messages []llm.ChatMessage
	if systemPrompt != "" {
		messages = append(messages, llm.SystemMessage(systemPrompt))
	}
	messages = append(messages, llm.UserMessage(prompt))
	return messages
}

func printUsage(usage *llm.TokenUsage) {
	if usage == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "tokens: %d prompt / %d completion / %d total\n",
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

func formatVectorHead(vec []float32, n int) string {
	if len(vec) < n {
		n = len(vec)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%.4f", vec[i])
	}
	return "[" + strings.Join(parts, ", ") + ", ...]"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) > 100 {
		return string(runes[:100]) + "..."
	}
	return s
}
