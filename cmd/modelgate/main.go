// Package main provides the modelgate CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/avencia/modelgate/cli"
)

var (
	// Global flags
	primary       string
	fallback      string
	embedProvider string
	verbose       bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "modelgate",
		Short: "Multi-provider LLM gateway with failover",
		Long: `A gateway over multiple LLM providers behind one interface.

Chat and stream calls go to the primary provider with single-hop failover
to an optional fallback. Embedding calls go to a fixed embedding provider.
Runs can be recorded to a local SQLite trace store (TRACE_ENABLED=true).`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&primary, "provider", "p", "", "Primary chat provider (openai, anthropic, gemini, deepseek)")
	rootCmd.PersistentFlags().StringVar(&fallback, "fallback", "", "Fallback chat provider")
	rootCmd.PersistentFlags().StringVar(&embedProvider, "embed-provider", "", "Embedding provider (openai, gemini)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(streamCmd())
	rootCmd.AddCommand(embedCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options(model string) cli.Options {
	return cli.Options{
		Primary:       primary,
		Fallback:      fallback,
		EmbedProvider: embedProvider,
		Model:         model,
		Verbose:       verbose,
	}
}

func chatCmd() *cobra.Command {
	var systemPrompt string
	var model string

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Run a single chat completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), args[0], systemPrompt, options(model))
		},
	}

	cmd.Flags().StringVarP(&systemPrompt, "system", "s", "", "System prompt")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override for the primary provider")

	return cmd
}

func streamCmd() *cobra.Command {
	var systemPrompt string
	var model string

	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Run a streamed chat completion, printing chunks as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Stream(context.Background(), args[0], systemPrompt, options(model))
		},
	}

	cmd.Flags().StringVarP(&systemPrompt, "system", "s", "", "System prompt")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override for the primary provider")

	return cmd
}

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed [text]",
		Short: "Embed a text and print a summary of the vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Embed(context.Background(), args[0], options(""))
		},
	}

	return cmd
}

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report adapter availability and gateway readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Health(options(""))
		},
	}

	return cmd
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent trace records from the run store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Runs(context.Background(), limit, options(""))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")

	return cmd
}
