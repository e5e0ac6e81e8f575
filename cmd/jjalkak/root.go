package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjalkak/go-meme-service/internal/app"
	"github.com/jjalkak/go-meme-service/internal/config"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for jjalkak.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jjalkak",
		Short: "Find Korean meme images for a sentence and caption them",
		Long: `jjalkak searches Naver images for memes (짤) matching a Korean sentence.

When the sentence itself finds too few images, keywords are extracted
(by an OpenAI compatible model when OPENAI_API_KEY is set, locally otherwise)
and searched again. A picked image can be captioned and saved as PNG.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("env", "", "Load environment from this file instead of .env")

	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewKeywordsCmd())
	cmd.AddCommand(NewMakeCmd())
	cmd.AddCommand(NewEnqueueCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupApp loads configuration and assembles the service components.
func setupApp(cmd *cobra.Command) (*app.App, error) {
	var files []string
	if envFile, _ := cmd.Flags().GetString("env"); envFile != "" {
		files = append(files, envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}

	logger := applog.New(cmd.ErrOrStderr(), cfg.Verbose)
	return app.New(cfg, logger)
}
