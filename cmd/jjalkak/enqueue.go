package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jjalkak/go-meme-service/internal/config"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/queue"
	"github.com/spf13/cobra"
)

// NewEnqueueCmd creates the enqueue command.
func NewEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue [sentence]",
		Short: "Queue a search for the server's Redis consumer",
		Long: `Enqueue pushes a search task onto the Redis task queue consumed by
jjalkak servers started with REDIS_URL. Results are published to ` + queue.DefaultResultQueue + `.`,
		Args: cobra.ArbitraryArgs,
		RunE: runEnqueueCmd,
	}

	cmd.Flags().StringSliceP("keywords", "k", nil, "Search these keywords directly")

	return cmd
}

func runEnqueueCmd(cmd *cobra.Command, args []string) error {
	task := &queue.SearchTask{
		ID:       uuid.NewString(),
		Sentence: strings.TrimSpace(strings.Join(args, " ")),
	}
	task.Keywords, _ = cmd.Flags().GetStringSlice("keywords")
	if task.Sentence == "" && len(task.Keywords) == 0 {
		return fmt.Errorf("a sentence or --keywords is required")
	}

	var files []string
	if envFile, _ := cmd.Flags().GetString("env"); envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is not set")
	}

	q, err := queue.NewRedisQueue(cfg.RedisURL, "jjalkak-cli", applog.New(cmd.ErrOrStderr(), cfg.Verbose))
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer q.Close()

	if err := q.Enqueue(cmd.Context(), task); err != nil {
		return err
	}
	n, err := q.GetQueueLength(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s (%d pending)\n", task.ID, n)
	return nil
}
