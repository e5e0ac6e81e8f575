package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jjalkak/go-meme-service/internal/app"
	"github.com/jjalkak/go-meme-service/internal/config"
	"github.com/jjalkak/go-meme-service/internal/handler"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/queue"
	"github.com/jjalkak/go-meme-service/internal/view"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		applog.New(os.Stderr, false).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := applog.NewJSON(os.Stdout, cfg.Verbose)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// 创建处理器
	store := view.NewStore(cfg.ViewTTL)
	svc := view.NewService(a.Orchestrator, a.Loader, a.Renderer, a.Metrics, logger)
	h := handler.New(cfg, store, svc, a.Metrics, logger)

	// 创建路由
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 启动 Redis 队列消费者（可选）
	consumerDone := make(chan struct{})
	if a.Redis != nil {
		go func() {
			defer close(consumerDone)
			startQueueConsumer(ctx, a)
		}()
	} else {
		close(consumerDone)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	logger.Info("jjal-kak service starting",
		"port", cfg.HTTPPort,
		"max_concurrent", cfg.MaxConcurrent,
		"cycletls", cfg.UseCycleTLS,
		"llm", a.Keywords.UsesLLM(),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	<-consumerDone
	logger.Info("server stopped")
}

// startQueueConsumer 启动队列消费者，与共享缓存复用同一个 Redis 连接
func startQueueConsumer(ctx context.Context, a *app.App) {
	hostname, _ := os.Hostname()
	q := queue.NewWithClient(a.Redis, "jjalkak-"+hostname, a.Logger)

	a.Logger.Info("redis queue consumer started", "tasks", queue.DefaultTaskQueue, "results", queue.DefaultResultQueue)

	handle := queue.SearchHandler(a.Orchestrator)
	q.StartConsumer(ctx, func(ctx context.Context, task *queue.SearchTask) *queue.SearchTaskResult {
		a.Metrics.Search("queue")
		return handle(ctx, task)
	}, a.Config.MaxConcurrent)
}
