// Package app 组装搜索、关键词和编辑器组件，服务端和命令行共用
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jjalkak/go-meme-service/internal/config"
	"github.com/jjalkak/go-meme-service/internal/editor"
	"github.com/jjalkak/go-meme-service/internal/extractor"
	"github.com/jjalkak/go-meme-service/internal/fetcher"
	"github.com/jjalkak/go-meme-service/internal/keywords"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	"github.com/jjalkak/go-meme-service/internal/search"
	"github.com/redis/go-redis/v9"
)

// App 已组装的组件
type App struct {
	Config       *config.Config
	Metrics      *metrics.Metrics
	Fetcher      *fetcher.Fetcher
	Keywords     *keywords.Extractor
	Orchestrator *search.Orchestrator
	Loader       *editor.Loader
	Renderer     *editor.Renderer
	Redis        *redis.Client // 未配置 REDIS_URL 时为 nil
	Logger       *slog.Logger
}

// New 按配置组装组件
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	m := metrics.New()

	f, err := fetcher.New(cfg, fetcher.WithLogger(logger), fetcher.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	a := &App{Config: cfg, Metrics: m, Fetcher: f, Logger: logger}

	var cache search.Cache
	if cfg.CacheTTL > 0 {
		cache = search.NewMemoryCache(cfg.CacheTTL)
	}
	if cfg.RedisURL != "" {
		client, err := connectRedis(cfg.RedisURL)
		if err != nil {
			// 共享缓存不可用时只用本地缓存
			logger.Warn("redis unavailable, using local cache only", "error", err)
		} else {
			a.Redis = client
			if cfg.CacheTTL > 0 {
				cache = search.Tiered{Local: cache, Shared: search.NewRedisCache(client, cfg.CacheTTL, logger)}
			}
		}
	}

	opts := []search.ScraperOption{search.WithScraperLogger(logger)}
	if cache != nil {
		opts = append(opts, search.WithCache(cache))
	}
	scraper := search.NewNaverScraper(f, extractor.New(logger), opts...)

	a.Keywords = keywords.New(cfg, m, logger)
	a.Orchestrator = search.NewOrchestrator(scraper, a.Keywords, m, logger)

	a.Renderer, err = editor.NewRenderer(cfg.FontPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load caption font: %w", err)
	}

	a.Loader = editor.NewLoader(
		fetcher.NewStandardClient(cfg).HTTPClient(),
		editor.WithTimeout(cfg.ImageLoadTimeout),
		editor.WithUserAgent(cfg.UserAgent),
		editor.WithLoaderMetrics(m),
		editor.WithLoaderLogger(logger),
	)

	return a, nil
}

// Close 释放连接
func (a *App) Close() {
	a.Fetcher.Close()
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func connectRedis(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
