package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache 搜索地址 -> 提取出的图片地址
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key string, urls []string)
}

// MemoryCache 进程内 TTL 缓存
type MemoryCache struct {
	c *cache.Cache
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(ttl, 2*ttl)}
}

// Get 读取
func (m *MemoryCache) Get(_ context.Context, key string) ([]string, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	urls, ok := v.([]string)
	return urls, ok
}

// Set 写入
func (m *MemoryCache) Set(_ context.Context, key string, urls []string) {
	stored := make([]string, len(urls))
	copy(stored, urls)
	m.c.SetDefault(key, stored)
}

// RedisCache 多实例共享的缓存
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "jjalkak:cache:",
		logger: logger,
	}
}

// Get 读取，Redis 不可用时视为未命中
func (r *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && r.logger != nil {
			r.logger.Warn("redis cache get failed", "error", err)
		}
		return nil, false
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil, false
	}
	return urls, true
}

// Set 写入
func (r *RedisCache) Set(ctx context.Context, key string, urls []string) {
	data, err := json.Marshal(urls)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil && r.logger != nil {
		r.logger.Warn("redis cache set failed", "error", err)
	}
}

// Tiered 先查本地再查共享缓存，共享命中时回填本地
type Tiered struct {
	Local  Cache
	Shared Cache
}

// Get 读取
func (t Tiered) Get(ctx context.Context, key string) ([]string, bool) {
	if urls, ok := t.Local.Get(ctx, key); ok {
		return urls, true
	}
	urls, ok := t.Shared.Get(ctx, key)
	if ok {
		t.Local.Set(ctx, key, urls)
	}
	return urls, ok
}

// Set 写入两级
func (t Tiered) Set(ctx context.Context, key string, urls []string) {
	t.Local.Set(ctx, key, urls)
	t.Shared.Set(ctx, key, urls)
}
