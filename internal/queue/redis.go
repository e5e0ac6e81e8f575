package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/search"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTaskQueue   = "jjalkak:search_tasks"
	DefaultResultQueue = "jjalkak:search_results"
)

// SearchTask 批量搜索任务
type SearchTask struct {
	ID        string    `json:"id"`
	Sentence  string    `json:"sentence"`
	Keywords  []string  `json:"keywords,omitempty"` // 非空时跳过两阶段，直接按关键词搜索
	Count     int       `json:"count,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchTaskResult 任务结果
type SearchTaskResult struct {
	TaskID    string                `json:"taskId"`
	Sentence  string                `json:"sentence"`
	Success   bool                  `json:"success"`
	Results   []search.SearchResult `json:"results"`
	Keywords  []string              `json:"keywords"`
	Phase     search.Phase          `json:"phase,omitempty"`
	SiteLinks []search.SiteLink     `json:"siteLinks,omitempty"`
	Duration  int64                 `json:"duration"`
	Error     string                `json:"error,omitempty"`
}

// RedisQueue Redis 队列消费者
type RedisQueue struct {
	client       *redis.Client
	taskQueue    string
	resultQueue  string
	consumerName string
	logger       *slog.Logger
}

// NewRedisQueue 创建 Redis 队列
func NewRedisQueue(redisURL, consumerName string, logger *slog.Logger) (*RedisQueue, error) {
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

	return NewWithClient(client, consumerName, logger), nil
}

// NewWithClient 使用已有连接
func NewWithClient(client *redis.Client, consumerName string, logger *slog.Logger) *RedisQueue {
	if logger == nil {
		logger = applog.Discard()
	}
	return &RedisQueue{
		client:       client,
		taskQueue:    DefaultTaskQueue,
		resultQueue:  DefaultResultQueue,
		consumerName: consumerName,
		logger:       logger.With("component", "queue", "consumer", consumerName),
	}
}

// Client 底层连接（共享缓存复用）
func (q *RedisQueue) Client() *redis.Client {
	return q.client
}

// ConsumeTask 消费任务（阻塞式），超时返回 nil, nil
func (q *RedisQueue) ConsumeTask(ctx context.Context) (*SearchTask, error) {
	result, err := q.client.BLPop(ctx, 30*time.Second, q.taskQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	if len(result) < 2 {
		return nil, nil
	}

	var task SearchTask
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// PublishResult 发布结果
func (q *RedisQueue) PublishResult(ctx context.Context, result *SearchTaskResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return q.client.RPush(ctx, q.resultQueue, data).Err()
}

// Enqueue 投递任务
func (q *RedisQueue) Enqueue(ctx context.Context, task *SearchTask) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.taskQueue, data).Err()
}

// Close 关闭连接
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// TaskHandler 任务处理函数
type TaskHandler func(ctx context.Context, task *SearchTask) *SearchTaskResult

// StartConsumer 启动消费者，ctx 取消后等待进行中的任务结束再返回
func (q *RedisQueue) StartConsumer(ctx context.Context, handler TaskHandler, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	defer func() {
		for i := 0; i < concurrency; i++ {
			sem <- struct{}{}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("queue consumer stopped")
			return
		default:
		}

		task, err := q.ConsumeTask(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			q.logger.Warn("error consuming task", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if task == nil {
			continue
		}

		sem <- struct{}{}

		go func(t *SearchTask) {
			defer func() { <-sem }()

			result := handler(ctx, t)
			if err := q.PublishResult(context.WithoutCancel(ctx), result); err != nil {
				q.logger.Warn("error publishing result", "task", t.ID, "error", err)
			}
		}(task)
	}
}

// GetQueueLength 获取队列长度
func (q *RedisQueue) GetQueueLength(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.taskQueue).Result()
}
