package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务配置
type Config struct {
	// HTTP 服务端口
	HTTPPort string
	// 最大并发数
	MaxConcurrent int
	// 请求超时时间（单个代理请求）
	RequestTimeout time.Duration
	// 连接池大小
	MaxIdleConns int
	// 每个主机的最大连接数
	MaxConnsPerHost int
	// User-Agent
	UserAgent string
	// 是否使用 CycleTLS 发送代理请求
	UseCycleTLS bool
	// 代理响应的最小有效长度（字符数）
	MinDocumentLength int
	// 图片加载总超时
	ImageLoadTimeout time.Duration
	// OpenAI 凭证，为空时使用本地关键词提取
	OpenAIAPIKey string
	// OpenAI 兼容接口地址（可选）
	OpenAIBaseURL string
	// 关键词提取模型
	OpenAIModel string
	// Redis URL（用于队列消费和共享缓存）
	RedisURL string
	// 搜索结果缓存时间，0 表示不缓存
	CacheTTL time.Duration
	// 视图会话过期时间
	ViewTTL time.Duration
	// 每个代理主机每秒请求数
	ScrapeRatePerSec float64
	// 字幕字体（TTF/OTF），为空时使用内置字体
	FontPath string
	// CORS 代理覆盖文件（YAML）
	ProxiesFile string
	// 详细日志
	Verbose bool
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		MaxConcurrent:     getEnvInt("MAX_CONCURRENT", 50),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 10000)) * time.Millisecond,
		MaxIdleConns:      getEnvInt("MAX_IDLE_CONNS", 100),
		MaxConnsPerHost:   getEnvInt("MAX_CONNS_PER_HOST", 10),
		UserAgent:         getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		UseCycleTLS:       getEnvBool("USE_CYCLETLS", false),
		MinDocumentLength: getEnvInt("MIN_DOCUMENT_LENGTH", 500),
		ImageLoadTimeout:  time.Duration(getEnvInt("IMAGE_LOAD_TIMEOUT_MS", 15000)) * time.Millisecond,
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		RedisURL:          getEnv("REDIS_URL", ""),
		CacheTTL:          time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		ViewTTL:           time.Duration(getEnvInt("VIEW_TTL_SECONDS", 1800)) * time.Second,
		ScrapeRatePerSec:  getEnvFloat("SCRAPE_RATE_PER_SEC", 2),
		FontPath:          getEnv("FONT_PATH", ""),
		ProxiesFile:       getEnv("PROXIES_FILE", ""),
		Verbose:           getEnvBool("VERBOSE", false),
	}
}

// Load 先加载 env 文件，再读取环境变量
//
// 不传文件时读取当前目录的 .env，不存在则忽略；显式传入的文件必须存在。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RequestTimeout <= 0 || c.ImageLoadTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MinDocumentLength < 0 {
		return ErrInvalidMinLength
	}
	if c.CacheTTL < 0 || c.ViewTTL <= 0 {
		return ErrInvalidTTL
	}
	if c.ScrapeRatePerSec < 0 {
		return ErrInvalidRate
	}
	return nil
}

// HasLLM 是否配置了语言模型凭证
func (c *Config) HasLLM() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
