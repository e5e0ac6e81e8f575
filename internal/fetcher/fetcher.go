package fetcher

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/jjalkak/go-meme-service/internal/config"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
)

// 代理请求使用的通用 Accept
const documentAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// FetchResult 抓取结果
type FetchResult struct {
	URL         string
	FinalURL    string
	HTML        string
	StatusCode  int
	ContentType string
	Strategy    string // cycletls, standard
	Duration    time.Duration
	Error       error
}

// HTTPError HTTP 错误
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return "HTTP error " + strconv.Itoa(e.StatusCode)
}

// Fetcher 统一抓取器：底层客户端（CycleTLS / 标准）+ CORS 代理链
type Fetcher struct {
	cycleTLS  *CycleTLSClient
	standard  *StandardClient
	proxies   []ProxyDescriptor
	minLength int
	limiter   *HostLimiter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option 抓取器选项
type Option func(*Fetcher)

// WithProxies 替换代理链
func WithProxies(proxies []ProxyDescriptor) Option {
	return func(f *Fetcher) {
		f.proxies = proxies
	}
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// New 创建抓取器
func New(cfg *config.Config, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		standard:  NewStandardClient(cfg),
		proxies:   DefaultProxies(),
		minLength: cfg.MinDocumentLength,
		limiter:   NewHostLimiter(cfg.ScrapeRatePerSec),
	}

	if cfg.UseCycleTLS {
		f.cycleTLS = NewCycleTLSClient(cfg)
	}

	if cfg.ProxiesFile != "" {
		pf, err := config.LoadProxyFile(cfg.ProxiesFile)
		if err != nil {
			return nil, err
		}
		f.proxies = ProxiesFromConfig(pf.Proxies)
	}

	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = applog.Discard()
	}
	f.logger = f.logger.With("component", "fetcher")

	return f, nil
}

// Fetch 抓取页面（优先 CycleTLS，失败回退到标准客户端）
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) *FetchResult {
	if f.cycleTLS != nil {
		result := f.cycleTLS.FetchWithHeaders(ctx, url, headers)
		if result.Error == nil && result.HTML != "" {
			return result
		}
	}
	return f.standard.FetchWithHeaders(ctx, url, headers)
}

// FetchRemoteDocument 依次通过 CORS 代理抓取目标页面
//
// 代理返回成功状态且解析后的正文超过最小长度才算成功；
// 网络错误、非 2xx、正文过短都会尝试下一个代理。
// 全部失败返回 ("", false)，这不是错误，调用方按空结果处理。
func (f *Fetcher) FetchRemoteDocument(ctx context.Context, target string) (string, bool) {
	f.logger.Debug("fetching remote document", "url", target, "proxies", len(f.proxies))

	for _, p := range f.proxies {
		if ctx.Err() != nil {
			return "", false
		}

		proxyURL := p.BuildURL(target)
		if err := f.limiter.Wait(ctx, proxyURL); err != nil {
			return "", false
		}

		headers := map[string]string{
			"Accept":         documentAccept,
			"x-cors-api-key": "temp_" + randomToken(),
		}

		result := f.Fetch(ctx, proxyURL, headers)
		if result.Error != nil {
			f.logger.Debug("proxy failed", "proxy", p.Name, "error", result.Error, "duration", result.Duration)
			f.metrics.ProxyAttempt(p.Name, "error")
			continue
		}

		text, err := p.ParseResponse(result.HTML)
		if err != nil {
			f.logger.Debug("proxy response unparsable", "proxy", p.Name, "error", err)
			f.metrics.ProxyAttempt(p.Name, "parse_error")
			continue
		}

		if n := utf8.RuneCountInString(text); n <= f.minLength {
			f.logger.Debug("proxy response too short", "proxy", p.Name, "length", n)
			f.metrics.ProxyAttempt(p.Name, "too_short")
			continue
		}

		f.logger.Info("proxy succeeded", "proxy", p.Name, "length", len(text), "duration", result.Duration)
		f.metrics.ProxyAttempt(p.Name, "ok")
		return text, true
	}

	f.logger.Warn("all proxies failed", "url", target)
	return "", false
}

// Proxies 当前代理链（只读）
func (f *Fetcher) Proxies() []ProxyDescriptor {
	out := make([]ProxyDescriptor, len(f.proxies))
	copy(out, f.proxies)
	return out
}

// Close 关闭抓取器
func (f *Fetcher) Close() {
	if f.cycleTLS != nil {
		f.cycleTLS.Close()
	}
}

// randomToken 一次性的 cors.sh 临时 key 后缀
func randomToken() string {
	return strconv.FormatUint(rand.Uint64()|1<<63, 36)[:6]
}
