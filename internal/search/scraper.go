package search

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jjalkak/go-meme-service/internal/fetcher"
	"github.com/jjalkak/go-meme-service/internal/imageproxy"
	applog "github.com/jjalkak/go-meme-service/internal/log"
)

const (
	naverSearchURL = "https://search.naver.com/search.naver?where=image&query="
	naverLabel     = "네이버"
)

// DocumentFetcher 抓取远程页面，失败返回 false
type DocumentFetcher interface {
	FetchRemoteDocument(ctx context.Context, target string) (string, bool)
}

// URLExtractor 从页面提取图片地址
type URLExtractor interface {
	ExtractImageURLs(html string) []string
}

// Scraper 单次关键词+后缀抓取
type Scraper interface {
	Scrape(ctx context.Context, keywords []string, count int, suffix string) []SearchResult
}

// NaverScraper Naver 图片搜索抓取器
type NaverScraper struct {
	fetcher   DocumentFetcher
	extractor URLExtractor
	proxy     *imageproxy.Builder
	cache     Cache
	shuffle   func(n int, swap func(i, j int))
	logger    *slog.Logger
}

// ScraperOption 抓取器选项
type ScraperOption func(*NaverScraper)

// WithCache 缓存提取结果（打乱之前的地址列表）
func WithCache(c Cache) ScraperOption {
	return func(s *NaverScraper) {
		s.cache = c
	}
}

// WithShuffle 替换随机打乱函数
func WithShuffle(shuffle func(n int, swap func(i, j int))) ScraperOption {
	return func(s *NaverScraper) {
		s.shuffle = shuffle
	}
}

// WithImageProxy 替换图片代理
func WithImageProxy(b *imageproxy.Builder) ScraperOption {
	return func(s *NaverScraper) {
		s.proxy = b
	}
}

// WithScraperLogger 设置日志
func WithScraperLogger(logger *slog.Logger) ScraperOption {
	return func(s *NaverScraper) {
		s.logger = logger
	}
}

// NewNaverScraper 创建抓取器
func NewNaverScraper(f DocumentFetcher, e URLExtractor, opts ...ScraperOption) *NaverScraper {
	s := &NaverScraper{
		fetcher:   f,
		extractor: e,
		proxy:     imageproxy.NewBuilder(imageproxy.DefaultBaseURL),
		shuffle:   rand.Shuffle,
		logger:    applog.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scraper")
	return s
}

// Query 搜索词：首个关键词（没有时用全部关键词）加后缀
func Query(keywords []string, suffix string) string {
	head := ""
	if len(keywords) > 0 {
		head = keywords[0]
	}
	if head == "" {
		head = strings.Join(keywords, " ")
	}
	return head + " " + suffix
}

// SearchURL Naver 图片搜索地址
func SearchURL(query string) string {
	return naverSearchURL + fetcher.EncodeURIComponent(query)
}

// Scrape 抓取一页结果，任何失败都返回空列表
func (s *NaverScraper) Scrape(ctx context.Context, keywords []string, count int, suffix string) []SearchResult {
	query := Query(keywords, suffix)
	searchURL := SearchURL(query)

	urls := s.imageURLs(ctx, searchURL)
	if len(urls) == 0 {
		s.logger.Info("no images found", "query", query)
		return []SearchResult{}
	}

	shuffled := make([]string, len(urls))
	copy(shuffled, urls)
	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if count >= 0 && len(shuffled) > count {
		shuffled = shuffled[:count]
	}

	now := time.Now().UnixMilli()
	results := make([]SearchResult, 0, len(shuffled))
	for idx, u := range shuffled {
		results = append(results, SearchResult{
			ID:           fmt.Sprintf("naver-%d-%d-%s", idx, now, uuid.NewString()[:8]),
			ThumbnailURL: s.proxy.URL(u, imageproxy.Options{Width: 300, Height: 300}),
			FullURL:      s.proxy.URL(u, imageproxy.Options{}),
			OriginalURL:  u,
			SourceLabel:  naverLabel,
			SourceURL:    searchURL,
		})
	}

	s.logger.Info("scrape completed", "query", query, "found", len(urls), "returned", len(results))
	return results
}

func (s *NaverScraper) imageURLs(ctx context.Context, searchURL string) []string {
	if s.cache != nil {
		if urls, ok := s.cache.Get(ctx, searchURL); ok {
			s.logger.Debug("cache hit", "url", searchURL)
			return urls
		}
	}

	html, ok := s.fetcher.FetchRemoteDocument(ctx, searchURL)
	if !ok {
		return nil
	}

	urls := s.extractor.ExtractImageURLs(html)
	if len(urls) > 0 && s.cache != nil {
		s.cache.Set(ctx, searchURL, urls)
	}
	return urls
}
