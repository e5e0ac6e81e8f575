package search

import (
	"context"
	"log/slog"

	"github.com/jjalkak/go-meme-service/internal/keywords"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// KeywordExtractor 关键词提取
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, sentence string) keywords.Set
}

// Outcome FindMemes 的结果
type Outcome struct {
	Results  []SearchResult `json:"results"`
	Keywords keywords.Set   `json:"keywords"`
	Phase    Phase          `json:"phase"`
}

// Orchestrator 搜索编排：两个后缀并发抓取，直接搜索不足时再用关键词
type Orchestrator struct {
	scraper   Scraper
	extractor KeywordExtractor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(s Scraper, e KeywordExtractor, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Orchestrator{
		scraper:   s,
		extractor: e,
		metrics:   m,
		logger:    logger.With("component", "orchestrator"),
	}
}

// Search 用关键词并发搜索「짤」和「밈」，合并去重后截取前 n 个
//
// 任一分支失败只会让该分支为空。关键词为空时不发起请求。
func (o *Orchestrator) Search(ctx context.Context, kw []string, n int) []SearchResult {
	if len(kw) == 0 {
		return []SearchResult{}
	}

	var jjal, meme []SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jjal = o.safeScrape(gctx, kw, n, SuffixJjal)
		return nil
	})
	g.Go(func() error {
		meme = o.safeScrape(gctx, kw, n, SuffixMeme)
		return nil
	})
	_ = g.Wait()

	combined := make([]SearchResult, 0, len(jjal)+len(meme))
	combined = append(combined, jjal...)
	combined = append(combined, meme...)
	unique := Deduplicate(combined)
	final := truncate(unique, n)

	o.logger.Debug("search merged",
		"keywords", kw, "combined", len(combined), "unique", len(unique), "returned", len(final))
	return final
}

// SearchByQuery 把整句当作唯一关键词搜索
func (o *Orchestrator) SearchByQuery(ctx context.Context, sentence string, n int) []SearchResult {
	return o.Search(ctx, []string{sentence}, n)
}

// FindMemes 两阶段搜索
//
// 先用整句直接搜索；少于 MinResults 个时提取关键词再搜索，
// 直接结果在前合并去重，截取 DefaultCount 个。
func (o *Orchestrator) FindMemes(ctx context.Context, sentence string) Outcome {
	direct := o.SearchByQuery(ctx, sentence, DefaultCount)
	o.metrics.Search(string(PhaseDirect))

	if len(direct) >= MinResults {
		o.metrics.ObserveResults(len(direct))
		return Outcome{Results: direct, Keywords: keywords.Set{Korean: []string{}}, Phase: PhaseDirect}
	}

	o.logger.Info("direct search insufficient, extracting keywords", "results", len(direct))
	kw := o.extractor.ExtractKeywords(ctx, sentence)
	if kw.Empty() {
		o.metrics.ObserveResults(len(direct))
		return Outcome{Results: direct, Keywords: keywords.Set{Korean: []string{}}, Phase: PhaseDirect}
	}

	byKeyword := o.Search(ctx, kw.Korean, DefaultCount)
	o.metrics.Search(string(PhaseKeywords))

	merged := make([]SearchResult, 0, len(direct)+len(byKeyword))
	merged = append(merged, direct...)
	merged = append(merged, byKeyword...)
	final := truncate(Deduplicate(merged), DefaultCount)

	o.metrics.ObserveResults(len(final))
	return Outcome{Results: final, Keywords: kw, Phase: PhaseKeywords}
}

// safeScrape 单个分支，panic 也只影响该分支
func (o *Orchestrator) safeScrape(ctx context.Context, kw []string, n int, suffix string) (results []SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("scrape panicked", "suffix", suffix, "panic", r)
			results = []SearchResult{}
		}
	}()
	results = o.scraper.Scrape(ctx, kw, n, suffix)
	if results == nil {
		results = []SearchResult{}
	}
	return results
}
