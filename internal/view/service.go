package view

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jjalkak/go-meme-service/internal/editor"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	"github.com/jjalkak/go-meme-service/internal/search"
)

// Searcher 搜索编排
type Searcher interface {
	FindMemes(ctx context.Context, sentence string) search.Outcome
	Search(ctx context.Context, kw []string, n int) []search.SearchResult
}

// Service 视图上的用户操作
type Service struct {
	searcher Searcher
	loader   editor.ImageLoader
	renderer *editor.Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService 创建服务
func NewService(s Searcher, l editor.ImageLoader, r *editor.Renderer, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Service{
		searcher: s,
		loader:   l,
		renderer: r,
		metrics:  m,
		logger:   logger.With("component", "view"),
	}
}

// Search 两阶段搜索；被更新的请求取代时返回 ErrStale
func (s *Service) Search(ctx context.Context, v *View, input string) (Snapshot, error) {
	sentence := v.ResolveSentence(input)
	t := v.BeginSearch(sentence)

	out := s.searcher.FindMemes(ctx, sentence)
	if err := v.FinishSearch(t, out); err != nil {
		s.logger.Debug("search result discarded", "view", v.ID(), "sentence", sentence)
		return v.Snapshot(), err
	}

	s.logger.Info("search finished", "view", v.ID(), "results", len(out.Results), "phase", out.Phase)
	return v.Snapshot(), nil
}

// EditKeywords 增删关键词后重新搜索，结果替换当前列表
func (s *Service) EditKeywords(ctx context.Context, v *View, op KeywordOp) (Snapshot, error) {
	t, kw, err := v.BeginKeywordEdit(op)
	if err != nil {
		return v.Snapshot(), err
	}

	results := s.searcher.Search(ctx, kw, search.DefaultCount)
	s.metrics.Search("keyword_edit")
	if err := v.FinishKeywordSearch(t, results); err != nil {
		return v.Snapshot(), err
	}
	return v.Snapshot(), nil
}

// Select 选中结果并打开编辑器
//
// wait 为 false 时在后台加载（受加载器总超时约束），立即返回 loading 状态。
func (s *Service) Select(ctx context.Context, v *View, resultID string, wait bool) (editor.State, error) {
	img, err := v.ResultByID(resultID)
	if err != nil {
		return editor.State{}, err
	}

	session := editor.NewSession(img, v.Sentence(), s.renderer, s.metrics, s.logger)
	t := v.OpenEditor(session)

	load := func(ctx context.Context) {
		if err := session.Load(ctx, s.loader); err != nil && !errors.Is(err, editor.ErrClosed) {
			s.logger.Warn("editor load failed", "view", v.ID(), "image", img.ID, "error", err)
		}
		if !v.IsCurrentSelection(t) {
			session.Close()
		}
	}

	if wait {
		load(ctx)
		return session.State(), nil
	}

	go load(context.WithoutCancel(ctx))
	return session.State(), nil
}

// UpdateEditor 修改字幕样式
func (s *Service) UpdateEditor(v *View, p editor.Patch) (editor.State, error) {
	session, err := v.Editor()
	if err != nil {
		return editor.State{}, err
	}
	return session.Update(p)
}
