// Package editor 把字幕合成到选中的图片上并导出 PNG。
package editor

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"

	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	"github.com/jjalkak/go-meme-service/internal/search"
)

// Status 加载状态
type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// State 编辑器对外状态
type State struct {
	Status      Status `json:"status"`
	Style       Style  `json:"style"`
	Tainted     bool   `json:"tainted"`
	Strategy    string `json:"strategy,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	OriginalURL string `json:"originalUrl"`
	SourceLabel string `json:"sourceLabel"`
	SourceURL   string `json:"sourceUrl"`
	Error       string `json:"error,omitempty"`
}

// Session 一次编辑：选图时创建，关闭后销毁
type Session struct {
	mu       sync.Mutex
	image    search.SearchResult
	renderer *Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	status     Status
	style      Style
	tainted    bool
	strategy   string
	loadErr    error
	background *image.NRGBA
	rendered   *image.NRGBA
	loadGen    uint64
	closed     bool
}

// NewSession 创建编辑会话，初始状态为 loading
func NewSession(img search.SearchResult, defaultText string, r *Renderer, m *metrics.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Session{
		image:    img,
		renderer: r,
		metrics:  m,
		logger:   logger.With("component", "editor", "image", img.ID),
		status:   StatusLoading,
		style:    DefaultStyle(defaultText),
	}
}

// Image 正在编辑的图片
func (s *Session) Image() search.SearchResult {
	return s.image
}

// Load 加载图片并完成首次渲染
//
// 重复调用时只有最后一次的结果生效。
func (s *Session) Load(ctx context.Context, l ImageLoader) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadGen++
	gen := s.loadGen
	s.status = StatusLoading
	s.loadErr = nil
	s.mu.Unlock()

	loaded, err := l.Load(ctx, s.image.OriginalURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if gen != s.loadGen {
		return nil
	}

	if err != nil {
		s.status = StatusError
		s.loadErr = err
		s.logger.Warn("image load failed", "error", err, "original_url", s.image.OriginalURL)
		return err
	}

	s.background = loaded.Image
	s.tainted = loaded.Tainted
	s.strategy = loaded.Strategy
	if err := s.redrawLocked(); err != nil {
		s.status = StatusError
		s.loadErr = err
		return err
	}
	s.status = StatusLoaded
	return nil
}

// Update 修改样式；已加载时立即重绘
func (s *Session) Update(p Patch) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return State{}, ErrClosed
	}

	next, err := s.style.Apply(p)
	if err != nil {
		return s.stateLocked(), err
	}
	s.style = next

	if s.status == StatusLoaded {
		if err := s.redrawLocked(); err != nil {
			return s.stateLocked(), err
		}
	}
	return s.stateLocked(), nil
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Rendered 当前画面（预览用）
func (s *Session) Rendered() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.status != StatusLoaded || s.rendered == nil {
		return nil, ErrNotLoaded
	}
	return s.rendered, nil
}

// ExportPNG 写出 PNG
//
// 画布被污染时不读取任何像素，返回 *ExportError 让调用方打开原图地址。
func (s *Session) ExportPNG(w io.Writer, enc Encoder) error {
	img, err := s.exportable("download")
	if err != nil {
		return err
	}

	if err := enc.Encode(w, img); err != nil {
		s.metrics.Export("download", "error")
		return s.wrapSecurity(err)
	}
	s.metrics.Export("download", "ok")
	return nil
}

// CopyToClipboard 把 PNG 写入剪贴板，规则同 ExportPNG
func (s *Session) CopyToClipboard(cb Clipboard, enc Encoder) error {
	img, err := s.exportable("clipboard")
	if err != nil {
		return err
	}

	data, err := encodePNG(enc, img)
	if err != nil {
		s.metrics.Export("clipboard", "error")
		return s.wrapSecurity(err)
	}
	if err := cb.WriteImage(data); err != nil {
		s.metrics.Export("clipboard", "error")
		return s.wrapSecurity(err)
	}
	s.metrics.Export("clipboard", "ok")
	return nil
}

// Close 关闭会话，之后的加载结果被丢弃
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.background = nil
	s.rendered = nil
}

func (s *Session) exportable(kind string) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.status != StatusLoaded || s.rendered == nil {
		return nil, ErrNotLoaded
	}
	if s.tainted {
		s.metrics.Export(kind, "tainted")
		s.logger.Info("export refused, surface tainted", "kind", kind)
		return nil, &ExportError{OriginalURL: s.image.OriginalURL, Err: ErrTainted}
	}
	return s.rendered, nil
}

// wrapSecurity 安全类错误同样改为打开原图
func (s *Session) wrapSecurity(err error) error {
	if errors.Is(err, ErrSecurity) {
		return &ExportError{OriginalURL: s.image.OriginalURL, Err: err}
	}
	return err
}

func (s *Session) redrawLocked() error {
	out, err := s.renderer.Render(s.background, s.style)
	if err != nil {
		return err
	}
	s.rendered = out
	return nil
}

func (s *Session) stateLocked() State {
	st := State{
		Status:      s.status,
		Style:       s.style,
		Tainted:     s.tainted,
		Strategy:    s.strategy,
		OriginalURL: s.image.OriginalURL,
		SourceLabel: s.image.SourceLabel,
		SourceURL:   s.image.SourceURL,
	}
	if s.background != nil {
		st.Width = s.background.Bounds().Dx()
		st.Height = s.background.Bounds().Dy()
	}
	if s.loadErr != nil {
		st.Error = s.loadErr.Error()
	}
	return st
}
