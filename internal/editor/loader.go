package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jjalkak/go-meme-service/internal/imageproxy"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	"golang.org/x/image/webp"
)

const (
	// DefaultLoadTimeout 整个加载链的总超时
	DefaultLoadTimeout = 15 * time.Second
	maxImageSize       = 20 << 20
	requestOrigin      = "https://jjalkak.app"
)

// LoadedImage 加载结果
type LoadedImage struct {
	Image    *image.NRGBA
	Strategy string
	Tainted  bool
}

// ImageLoader 图片加载
type ImageLoader interface {
	Load(ctx context.Context, originalURL string) (*LoadedImage, error)
}

// Loader 按策略顺序逐个尝试加载
type Loader struct {
	client     *http.Client
	strategies []imageproxy.LoadStrategy
	timeout    time.Duration
	userAgent  string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// LoaderOption 加载器选项
type LoaderOption func(*Loader)

// WithStrategies 替换策略链
func WithStrategies(s []imageproxy.LoadStrategy) LoaderOption {
	return func(l *Loader) {
		l.strategies = s
	}
}

// WithTimeout 设置总超时
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithUserAgent 设置 User-Agent
func WithUserAgent(ua string) LoaderOption {
	return func(l *Loader) {
		l.userAgent = ua
	}
}

// WithLoaderMetrics 设置指标
func WithLoaderMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithLoaderLogger 设置日志
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader 创建加载器，client 为 nil 时使用 http.DefaultClient
func NewLoader(client *http.Client, opts ...LoaderOption) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		client:     client,
		strategies: imageproxy.DefaultLoadStrategies(),
		timeout:    DefaultLoadTimeout,
		logger:     applog.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "loader")
	return l
}

// Load 依次尝试各策略，总耗时受 timeout 限制
//
// 只有 CrossOrigin 策略且响应带 Access-Control-Allow-Origin 时结果才是未污染的。
func (l *Loader) Load(ctx context.Context, originalURL string) (*LoadedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var lastErr error
	for _, s := range l.strategies {
		img, err := l.attempt(ctx, s, originalURL)
		if err == nil {
			l.metrics.ImageLoad(s.Name, "ok")
			l.logger.Debug("image loaded", "strategy", s.Name, "cross_origin", s.CrossOrigin,
				"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
			return &LoadedImage{Image: img, Strategy: s.Name, Tainted: !s.CrossOrigin}, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			l.metrics.ImageLoad(s.Name, "timeout")
			return nil, fmt.Errorf("%w after %s: %v", ErrLoadTimeout, l.timeout, err)
		}
		l.metrics.ImageLoad(s.Name, "error")
		l.logger.Debug("load strategy failed", "strategy", s.Name, "error", err)
	}

	if lastErr == nil {
		return nil, ErrLoadFailed
	}
	return nil, fmt.Errorf("%w: %v", ErrLoadFailed, lastErr)
}

func (l *Loader) attempt(ctx context.Context, s imageproxy.LoadStrategy, originalURL string) (*image.NRGBA, error) {
	target := s.Build(originalURL)
	if target == "" {
		return nil, errors.New("strategy produced empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/*;q=0.8,*/*;q=0.5")
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	if s.CrossOrigin {
		req.Header.Set("Origin", requestOrigin)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bad response status: %s", resp.Status)
	}
	if s.CrossOrigin && resp.Header.Get("Access-Control-Allow-Origin") == "" {
		return nil, ErrNotCrossOrigin
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeImage 解码 JPEG/PNG/GIF/WebP 并转为 NRGBA
func DecodeImage(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	var (
		img image.Image
		err error
	)
	if isWebP(data) {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imaging.Clone(img), nil
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
