// Package imageproxy 构建图片缩放代理地址，并定义编辑器加载图片时的回退链
package imageproxy

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL wsrv.nl 图片代理，绕过外站防盗链
const DefaultBaseURL = "https://wsrv.nl/"

// Options 代理参数，零值字段不输出
type Options struct {
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Quality int    `json:"quality,omitempty"` // 1-100
	Format  string `json:"format,omitempty"`  // webp, png, jpg
	Fit     string `json:"fit,omitempty"`     // contain, cover, fill
}

// Builder 代理地址构建器
type Builder struct {
	baseURL string
}

// NewBuilder 创建构建器，baseURL 为空时使用 wsrv.nl
func NewBuilder(baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Builder{baseURL: baseURL}
}

// URL 生成代理地址，参数顺序固定为 url, w, h, q, output, fit
func (b *Builder) URL(originalURL string, opts Options) string {
	if originalURL == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(b.baseURL)
	sb.WriteString("?url=")
	sb.WriteString(url.QueryEscape(originalURL))

	if opts.Width > 0 {
		sb.WriteString("&w=" + strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		sb.WriteString("&h=" + strconv.Itoa(opts.Height))
	}
	if opts.Quality > 0 {
		sb.WriteString("&q=" + strconv.Itoa(opts.Quality))
	}
	if opts.Format != "" {
		sb.WriteString("&output=" + url.QueryEscape(opts.Format))
	}
	if opts.Fit != "" {
		sb.WriteString("&fit=" + url.QueryEscape(opts.Fit))
	}

	return sb.String()
}

// Thumbnail 缩略图地址（正方形裁剪）
func (b *Builder) Thumbnail(originalURL string, size int) string {
	if size <= 0 {
		size = 300
	}
	return b.URL(originalURL, Options{Width: size, Height: size, Fit: "cover", Quality: 80})
}

// FullSize 原尺寸地址
func (b *Builder) FullSize(originalURL string) string {
	return b.URL(originalURL, Options{Quality: 90})
}

var defaultBuilder = NewBuilder(DefaultBaseURL)

// ProxyURL 使用默认构建器生成代理地址
func ProxyURL(originalURL string, opts Options) string {
	return defaultBuilder.URL(originalURL, opts)
}

// ThumbnailURL 使用默认构建器生成缩略图地址
func ThumbnailURL(originalURL string, size int) string {
	return defaultBuilder.Thumbnail(originalURL, size)
}

// FullSizeURL 使用默认构建器生成原尺寸地址
func FullSizeURL(originalURL string) string {
	return defaultBuilder.FullSize(originalURL)
}
