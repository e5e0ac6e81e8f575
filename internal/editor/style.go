package editor

import (
	"image/color"
	"strings"

	"github.com/jjalkak/go-meme-service/internal/extractor"
	"github.com/lucasb-eyer/go-colorful"
)

// Position 字幕位置
type Position string

const (
	PositionTop    Position = "top"
	PositionCenter Position = "center"
	PositionBottom Position = "bottom"
)

const (
	DefaultFontSize    = 32
	MinFontSize        = 16
	MaxFontSize        = 72
	DefaultTextColor   = "#ffffff"
	DefaultStrokeColor = "#000000"
	// DefaultFilename 下载文件名
	DefaultFilename = "jjal-kak.png"

	captionPadding = 20
)

// Style 字幕样式
type Style struct {
	Text        string   `json:"text"`
	FontSize    int      `json:"fontSize"`
	TextColor   string   `json:"textColor"`
	StrokeColor string   `json:"strokeColor"`
	Position    Position `json:"position"`
}

// DefaultStyle 默认样式，文字为搜索的句子
func DefaultStyle(text string) Style {
	return Style{
		Text:        extractor.SanitizeCaption(text),
		FontSize:    DefaultFontSize,
		TextColor:   DefaultTextColor,
		StrokeColor: DefaultStrokeColor,
		Position:    PositionBottom,
	}
}

// Patch 局部更新，nil 表示不变
type Patch struct {
	Text        *string `json:"text,omitempty"`
	FontSize    *int    `json:"fontSize,omitempty"`
	TextColor   *string `json:"textColor,omitempty"`
	StrokeColor *string `json:"strokeColor,omitempty"`
	Position    *string `json:"position,omitempty"`
}

// Apply 返回应用后的新样式，任何字段非法时原样式不变
func (s Style) Apply(p Patch) (Style, error) {
	out := s
	if p.Text != nil {
		out.Text = extractor.SanitizeCaption(*p.Text)
	}
	if p.FontSize != nil {
		out.FontSize = ClampFontSize(*p.FontSize)
	}
	if p.TextColor != nil {
		c, err := normalizeHex(*p.TextColor)
		if err != nil {
			return s, err
		}
		out.TextColor = c
	}
	if p.StrokeColor != nil {
		c, err := normalizeHex(*p.StrokeColor)
		if err != nil {
			return s, err
		}
		out.StrokeColor = c
	}
	if p.Position != nil {
		pos, err := ParsePosition(*p.Position)
		if err != nil {
			return s, err
		}
		out.Position = pos
	}
	return out, nil
}

// ClampFontSize 限制在 16–72
func ClampFontSize(n int) int {
	if n < MinFontSize {
		return MinFontSize
	}
	if n > MaxFontSize {
		return MaxFontSize
	}
	return n
}

// ParsePosition 解析位置
func ParsePosition(s string) (Position, error) {
	switch Position(strings.ToLower(strings.TrimSpace(s))) {
	case PositionTop:
		return PositionTop, nil
	case PositionCenter:
		return PositionCenter, nil
	case PositionBottom:
		return PositionBottom, nil
	}
	return "", ErrInvalidPosition
}

// CaptionY 字幕中线的纵坐标
func CaptionY(height, fontSize int, pos Position) int {
	switch pos {
	case PositionTop:
		return fontSize + captionPadding
	case PositionCenter:
		return height / 2
	default:
		return height - fontSize - captionPadding
	}
}

// StrokeWidth 描边宽度
func StrokeWidth(fontSize int) float64 {
	return float64(fontSize) / 8
}

func normalizeHex(s string) (string, error) {
	c, err := colorful.Hex(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return "", ErrInvalidColor
	}
	return c.Hex(), nil
}

func parseColor(s string) (color.NRGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, ErrInvalidColor
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
