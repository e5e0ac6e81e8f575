package editor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// 没有指定 FONT_PATH 时依次查找的韩文字体
var systemFontPaths = []string{
	"/usr/share/fonts/opentype/noto/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/noto-cjk/NotoSansCJK-Bold.ttc",
	"/usr/share/fonts/truetype/nanum/NanumGothicBold.ttf",
	"/System/Library/Fonts/AppleSDGothicNeo.ttc",
	"C:\\Windows\\Fonts\\malgunbd.ttf",
}

// Renderer 字幕渲染器
//
// font.Face 不是并发安全的，Render 串行执行。
type Renderer struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[int]font.Face
}

// NewRenderer 加载字体；fontPath 为空时查找系统韩文字体，都没有时用 Go Bold
func NewRenderer(fontPath string) (*Renderer, error) {
	f, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{font: f, faces: make(map[int]font.Face)}, nil
}

func loadFont(path string) (*opentype.Font, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		return parseFont(data)
	}

	for _, p := range systemFontPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if f, err := parseFont(data); err == nil {
			return f, nil
		}
	}
	return opentype.Parse(gobold.TTF)
}

// parseFont 支持 TTF/OTF 和字体集合（取第一个）
func parseFont(data []byte) (*opentype.Font, error) {
	if f, err := opentype.Parse(data); err == nil {
		return f, nil
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return coll.Font(0)
}

func (r *Renderer) face(size int) (font.Face, error) {
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = f
	return f, nil
}

// Render 整体重绘：原尺寸背景，再画描边和填充的字幕
func (r *Renderer) Render(bg image.Image, st Style) (*image.NRGBA, error) {
	out := imaging.Clone(bg)
	if st.Text == "" {
		return out, nil
	}

	fill, err := parseColor(st.TextColor)
	if err != nil {
		return nil, err
	}
	stroke, err := parseColor(st.StrokeColor)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	face, err := r.face(ClampFontSize(st.FontSize))
	if err != nil {
		return nil, err
	}

	radius := StrokeWidth(st.FontSize) / 2
	pad := int(math.Ceil(radius)) + 1
	mask, origin := glyphMask(face, st.Text, pad)

	b := out.Bounds()
	cx := b.Min.X + b.Dx()/2
	cy := b.Min.Y + CaptionY(b.Dy(), st.FontSize, st.Position)

	// textBaseline=middle：基线在中线下方 (ascent-descent)/2
	m := face.Metrics()
	baseline := cy + (m.Ascent-m.Descent).Round()/2
	left := cx - origin.advance/2 - pad
	top := baseline - origin.ascent - pad
	dst := mask.Bounds().Add(image.Pt(left, top))

	outline := dilate(mask, radius)
	draw.DrawMask(out, dst, image.NewUniform(stroke), image.Point{}, outline, image.Point{}, draw.Over)
	draw.DrawMask(out, dst, image.NewUniform(fill), image.Point{}, mask, image.Point{}, draw.Over)
	return out, nil
}

type maskOrigin struct {
	advance int
	ascent  int
}

// glyphMask 把文字画到四周留 pad 的 alpha 蒙版
func glyphMask(face font.Face, text string, pad int) (*image.Alpha, maskOrigin) {
	m := face.Metrics()
	advance := font.MeasureString(face, text).Ceil()
	ascent := m.Ascent.Ceil()
	height := ascent + m.Descent.Ceil()

	mask := image.NewAlpha(image.Rect(0, 0, advance+2*pad, height+2*pad))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(pad, pad+ascent),
	}
	d.DrawString(text)
	return mask, maskOrigin{advance: advance, ascent: ascent}
}

// dilate 圆盘膨胀，近似 lineJoin=round 的描边
func dilate(src *image.Alpha, radius float64) *image.Alpha {
	b := src.Bounds()
	out := image.NewAlpha(b)
	if radius <= 0 {
		copy(out.Pix, src.Pix)
		return out
	}

	r := int(math.Ceil(radius))
	var offsets []image.Point
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) <= radius*radius+0.5 {
				offsets = append(offsets, image.Pt(dx, dy))
			}
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := src.AlphaAt(x, y).A
			if a == 0 {
				continue
			}
			for _, o := range offsets {
				p := image.Pt(x+o.X, y+o.Y)
				if !p.In(b) {
					continue
				}
				if out.AlphaAt(p.X, p.Y).A < a {
					out.SetAlpha(p.X, p.Y, color.Alpha{A: a})
				}
			}
		}
	}
	return out
}
