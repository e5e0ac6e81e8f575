package editor

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"
	"golang.design/x/clipboard"
)

// Encoder 把画布编码成文件
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// PNGEncoder PNG 编码
type PNGEncoder struct{}

// Encode 编码为 PNG
func (PNGEncoder) Encode(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// Clipboard 图片剪贴板
type Clipboard interface {
	WriteImage(png []byte) error
}

// SystemClipboard 系统剪贴板
type SystemClipboard struct {
	once sync.Once
	err  error
}

// WriteImage 写入 PNG
func (c *SystemClipboard) WriteImage(png []byte) error {
	c.once.Do(func() {
		c.err = clipboard.Init()
	})
	if c.err != nil {
		return fmt.Errorf("clipboard unavailable: %w", c.err)
	}
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func encodePNG(enc Encoder, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
