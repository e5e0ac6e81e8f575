package editor

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded       = errors.New("image is not loaded")
	ErrClosed          = errors.New("editor is closed")
	ErrLoadFailed      = errors.New("all load strategies failed")
	ErrLoadTimeout     = errors.New("image load timed out")
	ErrNotCrossOrigin  = errors.New("response does not permit cross-origin use")
	ErrInvalidColor    = errors.New("invalid color, want #rrggbb")
	ErrInvalidPosition = errors.New("invalid position, want top, center or bottom")
	ErrSecurity        = errors.New("export blocked by security restriction")
	// ErrTainted 画布由非跨域方式加载，像素不可导出
	ErrTainted = fmt.Errorf("%w: surface is tainted", ErrSecurity)
)

// ExportError 导出被拒绝，调用方应改为打开原图地址
type ExportError struct {
	OriginalURL string
	Err         error
}

func (e *ExportError) Error() string {
	return "export refused (open " + e.OriginalURL + " instead): " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
