package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjalkak/go-meme-service/internal/imageproxy"
	"github.com/jjalkak/go-meme-service/internal/search"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, body []byte, acao string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if acao != "" {
			w.Header().Set("Access-Control-Allow-Origin", acao)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fixedStrategy(name string, crossOrigin bool, u string) imageproxy.LoadStrategy {
	return imageproxy.LoadStrategy{Name: name, CrossOrigin: crossOrigin, Build: func(string) string { return u }}
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

var testImage = search.SearchResult{
	ID:          "naver-0-test",
	FullURL:     "https://wsrv.nl/?url=https%3A%2F%2Fimg.example.com%2Fa.jpg",
	OriginalURL: "https://img.example.com/a.jpg",
	SourceLabel: "네이버",
	SourceURL:   "https://search.naver.com/search.naver?where=image&query=a",
}

type countingEncoder struct {
	calls atomic.Int32
}

func (e *countingEncoder) Encode(w io.Writer, img image.Image) error {
	e.calls.Add(1)
	return PNGEncoder{}.Encode(w, img)
}

type fakeClipboard struct {
	data []byte
}

func (c *fakeClipboard) WriteImage(png []byte) error {
	c.data = png
	return nil
}

func TestLoaderFallsBackToTaintedDirect(t *testing.T) {
	t.Parallel()

	body := solidPNG(t, 40, 30, color.White)
	notFound := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(notFound.Close)
	noCORS := imageServer(t, body, "")
	direct := imageServer(t, body, "")

	l := NewLoader(nil, WithStrategies([]imageproxy.LoadStrategy{
		fixedStrategy("proxy-missing", true, notFound.URL),
		fixedStrategy("proxy-no-cors", true, noCORS.URL),
		fixedStrategy("direct", false, direct.URL),
	}))

	loaded, err := l.Load(context.Background(), testImage.OriginalURL)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Strategy != "direct" || !loaded.Tainted {
		t.Errorf("Load() = strategy %q tainted %v, want direct and tainted", loaded.Strategy, loaded.Tainted)
	}
	if b := loaded.Image.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("bounds = %v, want 40x30", b)
	}
}

func TestLoaderCrossOriginUntainted(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, solidPNG(t, 10, 10, color.White), "*")
	l := NewLoader(nil, WithStrategies([]imageproxy.LoadStrategy{
		fixedStrategy("wsrv", true, srv.URL),
		fixedStrategy("direct", false, srv.URL),
	}))

	loaded, err := l.Load(context.Background(), testImage.OriginalURL)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Strategy != "wsrv" || loaded.Tainted {
		t.Errorf("Load() = strategy %q tainted %v, want wsrv untainted", loaded.Strategy, loaded.Tainted)
	}
}

func TestLoaderAllFail(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	t.Cleanup(bad.Close)

	l := NewLoader(nil, WithStrategies([]imageproxy.LoadStrategy{fixedStrategy("direct", false, bad.URL)}))
	if _, err := l.Load(context.Background(), testImage.OriginalURL); !errors.Is(err, ErrLoadFailed) {
		t.Errorf("Load() error = %v, want ErrLoadFailed", err)
	}
}

func TestSessionLoadTimeout(t *testing.T) {
	t.Parallel()

	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(hang.Close)

	var later atomic.Int32
	after := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		later.Add(1)
	}))
	t.Cleanup(after.Close)

	l := NewLoader(nil,
		WithTimeout(100*time.Millisecond),
		WithStrategies([]imageproxy.LoadStrategy{
			fixedStrategy("slow", true, hang.URL),
			fixedStrategy("direct", false, after.URL),
		}),
	)

	s := NewSession(testImage, "월요일 출근하기 싫어", testRenderer(t), nil, nil)
	start := time.Now()
	err := s.Load(context.Background(), l)
	if !errors.Is(err, ErrLoadTimeout) {
		t.Fatalf("Load() error = %v, want ErrLoadTimeout", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Load() took %v, timeout not enforced", time.Since(start))
	}
	if later.Load() != 0 {
		t.Errorf("strategy after timeout attempted %d times", later.Load())
	}

	st := s.State()
	if st.Status != StatusError {
		t.Errorf("Status = %q, want error", st.Status)
	}
	if st.OriginalURL != testImage.OriginalURL || st.Error == "" {
		t.Errorf("error state = %+v, want original url and message", st)
	}
	if _, err := s.Rendered(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Rendered() error = %v, want ErrNotLoaded", err)
	}
}

func TestTaintedExportNeverEncodes(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, solidPNG(t, 20, 20, color.White), "")
	l := NewLoader(nil, WithStrategies([]imageproxy.LoadStrategy{fixedStrategy("direct", false, srv.URL)}))

	s := NewSession(testImage, "배고파", testRenderer(t), nil, nil)
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !s.State().Tainted {
		t.Fatal("State().Tainted = false, want true")
	}

	enc := &countingEncoder{}
	var buf bytes.Buffer
	err := s.ExportPNG(&buf, enc)

	var xe *ExportError
	if !errors.As(err, &xe) {
		t.Fatalf("ExportPNG() error = %v, want *ExportError", err)
	}
	if xe.OriginalURL != testImage.OriginalURL {
		t.Errorf("OriginalURL = %q, want %q", xe.OriginalURL, testImage.OriginalURL)
	}
	if !errors.Is(err, ErrTainted) || !errors.Is(err, ErrSecurity) {
		t.Errorf("error %v should match ErrTainted and ErrSecurity", err)
	}

	cb := &fakeClipboard{}
	if err := s.CopyToClipboard(cb, enc); !errors.As(err, &xe) {
		t.Errorf("CopyToClipboard() error = %v, want *ExportError", err)
	}

	if enc.calls.Load() != 0 || buf.Len() != 0 || cb.data != nil {
		t.Errorf("tainted surface was encoded: calls=%d bytes=%d clipboard=%d", enc.calls.Load(), buf.Len(), len(cb.data))
	}
}

func TestUntaintedExport(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, solidPNG(t, 64, 48, color.White), "*")
	l := NewLoader(nil, WithStrategies([]imageproxy.LoadStrategy{fixedStrategy("wsrv", true, srv.URL)}))

	s := NewSession(testImage, "짤", testRenderer(t), nil, nil)
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var buf bytes.Buffer
	if err := s.ExportPNG(&buf, PNGEncoder{}); err != nil {
		t.Fatalf("ExportPNG() error = %v", err)
	}
	out, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("exported bytes are not png: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("exported bounds = %v, want native 64x48", b)
	}

	cb := &fakeClipboard{}
	if err := s.CopyToClipboard(cb, PNGEncoder{}); err != nil {
		t.Fatalf("CopyToClipboard() error = %v", err)
	}
	if !bytes.HasPrefix(cb.data, []byte("\x89PNG")) {
		t.Error("clipboard data is not png")
	}
}

type securityEncoder struct{}

func (securityEncoder) Encode(io.Writer, image.Image) error {
	return ErrSecurity
}

func TestSecurityEncodeErrorRedirects(t *testing.T) {
	t.Parallel()

	srv := imageServer(t, solidPNG(t, 8, 8, color.White), "*")
	l := NewLoader(nil, WithStrategies([]imageproxy.LoadStrategy{fixedStrategy("wsrv", true, srv.URL)}))
	s := NewSession(testImage, "", testRenderer(t), nil, nil)
	if err := s.Load(context.Background(), l); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var xe *ExportError
	if err := s.ExportPNG(io.Discard, securityEncoder{}); !errors.As(err, &xe) {
		t.Errorf("ExportPNG() error = %v, want *ExportError", err)
	}
}

type gatedLoader struct {
	release chan struct{}
	img     *LoadedImage
	err     error
}

func (g *gatedLoader) Load(ctx context.Context, _ string) (*LoadedImage, error) {
	if g.release != nil {
		<-g.release
	}
	return g.img, g.err
}

func TestSessionStaleLoadIgnored(t *testing.T) {
	t.Parallel()

	s := NewSession(testImage, "", testRenderer(t), nil, nil)

	slow := &gatedLoader{release: make(chan struct{}), err: ErrLoadFailed}
	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), slow) }()

	// 等待第一次加载进入 loader
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		gen := s.loadGen
		s.mu.Unlock()
		if gen == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	fast := &gatedLoader{img: &LoadedImage{Image: image.NewNRGBA(image.Rect(0, 0, 5, 5)), Strategy: "wsrv"}}
	if err := s.Load(context.Background(), fast); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}

	close(slow.release)
	if err := <-done; err != nil {
		t.Errorf("stale Load() returned %v, want nil", err)
	}
	if st := s.State(); st.Status != StatusLoaded || st.Strategy != "wsrv" {
		t.Errorf("State() = %+v, stale failure overwrote newer load", st)
	}
}

func TestSessionClosed(t *testing.T) {
	t.Parallel()

	s := NewSession(testImage, "", testRenderer(t), nil, nil)
	s.Close()
	if err := s.Load(context.Background(), &gatedLoader{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Load() after Close = %v, want ErrClosed", err)
	}
	if _, err := s.Update(Patch{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Update() after Close = %v, want ErrClosed", err)
	}
}

func TestRenderCaption(t *testing.T) {
	t.Parallel()

	const w, h = 240, 160
	bg := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range bg.Pix {
		bg.Pix[i] = 0xff
	}

	r := testRenderer(t)

	plain, err := r.Render(bg, Style{FontSize: 32, TextColor: "#ffffff", StrokeColor: "#000000", Position: PositionBottom})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Equal(plain.Pix, bg.Pix) {
		t.Error("empty text should leave the background untouched")
	}

	out, err := r.Render(bg, Style{Text: "HI", FontSize: 32, TextColor: "#ff0000", StrokeColor: "#000000", Position: PositionBottom})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if b := out.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("bounds = %v, want %dx%d", b, w, h)
	}

	changedIn := func(y0, y1 int) int {
		n := 0
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				if out.NRGBAAt(x, y) != bg.NRGBAAt(x, y) {
					n++
				}
			}
		}
		return n
	}

	mid := CaptionY(h, 32, PositionBottom)
	if n := changedIn(mid-32, mid+32); n == 0 {
		t.Error("no pixels changed around the caption line")
	}
	if n := changedIn(0, 30); n != 0 {
		t.Errorf("%d pixels changed near the top for a bottom caption", n)
	}
	if bg.NRGBAAt(0, 0) != (color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Error("Render() mutated its input")
	}
}

func TestCaptionY(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pos  Position
		want int
	}{
		{PositionTop, 52},
		{PositionCenter, 200},
		{PositionBottom, 348},
	}
	for _, tt := range tests {
		if got := CaptionY(400, 32, tt.pos); got != tt.want {
			t.Errorf("CaptionY(400, 32, %s) = %d, want %d", tt.pos, got, tt.want)
		}
	}
	if got := StrokeWidth(32); got != 4 {
		t.Errorf("StrokeWidth(32) = %v, want 4", got)
	}
}

func TestStyleApply(t *testing.T) {
	t.Parallel()

	base := DefaultStyle("<b>커피</b> 없이 못 살아")
	if base.Text != "커피 없이 못 살아" || base.FontSize != 32 || base.Position != PositionBottom {
		t.Fatalf("DefaultStyle() = %+v", base)
	}
	if base.TextColor != "#ffffff" || base.StrokeColor != "#000000" {
		t.Fatalf("DefaultStyle() colors = %s %s", base.TextColor, base.StrokeColor)
	}

	big, small := 100, 3
	if got, _ := base.Apply(Patch{FontSize: &big}); got.FontSize != MaxFontSize {
		t.Errorf("font size clamped to %d, want %d", got.FontSize, MaxFontSize)
	}
	if got, _ := base.Apply(Patch{FontSize: &small}); got.FontSize != MinFontSize {
		t.Errorf("font size clamped to %d, want %d", got.FontSize, MinFontSize)
	}

	short := "#F00"
	got, err := base.Apply(Patch{TextColor: &short})
	if err != nil || got.TextColor != "#ff0000" {
		t.Errorf("Apply(#F00) = %q, %v", got.TextColor, err)
	}

	bad := "red"
	got, err = base.Apply(Patch{TextColor: &bad})
	if !errors.Is(err, ErrInvalidColor) || got != base {
		t.Errorf("Apply(red) = %+v, %v; want unchanged and ErrInvalidColor", got, err)
	}

	side := "left"
	if _, err := base.Apply(Patch{Position: &side}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Apply(left) error = %v", err)
	}
	top := "TOP"
	if got, _ := base.Apply(Patch{Position: &top}); got.Position != PositionTop {
		t.Errorf("Apply(TOP) position = %q", got.Position)
	}
}
