package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jjalkak/go-meme-service/internal/config"
	"github.com/jjalkak/go-meme-service/internal/editor"
	"github.com/jjalkak/go-meme-service/internal/imageproxy"
	applog "github.com/jjalkak/go-meme-service/internal/log"
	"github.com/jjalkak/go-meme-service/internal/metrics"
	"github.com/jjalkak/go-meme-service/internal/view"
)

// 请求体上限
const maxBodyBytes = 64 << 10

// Handler HTTP 处理器
type Handler struct {
	views     *view.Store
	service   *view.Service
	proxy     *imageproxy.Builder
	metrics   *metrics.Metrics
	semaphore chan struct{}
	config    *config.Config
	logger    *slog.Logger
}

// SearchRequest 搜索请求
type SearchRequest struct {
	Sentence string `json:"sentence"`
}

// SelectRequest 选图请求
type SelectRequest struct {
	ResultID string `json:"resultId"`
	Wait     bool   `json:"wait,omitempty"`
}

// ProxyURLResponse 图片代理地址
type ProxyURLResponse struct {
	URL string `json:"url"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status          string `json:"status"`
	Concurrency     int    `json:"concurrency"`
	Available       int    `json:"available"`
	CycleTLSEnabled bool   `json:"cycleTlsEnabled"`
	LLMEnabled      bool   `json:"llmEnabled"`
	Views           int    `json:"views"`
}

// New 创建处理器
func New(cfg *config.Config, store *view.Store, svc *view.Service, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Handler{
		views:     store,
		service:   svc,
		proxy:     imageproxy.NewBuilder(imageproxy.DefaultBaseURL),
		metrics:   m,
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
		config:    cfg,
		logger:    logger.With("component", "http"),
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /imgproxy-url", h.handleProxyURL)
	mux.Handle("GET /metrics", h.metrics.Handler())

	mux.HandleFunc("POST /views", h.handleCreateView)
	mux.HandleFunc("GET /views/{id}", h.handleGetView)
	mux.HandleFunc("DELETE /views/{id}", h.handleDeleteView)
	mux.HandleFunc("POST /views/{id}/search", h.handleSearch)
	mux.HandleFunc("POST /views/{id}/keywords", h.handleKeywords)
	mux.HandleFunc("POST /views/{id}/reset", h.handleReset)
	mux.HandleFunc("POST /views/{id}/select", h.handleSelect)

	mux.HandleFunc("GET /views/{id}/editor", h.handleGetEditor)
	mux.HandleFunc("PATCH /views/{id}/editor", h.handlePatchEditor)
	mux.HandleFunc("DELETE /views/{id}/editor", h.handleCloseEditor)
	mux.HandleFunc("GET /views/{id}/editor/download", h.handleDownload)
}

// handleHealth 健康检查
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	available := h.config.MaxConcurrent - len(h.semaphore)
	resp := HealthResponse{
		Status:          "ok",
		Concurrency:     h.config.MaxConcurrent,
		Available:       available,
		CycleTLSEnabled: h.config.UseCycleTLS,
		LLMEnabled:      h.config.HasLLM(),
		Views:           h.views.Count(),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleProxyURL 生成 wsrv.nl 代理地址
func (h *Handler) handleProxyURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	original := q.Get("url")
	if original == "" {
		h.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	opts := imageproxy.Options{
		Width:   atoi(q.Get("w")),
		Height:  atoi(q.Get("h")),
		Quality: atoi(q.Get("q")),
		Format:  q.Get("output"),
		Fit:     q.Get("fit"),
	}
	h.writeJSON(w, http.StatusOK, ProxyURLResponse{URL: h.proxy.URL(original, opts)})
}

func (h *Handler) handleCreateView(w http.ResponseWriter, r *http.Request) {
	v := h.views.Create()
	h.writeJSON(w, http.StatusCreated, v.Snapshot())
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, v.Snapshot())
}

func (h *Handler) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.view(w, r); !ok {
		return
	}
	h.views.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch 两阶段搜索
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	release, ok := h.acquire(w)
	if !ok {
		return
	}
	defer release()

	snap, err := h.service.Search(r.Context(), v, req.Sentence)
	if errors.Is(err, view.ErrStale) {
		h.writeJSON(w, http.StatusConflict, snap)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// handleKeywords 增删关键词后重新搜索
func (h *Handler) handleKeywords(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	var op view.KeywordOp
	if !h.decode(w, r, &op) {
		return
	}

	release, ok := h.acquire(w)
	if !ok {
		return
	}
	defer release()

	snap, err := h.service.EditKeywords(r.Context(), v, op)
	switch {
	case errors.Is(err, view.ErrEmptyKeyword), errors.Is(err, view.ErrKeywordIndex):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, view.ErrStale):
		h.writeJSON(w, http.StatusConflict, snap)
	default:
		h.writeJSON(w, http.StatusOK, snap)
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	v.Reset()
	h.writeJSON(w, http.StatusOK, v.Snapshot())
}

// handleSelect 选图并打开编辑器
func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	var req SelectRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, err := h.service.Select(r.Context(), v, req.ResultID, req.Wait)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	status := http.StatusOK
	if st.Status == editor.StatusLoading {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, st)
}

func (h *Handler) handleGetEditor(w http.ResponseWriter, r *http.Request) {
	session, ok := h.editor(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, session.State())
}

// handlePatchEditor 修改字幕样式
func (h *Handler) handlePatchEditor(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	var p editor.Patch
	if !h.decode(w, r, &p) {
		return
	}

	st, err := h.service.UpdateEditor(v, p)
	switch {
	case errors.Is(err, view.ErrNoEditor):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrInvalidColor), errors.Is(err, editor.ErrInvalidPosition):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.writeJSON(w, http.StatusOK, st)
	}
}

func (h *Handler) handleCloseEditor(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	v.CloseEditor()
	w.WriteHeader(http.StatusNoContent)
}

// handleDownload 导出 PNG；画布被污染时重定向到原图
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.editor(w, r)
	if !ok {
		return
	}

	if _, err := session.Rendered(); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = editor.DefaultFilename
	}

	var buf bytes.Buffer
	err := session.ExportPNG(&buf, editor.PNGEncoder{})

	var xe *editor.ExportError
	switch {
	case errors.As(err, &xe):
		h.logger.Info("export redirected to original", "view", r.PathValue("id"))
		http.Redirect(w, r, xe.OriginalURL, http.StatusFound)
	case err != nil:
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeFilename(filename)+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*view.View, bool) {
	v, err := h.views.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "View not found")
		return nil, false
	}
	return v, true
}

func (h *Handler) editor(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	v, ok := h.view(w, r)
	if !ok {
		return nil, false
	}
	session, err := v.Editor()
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

// acquire 获取信号量
func (h *Handler) acquire(w http.ResponseWriter) (func(), bool) {
	select {
	case h.semaphore <- struct{}{}:
		return func() { <-h.semaphore }, true
	default:
		h.writeError(w, http.StatusServiceUnavailable, "Server is busy")
		return nil, false
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Debug("write response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '"', '\\', '/', '\r', '\n':
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return editor.DefaultFilename
	}
	return string(out)
}
