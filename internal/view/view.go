// Package view 保存单个用户的搜索会话状态。
//
// 每次搜索、关键词修改和选图都会领取一个代数票据，
// 结果回写时票据已过期则丢弃，较慢的旧请求不会覆盖新状态。
package view

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jjalkak/go-meme-service/internal/editor"
	"github.com/jjalkak/go-meme-service/internal/extractor"
	"github.com/jjalkak/go-meme-service/internal/keywords"
	"github.com/jjalkak/go-meme-service/internal/search"
)

var (
	ErrStale         = errors.New("result superseded by a newer request")
	ErrEmptyKeyword  = errors.New("keyword is empty")
	ErrKeywordIndex  = errors.New("keyword index out of range")
	ErrUnknownResult = errors.New("result not in current list")
	ErrNoEditor      = errors.New("no image selected")
	ErrViewNotFound  = errors.New("view not found")
)

// Ticket 一次请求的代数
type Ticket struct {
	gen uint64
}

// View 单个会话的状态
type View struct {
	mu sync.Mutex

	id          string
	placeholder string
	createdAt   time.Time
	updatedAt   time.Time

	sentence string
	keywords keywords.Set
	results  []search.SearchResult
	phase    search.Phase
	loading  bool

	searchGen uint64
	selectGen uint64
	editor    *editor.Session
}

// New 创建视图，placeholder 为空输入时使用的句子
func New(id, placeholder string) *View {
	now := time.Now()
	return &View{
		id:          id,
		placeholder: placeholder,
		createdAt:   now,
		updatedAt:   now,
		keywords:    keywords.Set{Korean: []string{}},
		results:     []search.SearchResult{},
	}
}

// ID 视图 ID
func (v *View) ID() string { return v.id }

// Snapshot 对外展示的状态
type Snapshot struct {
	ID              string                `json:"id"`
	Placeholder     string                `json:"placeholder"`
	Sentence        string                `json:"sentence"`
	Keywords        []string              `json:"keywords"`
	DisplayKeywords []string              `json:"displayKeywords"`
	Results         []search.SearchResult `json:"results"`
	SiteLinks       []search.SiteLink     `json:"siteLinks"`
	Phase           search.Phase          `json:"phase,omitempty"`
	Loading         bool                  `json:"loading"`
	Editor          *editor.State         `json:"editor,omitempty"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// Snapshot 当前状态；没有结果时附带手动搜索链接
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	results := make([]search.SearchResult, len(v.results))
	copy(results, v.results)

	display := search.DisplayKeywords(v.keywords.Korean, v.sentence)
	links := []search.SiteLink{}
	if len(results) == 0 && v.sentence != "" && !v.loading {
		links = search.KoreanSiteLinks(display)
	}

	snap := Snapshot{
		ID:              v.id,
		Placeholder:     v.placeholder,
		Sentence:        v.sentence,
		Keywords:        v.keywords.Clone().Korean,
		DisplayKeywords: display,
		Results:         results,
		SiteLinks:       links,
		Phase:           v.phase,
		Loading:         v.loading,
		UpdatedAt:       v.updatedAt,
	}
	if v.editor != nil {
		st := v.editor.State()
		snap.Editor = &st
	}
	return snap
}

// ResolveSentence 去掉首尾空白，为空时用占位句
func (v *View) ResolveSentence(input string) string {
	s := extractor.SanitizeCaption(strings.TrimSpace(input))
	if s == "" {
		return v.placeholder
	}
	return s
}

// BeginSearch 开始新搜索：记录句子、清空关键词并领取票据
func (v *View) BeginSearch(sentence string) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.searchGen++
	v.sentence = sentence
	v.keywords = keywords.Set{Korean: []string{}}
	v.loading = true
	v.touch()
	return Ticket{gen: v.searchGen}
}

// FinishSearch 写回两阶段搜索结果
func (v *View) FinishSearch(t Ticket, out search.Outcome) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.gen != v.searchGen {
		return ErrStale
	}
	v.results = out.Results
	if v.results == nil {
		v.results = []search.SearchResult{}
	}
	v.keywords = out.Keywords.Clone()
	v.phase = out.Phase
	v.loading = false
	v.touch()
	return nil
}

// KeywordOp 关键词标签操作
type KeywordOp struct {
	Add    string `json:"add,omitempty"`
	Remove *int   `json:"remove,omitempty"`
}

// BeginKeywordEdit 修改关键词并领取票据，返回新的关键词列表
func (v *View) BeginKeywordEdit(op KeywordOp) (Ticket, []string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	kw := v.keywords.Clone()
	switch {
	case op.Remove != nil:
		i := *op.Remove
		if i < 0 || i >= len(kw.Korean) {
			return Ticket{}, nil, ErrKeywordIndex
		}
		kw.Korean = append(kw.Korean[:i], kw.Korean[i+1:]...)
	default:
		tag := extractor.SanitizeKeyword(op.Add)
		if tag == "" {
			return Ticket{}, nil, ErrEmptyKeyword
		}
		kw.Korean = append(kw.Korean, tag)
	}

	v.searchGen++
	v.keywords = kw
	v.loading = true
	v.touch()
	return Ticket{gen: v.searchGen}, kw.Clone().Korean, nil
}

// FinishKeywordSearch 写回关键词搜索结果（替换结果列表）
func (v *View) FinishKeywordSearch(t Ticket, results []search.SearchResult) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.gen != v.searchGen {
		return ErrStale
	}
	v.results = results
	if v.results == nil {
		v.results = []search.SearchResult{}
	}
	v.phase = search.PhaseKeywords
	v.loading = false
	v.touch()
	return nil
}

// ResultByID 按 ID 取当前结果
func (v *View) ResultByID(id string) (search.SearchResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.results {
		if r.ID == id {
			return r, nil
		}
	}
	return search.SearchResult{}, ErrUnknownResult
}

// Sentence 当前句子
func (v *View) Sentence() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sentence
}

// OpenEditor 替换编辑会话，旧会话被关闭
func (v *View) OpenEditor(s *editor.Session) Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.editor != nil {
		v.editor.Close()
	}
	v.selectGen++
	v.editor = s
	v.touch()
	return Ticket{gen: v.selectGen}
}

// Editor 当前编辑会话
func (v *View) Editor() (*editor.Session, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.editor == nil {
		return nil, ErrNoEditor
	}
	return v.editor, nil
}

// IsCurrentSelection 票据对应的选图是否仍然有效
func (v *View) IsCurrentSelection(t Ticket) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return t.gen == v.selectGen && v.editor != nil
}

// CloseEditor 关闭编辑器
func (v *View) CloseEditor() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeEditorLocked()
	v.touch()
}

// Reset 清空句子、关键词、结果和编辑器，进行中的请求全部作废
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.searchGen++
	v.sentence = ""
	v.keywords = keywords.Set{Korean: []string{}}
	v.results = []search.SearchResult{}
	v.phase = ""
	v.loading = false
	v.closeEditorLocked()
	v.touch()
}

func (v *View) closeEditorLocked() {
	if v.editor != nil {
		v.editor.Close()
		v.editor = nil
	}
	v.selectGen++
}

func (v *View) touch() {
	v.updatedAt = time.Now()
}
