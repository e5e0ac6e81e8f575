// Package search 通过 CORS 代理抓取 Naver 图片搜索并合并结果。
package search

// SearchResult 单个图片结果，生成后不再修改
type SearchResult struct {
	ID           string `json:"id"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FullURL      string `json:"fullUrl"`
	OriginalURL  string `json:"originalUrl"`
	SourceLabel  string `json:"sourceLabel"`
	SourceURL    string `json:"sourceUrl"`
}

// Identity 去重用的标识（规范化后的原图地址）
func (r SearchResult) Identity() string {
	if r.OriginalURL != "" {
		return NormalizeURL(r.OriginalURL)
	}
	return NormalizeURL(r.FullURL)
}

// Phase 结果来自哪一阶段
type Phase string

const (
	PhaseDirect   Phase = "direct"
	PhaseKeywords Phase = "keywords"
)

// 两个搜索后缀
const (
	SuffixJjal = "짤"
	SuffixMeme = "밈"
)

const (
	// DefaultCount 每次搜索返回的结果数
	DefaultCount = 10
	// MinResults 直接搜索少于这个数量时进入关键词阶段
	MinResults = 5
)
