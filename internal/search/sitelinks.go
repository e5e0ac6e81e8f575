package search

import (
	"strings"

	"github.com/jjalkak/go-meme-service/internal/fetcher"
)

// SiteLink 手动搜索链接
type SiteLink struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// KoreanSiteLinks 搜索无结果时给出的韩国站点搜索链接
func KoreanSiteLinks(kw []string) []SiteLink {
	if len(kw) == 0 {
		return []SiteLink{}
	}
	q := fetcher.EncodeURIComponent(strings.Join(kw, " "))

	return []SiteLink{
		{ID: "naver-image", Name: "네이버 이미지", URL: "https://search.naver.com/search.naver?where=image&query=" + q + "+짤"},
		{ID: "google-image-kr", Name: "구글 이미지", URL: "https://www.google.com/search?q=" + q + "+짤&tbm=isch&hl=ko"},
		{ID: "dcinside", Name: "DC인사이드", URL: "https://search.dcinside.com/combine/q/" + q},
		{ID: "fmkorea", Name: "에펨코리아", URL: "https://www.fmkorea.com/search.php?mid=home&search_keyword=" + q},
	}
}

// DisplayKeywords 没有提取到关键词时用整句
func DisplayKeywords(kw []string, sentence string) []string {
	if len(kw) > 0 {
		return kw
	}
	if sentence != "" {
		return []string{sentence}
	}
	return []string{}
}
