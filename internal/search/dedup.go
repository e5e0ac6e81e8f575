package search

import (
	"regexp"
	"strings"
)

var (
	schemeRe    = regexp.MustCompile(`^https?://`)
	wwwRe       = regexp.MustCompile(`^www\.`)
	sizeParamRe = regexp.MustCompile(`(?i)[?&](w|h|width|height|size|quality|q|fit|crop|auto|format|f)=[^&]*`)
	ampsRe      = regexp.MustCompile(`&&+`)
)

// NormalizeURL 用于比较的地址形式
//
// 去掉协议、www、尺寸/质量类参数和结尾斜杠，并转为小写。
func NormalizeURL(u string) string {
	s := schemeRe.ReplaceAllString(u, "")
	s = wwwRe.ReplaceAllString(s, "")
	s = sizeParamRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, "?")
	s = strings.Replace(s, "?&", "?", 1)
	s = ampsRe.ReplaceAllString(s, "&")
	s = strings.TrimSuffix(s, "/")
	return strings.ToLower(s)
}

// Deduplicate 按规范化标识去重，保留首次出现的项和原有顺序
func Deduplicate(results []SearchResult) []SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		key := r.Identity()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func truncate(results []SearchResult, n int) []SearchResult {
	if n >= 0 && len(results) > n {
		return results[:n]
	}
	return results
}
