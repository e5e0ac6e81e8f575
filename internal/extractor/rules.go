package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule 图片地址提取规则
//
// Match 返回原始匹配（未规范化），顺序与文档中出现的顺序一致。
type Rule interface {
	Name() string
	Match(html string) []string
}

// RegexRule 基于正则的规则，取第一个捕获组
type RegexRule struct {
	name string
	re   *regexp.Regexp
}

// NewRegexRule 创建正则规则
func NewRegexRule(name, pattern string) *RegexRule {
	return &RegexRule{name: name, re: regexp.MustCompile(pattern)}
}

// Name 规则名
func (r *RegexRule) Name() string { return r.name }

// Match 所有匹配
func (r *RegexRule) Match(html string) []string {
	matches := r.re.FindAllStringSubmatch(html, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			out = append(out, m[1])
		}
	}
	return out
}

// AttrRule 属性规则
//
// 先按正则扫描整个文本（脚本模板、注释里的标记也算），
// 再补上只有 DOM 解析才能取到的值（单引号或无引号属性）。
type AttrRule struct {
	name    string
	attr    string
	pattern *RegexRule
}

// NewAttrRule 创建属性规则
func NewAttrRule(name, attr string) *AttrRule {
	return &AttrRule{
		name:    name,
		attr:    attr,
		pattern: NewRegexRule(name, regexp.QuoteMeta(attr)+`="([^"]+)"`),
	}
}

// Name 规则名
func (r *AttrRule) Name() string { return r.name }

// Match 文本匹配在前，DOM 中额外的值追加在后
func (r *AttrRule) Match(html string) []string {
	out := r.pattern.Match(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	seen := make(map[string]struct{}, len(out))
	for _, v := range out {
		seen[v] = struct{}{}
	}
	doc.Find("[" + r.attr + "]").Each(func(_ int, s *goquery.Selection) {
		v, ok := s.Attr(r.attr)
		if !ok || v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	})
	return out
}

// NaverRules Naver 图片搜索结果页的规则，按优先级排列
func NaverRules() []Rule {
	return []Rule{
		NewRegexRule("pstatic-src", `(?i)src="(https://search\.pstatic\.net/common/\?src=[^"]+)"`),
		NewRegexRule("thumb", `"thumb":"([^"]+)"`),
		NewRegexRule("originalUrl", `"originalUrl":"([^"]+)"`),
		NewRegexRule("src-https", `(?i)src="(https://[^"]+\.(?:jpg|jpeg|png|gif|webp)[^"]*)"`),
		NewAttrRule("data-lazy-src", "data-lazy-src"),
	}
}
