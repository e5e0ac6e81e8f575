package extractor

import (
	"log/slog"
	"net/url"
	"strings"

	applog "github.com/jjalkak/go-meme-service/internal/log"
)

// 代理包装地址，真实地址在 src 参数里
const pstaticWrapper = "search.pstatic.net/common/?src="

// 站点自身的静态资源（图标、按钮），不是搜索结果
var excludedHosts = []string{
	"static.naver.net",
	"pstatic.net/sstatic",
}

// Extractor 图片地址提取器
type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

// New 创建提取器，rules 为空时使用 Naver 规则
func New(logger *slog.Logger, rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = NaverRules()
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Extractor{rules: rules, logger: logger.With("component", "extractor")}
}

// ExtractImageURLs 按规则顺序提取图片地址，去除完全相同的重复项（先出现者保留）
func (e *Extractor) ExtractImageURLs(html string) []string {
	seen := make(map[string]struct{})
	var found []string

	for _, rule := range e.rules {
		count := 0
		for _, raw := range rule.Match(html) {
			candidate, ok := resolveCandidate(raw)
			if !ok {
				continue
			}
			count++
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			found = append(found, candidate)
		}
		if count > 0 {
			e.logger.Debug("rule matched", "rule", rule.Name(), "count", count)
		}
	}

	e.logger.Debug("image urls extracted", "total", len(found), "length", len(html))
	return found
}

// ExtractImageURLs 使用默认规则提取
func ExtractImageURLs(html string) []string {
	return defaultExtractor.ExtractImageURLs(html)
}

var defaultExtractor = New(nil)

// NormalizeMatch 还原转义：\u002F、反斜杠、&amp;
func NormalizeMatch(raw string) string {
	s := strings.ReplaceAll(raw, `\u002F`, "/")
	s = strings.ReplaceAll(s, `\`, "")
	return strings.ReplaceAll(s, "&amp;", "&")
}

// resolveCandidate 规范化匹配并判断是否接受
func resolveCandidate(raw string) (string, bool) {
	u := NormalizeMatch(raw)

	if strings.Contains(u, pstaticWrapper) {
		if inner, ok := unwrapPstatic(u); ok {
			return inner, true
		}
	}

	if !strings.HasPrefix(u, "http") || isExcluded(u) {
		return "", false
	}
	return u, true
}

// unwrapPstatic 取 src= 参数并解码
func unwrapPstatic(u string) (string, bool) {
	idx := strings.Index(u, "src=")
	if idx < 0 {
		return "", false
	}
	value := u[idx+len("src="):]
	if amp := strings.IndexByte(value, '&'); amp >= 0 {
		value = value[:amp]
	}
	if value == "" {
		return "", false
	}

	decoded, err := url.PathUnescape(value)
	if err != nil || !strings.HasPrefix(decoded, "http") {
		return "", false
	}
	return decoded, true
}

func isExcluded(u string) bool {
	for _, h := range excludedHosts {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}
