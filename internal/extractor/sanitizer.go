package extractor

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// 字幕只允许纯文本
var captionPolicy = bluemonday.StrictPolicy()

// SanitizeCaption 去除标签和控制字符，合并空白
//
// bluemonday 输出会转义实体，这里再还原成可绘制的文字。
func SanitizeCaption(s string) string {
	clean := html.UnescapeString(captionPolicy.Sanitize(s))
	clean = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, clean)
	return strings.Join(strings.Fields(clean), " ")
}

// SanitizeKeyword 关键词标签：与字幕相同的清理规则
func SanitizeKeyword(s string) string {
	return SanitizeCaption(s)
}
