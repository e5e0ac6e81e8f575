package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jjalkak/go-meme-service/internal/config"
)

// ErrEmptyContents JSON 代理返回了空的 contents 字段
var ErrEmptyContents = errors.New("proxy returned empty contents")

// ProxyDescriptor CORS 代理描述
type ProxyDescriptor struct {
	Name          string
	BuildURL      func(target string) string
	ParseResponse func(raw string) (string, error)
}

// DefaultProxies 内置代理链，按顺序尝试
func DefaultProxies() []ProxyDescriptor {
	return []ProxyDescriptor{
		{
			Name: "allorigins-json",
			BuildURL: func(target string) string {
				return "https://api.allorigins.win/get?url=" + EncodeURIComponent(target)
			},
			ParseResponse: jsonField("contents"),
		},
		{
			Name: "corsproxy-io",
			BuildURL: func(target string) string {
				return "https://corsproxy.io/?" + EncodeURIComponent(target)
			},
			ParseResponse: rawText,
		},
		{
			Name: "cors-proxy-shs",
			BuildURL: func(target string) string {
				return "https://proxy.cors.sh/" + target
			},
			ParseResponse: rawText,
		},
	}
}

// ProxiesFromConfig 由 YAML 覆盖文件构建代理链
func ProxiesFromConfig(entries []config.ProxyEntry) []ProxyDescriptor {
	out := make([]ProxyDescriptor, 0, len(entries))
	for _, e := range entries {
		tmpl, encode := e.URLTemplate, e.Encode
		p := ProxyDescriptor{
			Name: e.Name,
			BuildURL: func(target string) string {
				if encode {
					target = EncodeURIComponent(target)
				}
				return strings.ReplaceAll(tmpl, "{url}", target)
			},
			ParseResponse: rawText,
		}
		if e.Response == "json" {
			field := e.JSONField
			if field == "" {
				field = "contents"
			}
			p.ParseResponse = jsonField(field)
		}
		out = append(out, p)
	}
	return out
}

// EncodeURIComponent 与浏览器 encodeURIComponent 一致的转义（空格为 %20）
func EncodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func rawText(raw string) (string, error) {
	return raw, nil
}

func jsonField(field string) func(string) (string, error) {
	return func(raw string) (string, error) {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return "", fmt.Errorf("decode proxy json: %w", err)
		}
		s, _ := payload[field].(string)
		if s == "" {
			return "", ErrEmptyContents
		}
		return s, nil
	}
}
