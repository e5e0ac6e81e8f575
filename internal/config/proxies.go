package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProxyFile CORS 代理覆盖文件
//
// 示例：
//
//	proxies:
//	  - name: allorigins-json
//	    url_template: "https://api.allorigins.win/get?url={url}"
//	    encode: true
//	    response: json
//	    json_field: contents
type ProxyFile struct {
	Proxies []ProxyEntry `yaml:"proxies"`
}

// ProxyEntry 单个代理声明
type ProxyEntry struct {
	Name string `yaml:"name"`
	// URLTemplate 中的 {url} 会被目标地址替换
	URLTemplate string `yaml:"url_template"`
	// Encode 为 true 时目标地址先做 QueryEscape
	Encode bool `yaml:"encode"`
	// Response: text | json
	Response  string `yaml:"response"`
	JSONField string `yaml:"json_field"`
}

// LoadProxyFile 读取代理覆盖文件
func LoadProxyFile(path string) (*ProxyFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // 路径来自运维配置
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProxyFileNotFound
		}
		return nil, err
	}

	var pf ProxyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse proxy file: %w", err)
	}

	for i, p := range pf.Proxies {
		if p.Name == "" || !strings.Contains(p.URLTemplate, "{url}") {
			return nil, fmt.Errorf("proxy #%d: %w", i, ErrInvalidProxyEntry)
		}
		if p.Response == "" {
			pf.Proxies[i].Response = "text"
		}
	}

	return &pf, nil
}
