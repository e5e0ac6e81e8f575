package config

import "errors"

// 配置校验错误，Validate() 返回，调用方用 errors.Is 判断
var (
	ErrInvalidConcurrency = errors.New("invalid max concurrent: must be positive")
	ErrInvalidTimeout     = errors.New("invalid timeout: must be positive")
	ErrInvalidMinLength   = errors.New("invalid min document length: must be non-negative")
	ErrInvalidTTL         = errors.New("invalid ttl: cache ttl must be non-negative, view ttl positive")
	ErrInvalidRate        = errors.New("invalid scrape rate: must be non-negative")

	// ErrProxyFileNotFound 代理覆盖文件不存在
	ErrProxyFileNotFound = errors.New("proxy file not found")
	// ErrInvalidProxyEntry 代理条目缺少名称或模板
	ErrInvalidProxyEntry = errors.New("invalid proxy entry: name and url_template are required")
)
