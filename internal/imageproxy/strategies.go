package imageproxy

// LoadStrategy 编辑器加载图片的一种方式
//
// CrossOrigin 为 true 表示以跨域许可方式加载：响应必须带有
// Access-Control-Allow-Origin，成功后画布像素可读可导出。
// 为 false 的直连方式总能显示，但画布被标记为 tainted。
type LoadStrategy struct {
	Name        string
	CrossOrigin bool
	Build       func(originalURL string) string
}

// DefaultLoadStrategies 默认回退链：两个图片代理、带跨域的直连、不带跨域的直连
func DefaultLoadStrategies() []LoadStrategy {
	wsrv := NewBuilder(DefaultBaseURL)
	weserv := NewBuilder("https://images.weserv.nl/")

	return []LoadStrategy{
		{
			Name:        "wsrv",
			CrossOrigin: true,
			Build:       func(u string) string { return wsrv.URL(u, Options{}) },
		},
		{
			Name:        "weserv",
			CrossOrigin: true,
			Build:       func(u string) string { return weserv.URL(u, Options{}) },
		},
		{
			Name:        "direct-cors",
			CrossOrigin: true,
			Build:       func(u string) string { return u },
		},
		{
			Name:        "direct",
			CrossOrigin: false,
			Build:       func(u string) string { return u },
		},
	}
}
