package fetcher

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter 按代理主机限速，避免公共代理把我们拉黑
type HostLimiter struct {
	perHost sync.Map // map[string]*rate.Limiter
	rps     float64
}

// NewHostLimiter rps <= 0 时不限速
func NewHostLimiter(rps float64) *HostLimiter {
	return &HostLimiter{rps: rps}
}

// Wait 等待目标主机的令牌
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.rps <= 0 {
		return nil
	}

	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	return l.get(host).Wait(ctx)
}

func (l *HostLimiter) get(host string) *rate.Limiter {
	if limiter, ok := l.perHost.Load(host); ok {
		return limiter.(*rate.Limiter)
	}
	burst := int(l.rps)
	if burst < 1 {
		burst = 1
	}
	actual, _ := l.perHost.LoadOrStore(host, rate.NewLimiter(rate.Limit(l.rps), burst))
	return actual.(*rate.Limiter)
}
