package throttle

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Registry hands out one limiter per upstream key. Each limiter admits one
// dispatch per interval, so successive requests to the same upstream are at
// least interval apart regardless of how many goroutines share it.
type Registry struct {
	interval time.Duration
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRegistry creates a registry whose limiters space dispatches by interval.
// A non-positive interval disables throttling.
func NewRegistry(interval time.Duration) *Registry {
	return &Registry{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetInterval overrides the interval for a single upstream key.
func (r *Registry) SetInterval(key string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limiters[key] = newLimiter(interval)
}

// Wait blocks until key may dispatch or ctx is done.
func (r *Registry) Wait(ctx context.Context, key string) error {
	l := r.limiter(key)
	if l == nil {
		return ctx.Err()
	}
	return l.Wait(ctx)
}

func (r *Registry) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		l = newLimiter(r.interval)
		r.limiters[key] = l
	}
	return l
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// HostKey derives the upstream key of a URL: its host, or the raw string when
// it does not parse.
func HostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}
