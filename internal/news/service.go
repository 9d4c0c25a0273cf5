// Package news collects headlines from forums and news pages and resolves
// the $SYMBOL mentions in them to catalog titles.
package news

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"signal-screener/internal/interfaces"
	"signal-screener/internal/logger"
	"signal-screener/internal/normalize"
	"signal-screener/internal/store"
	"signal-screener/internal/throttle"
	"signal-screener/internal/types"
)

// SourceResult is the outcome of fetching one source. Headlines is empty
// (never nil) when Err is set.
type SourceResult struct {
	SourceID  string   `json:"source"`
	Headlines []string `json:"headlines"`
	Err       error    `json:"-"`
}

type registration struct {
	source   interfaces.HeadlineSource
	upstream string
}

// Aggregator fetches and normalizes headlines from registered sources.
type Aggregator struct {
	sources     map[string]registration
	order       []string
	titles      normalize.Lookup
	cache       *headlineCache
	throttle    *throttle.Registry
	concurrency int
	timeout     time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency caps the number of sources fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithTimeout sets a deadline on each source fetch.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = d
	}
}

// WithCacheTTL keeps normalized headlines per source for ttl. Zero disables
// caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.cache = newHeadlineCache(ttl)
	}
}

// WithThrottle spaces requests to the same upstream.
func WithThrottle(r *throttle.Registry) Option {
	return func(a *Aggregator) {
		a.throttle = r
	}
}

// NewAggregator creates an aggregator that normalizes against titles, which
// may be nil for pass-through.
func NewAggregator(titles normalize.Lookup, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:     make(map[string]registration),
		titles:      titles,
		throttle:    throttle.NewRegistry(0),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add registers a source. upstream is the key requests to it are throttled
// under, usually its host. Add must not be called concurrently with fetches.
func (a *Aggregator) Add(source interfaces.HeadlineSource, upstream string) {
	id := source.ID()
	if _, exists := a.sources[id]; !exists {
		a.order = append(a.order, id)
	}
	a.sources[id] = registration{source: source, upstream: upstream}
}

// SourceIDs returns the registered ids in registration order.
func (a *Aggregator) SourceIDs() []string {
	return append([]string(nil), a.order...)
}

// NewFromConfig builds an aggregator with every source in cfg. wrap, when
// non-nil, decorates each source. Keyed feeds read their key from the
// environment variable named by quote.api_key_env.
func NewFromConfig(cfg *store.Config, titles normalize.Lookup, wrap func(interfaces.HeadlineSource) interfaces.HeadlineSource) (*Aggregator, error) {
	limits := throttle.NewRegistry(cfg.News.MinInterval)
	a := NewAggregator(titles,
		WithConcurrency(cfg.News.Concurrency),
		WithTimeout(cfg.News.Timeout),
		WithCacheTTL(cfg.News.CacheTTL),
		WithThrottle(limits),
	)

	apiKey := os.Getenv(cfg.Quote.APIKeyEnv)
	for _, sc := range cfg.News.Sources {
		src, err := NewSource(sc, cfg.News.UserAgent, apiKey, cfg.News.Timeout)
		if err != nil {
			return nil, err
		}
		if wrap != nil {
			src = wrap(src)
		}
		host := throttle.HostKey(sc.URL)
		// A per-source interval applies to its whole host; the last one wins.
		if sc.MinInterval > 0 {
			limits.SetInterval(host, sc.MinInterval)
		}
		a.Add(src, host)
	}
	return a, nil
}

// FetchSource returns the normalized headlines of one source. Any failure,
// including an unknown id, yields an empty slice.
func (a *Aggregator) FetchSource(ctx context.Context, sourceID string) []string {
	res := a.fetch(ctx, sourceID)
	if res.Err != nil {
		logger.ErrorWithErr(ctx, "Headline source failed", res.Err,
			"source", sourceID,
			"class", types.ErrorClass(res.Err),
		)
	}
	return res.Headlines
}

// Collect fetches every source in ids and returns one result per id, in the
// order given. An empty ids means all registered sources.
func (a *Aggregator) Collect(ctx context.Context, ids []string) []SourceResult {
	if len(ids) == 0 {
		ids = a.order
	}
	results := make([]SourceResult, len(ids))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = a.fetch(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Aggregate concatenates the headlines of ids, sources in the order given
// and each source's headlines in page order. Failed sources are logged and
// contribute nothing.
func (a *Aggregator) Aggregate(ctx context.Context, ids []string) []string {
	timer := logger.StartOperation(ctx, "news.Aggregate", "sources", len(ids))
	ctx = timer.GetContext()

	all := []string{}
	failed := 0
	for _, res := range a.Collect(ctx, ids) {
		if res.Err != nil {
			failed++
			logger.ErrorWithErr(ctx, "Headline source failed", res.Err,
				"source", res.SourceID,
				"class", types.ErrorClass(res.Err),
			)
			continue
		}
		all = append(all, res.Headlines...)
	}

	timer.End("headlines", len(all), "failed_sources", failed)
	return all
}

func (a *Aggregator) fetch(ctx context.Context, id string) SourceResult {
	reg, ok := a.sources[id]
	if !ok {
		return SourceResult{
			SourceID:  id,
			Headlines: []string{},
			Err:       &types.SourceFetchError{Source: id, Err: fmt.Errorf("unknown source")},
		}
	}

	if cached, ok := a.cache.get(id); ok {
		logger.Debug(ctx, "Using cached headlines", "source", id, "count", len(cached))
		return SourceResult{SourceID: id, Headlines: cached}
	}

	if err := a.throttle.Wait(ctx, reg.upstream); err != nil {
		return SourceResult{SourceID: id, Headlines: []string{}, Err: &types.SourceFetchError{Source: id, Err: err}}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := reg.source.Headlines(ctx)
	if err != nil {
		return SourceResult{SourceID: id, Headlines: []string{}, Err: err}
	}

	headlines := normalize.Lines(raw, a.titles)
	a.cache.set(id, headlines)
	return SourceResult{SourceID: id, Headlines: headlines}
}

// headlineCache stores normalized headlines per source. A nil cache never
// hits.
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	headlines []string
	timestamp time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	if ttl <= 0 {
		return nil
	}
	return &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

// get retrieves cached headlines if still valid
func (c *headlineCache) get(id string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[id]
	if !exists || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}
	return append([]string(nil), entry.headlines...), true
}

// set stores headlines and drops expired entries
func (c *headlineCache) set(id string, headlines []string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[id] = &cacheEntry{
		headlines: append([]string(nil), headlines...),
		timestamp: now,
	}
}
