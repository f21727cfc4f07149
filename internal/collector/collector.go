package collector

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"CryptoDashboard/internal/model"
)

// Snapshot is the concatenated output of every configured provider for one fetch.
// Quotes keep provider order, so earlier providers take precedence downstream.
type Snapshot struct {
	Quotes    []model.PriceQuote
	Degraded  []string
	FetchedAt time.Time
	Cached    bool
}

// Collector fans a fetch out over the configured providers and caches the result.
type Collector struct {
	Fetchers []Fetcher
	Timeout  time.Duration

	cache *Cache[Snapshot]
	log   zerolog.Logger
}

// NewCollector creates a new Collector. timeout bounds each provider call; ttl
// bounds how long a snapshot is served from cache.
func NewCollector(fetchers []Fetcher, timeout, ttl time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		Fetchers: fetchers,
		Timeout:  timeout,
		cache:    NewCache[Snapshot](ttl),
		log:      log.With().Str("component", "collector").Logger(),
	}
}

func (c *Collector) cacheKey() string {
	names := make([]string, len(c.Fetchers))
	for i, f := range c.Fetchers {
		names[i] = f.Name()
	}
	return strings.Join(names, ",")
}

// Fetch returns the price snapshot, from cache when it is still fresh. Provider
// failures never fail the fetch; they are logged and listed in Snapshot.Degraded.
func (c *Collector) Fetch(ctx context.Context) Snapshot {
	snap, cached, err := c.cache.GetOrLoad(ctx, c.cacheKey(), func(ctx context.Context) (Snapshot, error) {
		return c.fetchAll(ctx), nil
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("price fetch failed")
		return Snapshot{FetchedAt: time.Now()}
	}
	snap.Cached = cached
	return snap
}

// Refresh drops the cached snapshot and fetches again.
func (c *Collector) Refresh(ctx context.Context) Snapshot {
	c.cache.Invalidate(c.cacheKey())
	return c.Fetch(ctx)
}

func (c *Collector) fetchAll(ctx context.Context) Snapshot {
	snap := Snapshot{FetchedAt: time.Now()}
	for _, f := range c.Fetchers {
		quotes, err := c.fetchOne(ctx, f)
		if err != nil {
			snap.Degraded = append(snap.Degraded, f.Name())
			ev := c.log.Warn()
			if errors.Is(err, model.ErrSchema) {
				ev = c.log.Error()
			}
			ev.Err(err).Str("provider", f.Name()).Msg("provider contributed no quotes")
			continue
		}
		c.log.Debug().Str("provider", f.Name()).Int("quotes", len(quotes)).Msg("provider fetched")
		snap.Quotes = append(snap.Quotes, quotes...)
	}
	return snap
}

func (c *Collector) fetchOne(ctx context.Context, f Fetcher) ([]model.PriceQuote, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	quotes, err := f.FetchQuotes(ctx)
	if err != nil {
		var upErr *model.UpstreamError
		var schemaErr *model.SchemaError
		if !errors.As(err, &upErr) && !errors.As(err, &schemaErr) {
			err = &model.UpstreamError{Upstream: f.Name(), Err: err}
		}
		return nil, err
	}
	return quotes, nil
}
