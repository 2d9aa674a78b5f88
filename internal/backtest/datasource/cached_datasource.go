package datasource

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheTTL             = 10 * time.Minute
	defaultCacheCleanupInterval = 15 * time.Minute
)

// CachedBarSource memoizes another BarSource by request. Concurrent fetches of
// the same request share one upstream call, and cancelling one caller does not
// fail the others. Failures are not cached.
type CachedBarSource struct {
	source BarSource
	cache  *cache.Cache
	group  singleflight.Group
	logger *logger.Logger
}

// NewCachedBarSource wraps source. A ttl of zero uses DefaultCacheTTL.
func NewCachedBarSource(source BarSource, ttl time.Duration, log *logger.Logger) *CachedBarSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CachedBarSource{
		source: source,
		cache:  cache.New(ttl, defaultCacheCleanupInterval),
		logger: log,
	}
}

// FetchBars implements BarSource. Callers get their own copy of the bars.
func (c *CachedBarSource) FetchBars(ctx context.Context, req BarRequest) ([]types.Bar, error) {
	key := req.Key()

	if cached, found := c.cache.Get(key); found {
		c.logger.Debug("Bar cache hit", zap.String("request", req.String()))

		return cloneBars(cached.([]types.Bar)), nil
	}

	// The shared load must outlive any single caller, so it runs detached from
	// ctx and each caller waits on its own context.
	load := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		bars, err := c.source.FetchBars(load, req)
		if err != nil {
			return nil, err
		}

		c.cache.SetDefault(key, bars)

		return bars, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		c.logger.Debug("Bar cache miss", zap.String("request", req.String()), zap.Bool("shared", res.Shared))

		return cloneBars(res.Val.([]types.Bar)), nil
	}
}

// Invalidate drops every cached entry.
func (c *CachedBarSource) Invalidate() {
	c.cache.Flush()
}

func cloneBars(bars []types.Bar) []types.Bar {
	if bars == nil {
		return nil
	}

	out := make([]types.Bar, len(bars))
	copy(out, bars)

	return out
}
