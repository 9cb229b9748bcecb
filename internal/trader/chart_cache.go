package trader

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/tracker"
)

// chartCache memoizes chart fetches for one loop iteration. Concurrent
// lookups of the same identity share a single fetch, and a failed fetch is
// remembered as "no data" until the cache is dropped.
type chartCache struct {
	market   tracker.Client
	interval string
	logger   *zap.Logger
	metrics  *Metrics

	mu      sync.Mutex
	entries map[string]*chartEntry
}

type chartEntry struct {
	once    sync.Once
	candles []models.Candle
}

func newChartCache(market tracker.Client, interval string, logger *zap.Logger, metrics *Metrics) *chartCache {
	return &chartCache{
		market:   market,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		entries:  make(map[string]*chartEntry),
	}
}

// Get returns the most recent candles of identity, trimmed to the chart
// window, or nil when the provider has no data.
func (c *chartCache) Get(ctx context.Context, identity string) []models.Candle {
	c.mu.Lock()
	entry, ok := c.entries[identity]
	if !ok {
		entry = &chartEntry{}
		c.entries[identity] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		candles, err := c.market.GetChart(ctx, identity, c.interval)
		if err != nil {
			c.metrics.ChartFetchFailures.Inc()
			c.logger.Warn("Chart fetch failed, deferring decision",
				zap.String("identity", identity), zap.Error(err))
			return
		}
		entry.candles = models.TrimCandles(candles)
	})
	return entry.candles
}
