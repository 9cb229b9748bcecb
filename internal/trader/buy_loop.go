package trader

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/indicators"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/swap"
)

// runBuyIteration performs one pass of discovery, evaluation and execution.
func (e *Engine) runBuyIteration(ctx context.Context) {
	l := e.logger.Named("buy-loop")
	l.Debug("Buy iteration started")

	e.applyBlacklist()
	e.discover(ctx, l)

	cache := newChartCache(e.market, e.cfg.Trading.ChartInterval, l, e.metrics)
	for _, rec := range e.store.All() {
		if ctx.Err() != nil {
			return
		}
		if !rec.Status.Evaluatable() {
			continue
		}
		e.evaluateBuy(ctx, l, cache, rec)
	}

	// slots are taken once per iteration; only this loop opens positions
	slots := AvailableSlots(e.store, e.cfg.Trading.MaxActivePositions)
	e.metrics.AvailableSlots.Set(float64(slots))
	targets := e.store.FilterByStatus(models.StatusTarget)
	if len(targets) == 0 {
		return
	}
	if slots <= 0 {
		l.Info("No free position slots, skipping execution",
			zap.Int("targets", len(targets)),
			zap.Int("max_active_positions", e.cfg.Trading.MaxActivePositions))
		return
	}
	if len(targets) > slots {
		targets = targets[:slots]
	}

	var wg sync.WaitGroup
	for _, rec := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.safely(ctx, "buy-execution", func(ctx context.Context) {
				e.executeBuy(ctx, l, rec)
			})
		}()
	}
	wg.Wait()
	e.refreshPositionGauge()
}

// discover pulls the trending feed and tracks every candidate that passes
// the static filters as hold.
func (e *Engine) discover(ctx context.Context, l *zap.Logger) {
	candidates, err := e.market.GetTrendingTokens(ctx, e.cfg.Trading.TrendingTimeframe)
	if err != nil {
		l.Warn("Discovery failed, evaluating tracked assets only", zap.Error(err))
		return
	}

	added := 0
	for _, c := range candidates {
		var existing *models.AssetRecord
		if rec, ok := e.store.Get(c.Token.Mint); ok {
			existing = &rec
		}
		ok, reason := PassesStaticFilters(c, &e.cfg.Filters, existing)
		if !ok {
			l.Debug("Candidate filtered out",
				zap.String("identity", c.Token.Mint),
				zap.String("symbol", c.Token.Symbol),
				zap.String("reason", reason))
			continue
		}

		u := store.AssetUpdate{
			Identity: c.Token.Mint,
			Symbol:   store.Ptr(c.Token.Symbol),
			Name:     store.Ptr(c.Token.Name),
			Market:   store.Ptr(c.Pools[0].Market),
		}
		if err := e.store.Upsert(u); err != nil {
			l.Error("Failed to track candidate", zap.String("identity", c.Token.Mint), zap.Error(err))
			continue
		}
		if existing == nil {
			added++
		}
	}
	l.Info("Discovery complete", zap.Int("candidates", len(candidates)), zap.Int("new", added))
}

// evaluateBuy refreshes the record's chart and indicators and promotes it to
// target on a buy signal. Missing or short charts leave the status alone.
func (e *Engine) evaluateBuy(ctx context.Context, l *zap.Logger, cache *chartCache, rec models.AssetRecord) {
	rl := l.With(zap.String("identity", rec.Identity), zap.String("symbol", rec.Symbol))

	candles := cache.Get(ctx, rec.Identity)
	if candles == nil {
		e.metrics.Decisions.WithLabelValues("no_data").Inc()
		return
	}

	snap := indicators.Compute(candles)
	u := store.AssetUpdate{Identity: rec.Identity, ChartWindow: candles, Indicators: snap}
	rec.Indicators = snap

	if snap == nil {
		rl.Debug("Not enough candles for a decision", zap.Int("candles", len(candles)))
		e.metrics.Decisions.WithLabelValues("no_data").Inc()
		if err := e.store.Upsert(u); err != nil {
			rl.Error("Failed to store chart", zap.Error(err))
		}
		return
	}

	if !ShouldBuy(rec, &e.cfg.Trading) {
		e.metrics.Decisions.WithLabelValues("hold").Inc()
		if err := e.store.Upsert(u); err != nil {
			rl.Error("Failed to store indicators", zap.Error(err))
		}
		return
	}

	e.metrics.Decisions.WithLabelValues("buy").Inc()
	u.Status = store.Ptr(models.StatusTarget)
	u.DecisionPrice = store.Ptr(snap.Price)
	if err := e.store.Upsert(u); err != nil {
		rl.Error("Failed to mark target", zap.Error(err))
		return
	}
	rl.Info("Buy signal",
		zap.String("policy", e.policy.Name()),
		zap.Float64("price", snap.Price),
		zap.Float64("rsi", snap.RSI),
		zap.Float64("bb_lower", snap.BB.Lower),
		zap.Bool("trend_bias", snap.TrendBias))
	e.saveNow()
}

// executeBuy runs the staleness guard and the swap for one target.
func (e *Engine) executeBuy(ctx context.Context, l *zap.Logger, rec models.AssetRecord) {
	rl := l.With(zap.String("identity", rec.Identity), zap.String("symbol", rec.Symbol))

	release, ok := e.guards.TryAcquire(rec.Identity, Buying)
	if !ok {
		rl.Debug("Swap already in flight, skipping")
		return
	}
	defer release()

	// the record may have moved on since the target list was taken
	cur, ok := e.store.Get(rec.Identity)
	if !ok || cur.Status != models.StatusTarget {
		return
	}

	live, err := e.market.GetLivePrice(ctx, rec.Identity)
	if err != nil {
		rl.Warn("Live price unavailable, keeping target", zap.Error(err))
		return
	}

	if ref := cur.DecisionPrice; ref > 0 {
		drift := math.Abs(live.Price-ref) / ref * 100
		if drift > e.cfg.Trading.MaxAllowedPriceDriftPercent {
			rl.Info("Price drifted since the buy signal, returning to hold",
				zap.Float64("decision_price", ref),
				zap.Float64("live_price", live.Price),
				zap.Float64("drift_pct", drift))
			if err := e.store.Upsert(store.AssetUpdate{Identity: rec.Identity, Status: store.Ptr(models.StatusHold)}); err != nil {
				rl.Error("Failed to return target to hold", zap.Error(err))
			}
			return
		}
	}

	res, err := e.swapper.ExecuteSwap(ctx, rec.Identity, swap.Buy, e.cfg.Swap.Amount)
	if err != nil {
		e.metrics.Swaps.WithLabelValues("buy", "error").Inc()
		rl.Error("Buy swap failed", zap.Error(err))
		if err := e.store.Upsert(store.AssetUpdate{
			Identity:  rec.Identity,
			Status:    store.Ptr(models.StatusFailed),
			LastError: store.Ptr(err.Error()),
		}); err != nil {
			rl.Error("Failed to mark failed", zap.Error(err))
		}
		e.saveNow()
		return
	}
	e.metrics.Swaps.WithLabelValues("buy", "ok").Inc()

	price := res.Price
	if price <= 0 {
		price = live.Price
	}
	qty := res.Quantity
	if qty <= 0 {
		qty = e.cfg.Swap.Amount / price
		rl.Warn("Swap reported no quantity, deriving it from the fill price",
			zap.String("tx_id", res.TxID), zap.Float64("quantity", qty))
	}
	ev, err := e.store.Open(rec.Identity, store.OpenParams{EntryPrice: price, Quantity: qty, TxID: res.TxID})
	if err != nil {
		// the swap landed: never leave the record executable again
		rl.Error("Failed to open position after swap", zap.String("tx_id", res.TxID), zap.Error(err))
		if err := e.store.Upsert(store.AssetUpdate{
			Identity:  rec.Identity,
			Status:    store.Ptr(models.StatusFailed),
			LastError: store.Ptr(fmt.Sprintf("swap %s landed but position was not recorded: %v", res.TxID, err)),
		}); err != nil {
			rl.Error("Failed to mark failed", zap.Error(err))
		}
		e.saveNow()
		return
	}
	e.saveNow()

	rl.Info("Bought",
		zap.Float64("price", price),
		zap.Float64("quantity", res.Quantity),
		zap.String("tx_id", res.TxID))
	if opened, ok := e.store.Get(rec.Identity); ok {
		e.journalTrade(ctx, models.NewBuyTrade(opened, ev, e.swapper.Simulated()))
	}
}
