package trader

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/indicators"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/swap"
)

// runSellIteration evaluates every open position concurrently and waits for
// all of them. One failing position never affects the others.
func (e *Engine) runSellIteration(ctx context.Context) {
	l := e.logger.Named("sell-loop")
	open := e.store.FilterByStatus(models.StatusOpen)
	e.metrics.OpenPositions.Set(float64(len(open)))
	if len(open) == 0 {
		return
	}
	l.Debug("Sell iteration started", zap.Int("open_positions", len(open)))

	cache := newChartCache(e.market, e.cfg.Trading.ChartInterval, l, e.metrics)

	var g errgroup.Group
	g.SetLimit(e.cfg.Trading.SellConcurrency)
	for _, rec := range open {
		g.Go(func() error {
			e.safely(ctx, "sell-task", func(ctx context.Context) {
				e.evaluateSell(ctx, l, cache, rec)
			})
			return nil
		})
	}
	_ = g.Wait()
	e.refreshPositionGauge()
}

func (e *Engine) evaluateSell(ctx context.Context, l *zap.Logger, cache *chartCache, rec models.AssetRecord) {
	rl := l.With(zap.String("identity", rec.Identity), zap.String("symbol", rec.Symbol))

	if e.guards.HeldFor(rec.Identity, Selling) {
		rl.Debug("Sell already in flight, skipping")
		return
	}
	if rec.Position == nil {
		rl.Warn("Open asset has no position, skipping")
		return
	}

	candles := cache.Get(ctx, rec.Identity)
	if candles == nil {
		e.metrics.Decisions.WithLabelValues("no_data").Inc()
		return
	}
	snap := indicators.Compute(candles)
	if err := e.store.Upsert(store.AssetUpdate{Identity: rec.Identity, ChartWindow: candles, Indicators: snap}); err != nil {
		rl.Error("Failed to store chart", zap.Error(err))
	}
	if snap == nil {
		rl.Debug("Not enough candles for a decision", zap.Int("candles", len(candles)))
		e.metrics.Decisions.WithLabelValues("no_data").Inc()
		return
	}

	pos, err := e.store.TrackHigh(rec.Identity, snap.Price)
	if err != nil {
		rl.Warn("Position vanished before evaluation", zap.Error(err))
		return
	}

	sell, reason := EvaluateSell(snap, *pos, &e.cfg.Trading)
	if !sell {
		e.metrics.Decisions.WithLabelValues("hold").Inc()
		rl.Debug("Holding position",
			zap.Float64("price", snap.Price),
			zap.Float64("stop_loss", pos.StopLoss),
			zap.Float64("highest_price", pos.HighestPriceSeen),
			zap.Float64("pnl_pct", pos.PnLPercent(snap.Price)))
		return
	}
	e.metrics.Decisions.WithLabelValues("sell").Inc()
	rl = rl.With(zap.String("reason", string(reason)))

	live, err := e.market.GetLivePrice(ctx, rec.Identity)
	if err != nil {
		rl.Warn("Live check failed, deferring sell", zap.Error(err))
		return
	}
	if live.Liquidity < e.cfg.Trading.MinLiveLiquidity {
		rl.Warn("Live liquidity too low, deferring sell",
			zap.Float64("liquidity", live.Liquidity),
			zap.Float64("min_liquidity", e.cfg.Trading.MinLiveLiquidity))
		return
	}

	release, ok := e.guards.TryAcquire(rec.Identity, Selling)
	if !ok {
		rl.Debug("Swap already in flight, skipping")
		return
	}
	defer release()

	res, err := e.swapper.ExecuteSwap(ctx, rec.Identity, swap.Sell, pos.Quantity)
	if err != nil {
		e.metrics.Swaps.WithLabelValues("sell", "error").Inc()
		rl.Error("Sell swap failed, position stays open", zap.Error(err))
		return
	}
	e.metrics.Swaps.WithLabelValues("sell", "ok").Inc()

	exit := res.Price
	if exit <= 0 {
		exit = live.Price
	}
	ev, err := e.store.Close(rec.Identity, store.CloseParams{
		ExitPrice: exit,
		TxID:      res.TxID,
		Quantity:  res.Quantity,
		Reason:    string(reason),
	})
	if err != nil {
		rl.Error("Failed to close position after swap", zap.String("tx_id", res.TxID), zap.Error(err))
		return
	}
	if ev == nil {
		return
	}
	e.saveNow()
	e.metrics.Exits.WithLabelValues(string(reason)).Inc()

	rl.Info("Sold",
		zap.Float64("exit_price", exit),
		zap.Float64("pnl", ev.PnL),
		zap.Float64("pnl_pct", ev.PnLPercent),
		zap.String("tx_id", res.TxID))
	if closed, ok := e.store.Get(rec.Identity); ok {
		e.journalTrade(ctx, models.NewSellTrade(closed, *ev, e.swapper.Simulated()))
	}
}
