package trader

import (
	"context"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
)

// reconcileOnce checks every open position against the wallet. Positions with
// a swap in flight are left for the next pass, and a failed balance lookup
// never changes a position.
func (e *Engine) reconcileOnce(ctx context.Context) {
	l := e.logger.Named("reconcile")
	if e.wallet == nil {
		l.Debug("No wallet configured, skipping reconciliation")
		return
	}

	open := e.store.FilterByStatus(models.StatusOpen)
	closed := 0
	for _, rec := range open {
		if ctx.Err() != nil {
			return
		}
		if e.reconcileRecord(ctx, l, rec) {
			closed++
		}
	}

	if closed > 0 {
		e.saveNow()
	}
	e.refreshPositionGauge()
	l.Debug("Reconciliation complete", zap.Int("open_positions", len(open)), zap.Int("closed", closed))
}

// reconcileRecord checks one position while holding its selling guard, so no
// sell can land between the balance lookup and the ledger update. It reports
// whether the position was closed.
func (e *Engine) reconcileRecord(ctx context.Context, l *zap.Logger, rec models.AssetRecord) bool {
	rl := l.With(zap.String("identity", rec.Identity), zap.String("symbol", rec.Symbol))

	release, ok := e.guards.TryAcquire(rec.Identity, Selling)
	if !ok {
		rl.Debug("Swap in flight, skipping")
		return false
	}
	defer release()

	balance, err := e.wallet.Balance(ctx, rec.Identity)
	if err != nil {
		rl.Warn("Wallet balance unavailable", zap.Error(err))
		return false
	}

	outcome, ev, err := e.store.Reconcile(rec.Identity, balance)
	if err != nil {
		rl.Error("Reconciliation failed", zap.Error(err))
		return false
	}
	if outcome != store.ReconcileClosed || ev == nil {
		return false
	}

	e.metrics.Exits.WithLabelValues(store.CloseReasonExternal).Inc()
	if after, ok := e.store.Get(rec.Identity); ok {
		e.journalTrade(ctx, models.NewSellTrade(after, *ev, e.swapper.Simulated()))
	}
	return true
}
