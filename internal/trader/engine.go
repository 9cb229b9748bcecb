package trader

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/swap"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/tracker"
)

// BalanceSource reports how much of a token the trading wallet holds.
type BalanceSource interface {
	Balance(ctx context.Context, mint string) (float64, error)
}

// TradeJournal records executed trades.
type TradeJournal interface {
	Record(ctx context.Context, trade *models.Trade) error
}

// Deps are the engine's external collaborators. Wallet and Journal are
// optional; without a wallet reconciliation is disabled.
type Deps struct {
	Market   tracker.Client
	Swap     swap.Executor
	Wallet   BalanceSource
	Journal  TradeJournal
	Registry *prometheus.Registry
}

// Engine runs the buy, sell and reconciliation loops over one asset store.
type Engine struct {
	UUID      string
	Name      string
	StartTime time.Time

	logger  *zap.Logger
	cfg     *config.Config
	store   *store.Store
	market  tracker.Client
	swapper swap.Executor
	wallet  BalanceSource
	journal TradeJournal

	guards   *Guards
	policy   BuyPolicy
	metrics  *Metrics
	registry *prometheus.Registry
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, st *store.Store, deps Deps) *Engine {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Engine{
		UUID:      uuid.NewString(),
		Name:      "solanatracker-trade-bot",
		StartTime: time.Now(),
		logger:    logger,
		cfg:       cfg,
		store:     st,
		market:    deps.Market,
		swapper:   deps.Swap,
		wallet:    deps.Wallet,
		journal:   deps.Journal,
		guards:    NewGuards(),
		policy:    PolicyFor(cfg.Trading.BuyLogicMode),
		metrics:   NewMetrics(reg),
		registry:  reg,
	}
}

// Guards exposes the in-flight guard sets.
func (e *Engine) Guards() *Guards {
	return e.guards
}

// Run starts every loop and blocks until ctx is done and all loops have returned.
func (e *Engine) Run(ctx context.Context) {
	tc := e.cfg.Trading
	e.logger.Info("Starting trading engine",
		zap.String("uuid", e.UUID),
		zap.String("buy_policy", e.policy.Name()),
		zap.Int("max_active_positions", tc.MaxActivePositions),
		zap.Bool("simulated", e.swapper.Simulated()))

	e.applyBlacklist()
	e.safely(ctx, "reconcile", e.reconcileOnce)

	var wg sync.WaitGroup
	loops := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context)
	}{
		{"buy-loop", tc.BuyLoopDelay, e.runBuyIteration},
		{"sell-loop", tc.SellLoopInterval, e.runSellIteration},
		{"reconcile", tc.ReconcileInterval, e.reconcileOnce},
	}
	for _, l := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runLoop(ctx, l.name, l.interval, l.fn)
		}()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		e.store.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		e.heartbeat(ctx)
	}()

	wg.Wait()
	if err := e.store.Save(); err != nil {
		e.logger.Error("Final snapshot write failed", zap.Error(err))
	}
	e.logger.Info("Trading engine stopped")
}

// runLoop runs fn, then waits interval, until ctx is done. Iterations never overlap.
func (e *Engine) runLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	l := e.logger.With(zap.String("loop", name))
	l.Info("Starting loop", zap.Duration("interval", interval))

	for {
		if ctx.Err() != nil {
			l.Info("Stopping loop")
			return
		}
		e.safely(ctx, name, fn)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.Info("Stopping loop")
			return
		case <-timer.C:
		}
	}
}

// safely runs fn and turns a panic into a logged loop error.
func (e *Engine) safely(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.LoopErrors.WithLabelValues(name).Inc()
			e.logger.Error("Recovered from panic", zap.String("loop", name), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn(ctx)
}

func (e *Engine) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Trading.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			open := e.store.CountByStatus(models.StatusOpen)
			e.logger.Info("Heartbeat",
				zap.Int("open_positions", open),
				zap.Int("available_slots", AvailableSlots(e.store, e.cfg.Trading.MaxActivePositions)),
				zap.Int("tracked", e.store.Len()),
				zap.Int("buying", e.guards.Len(Buying)),
				zap.Int("selling", e.guards.Len(Selling)),
				zap.Duration("uptime", time.Since(e.StartTime).Round(time.Second)))
		}
	}
}

// applyBlacklist moves every configured identity to blacklist. Open positions
// keep trading until they close and are blacklisted on a later pass.
func (e *Engine) applyBlacklist() {
	for _, id := range e.cfg.Trading.Blacklist {
		if rec, ok := e.store.Get(id); ok {
			if rec.Status == models.StatusBlacklist {
				continue
			}
			if rec.Status == models.StatusOpen {
				e.logger.Debug("Blacklist deferred until the position closes", zap.String("identity", id))
				continue
			}
		}
		if err := e.store.Upsert(store.AssetUpdate{Identity: id, Status: store.Ptr(models.StatusBlacklist)}); err != nil {
			e.logger.Error("Failed to blacklist asset", zap.String("identity", id), zap.Error(err))
			continue
		}
		e.logger.Info("Blacklisted asset", zap.String("identity", id))
	}
}

// saveNow writes the snapshot immediately for high-value transitions.
func (e *Engine) saveNow() {
	if err := e.store.Save(); err != nil {
		e.logger.Error("Failed to persist asset store", zap.Error(err))
	}
}

// journalTrade appends a trade to the journal. Failures are only logged.
func (e *Engine) journalTrade(ctx context.Context, trade *models.Trade) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, trade); err != nil {
		e.logger.Error("Failed to journal trade",
			zap.String("identity", trade.Identity),
			zap.String("type", trade.Type),
			zap.Error(err))
	}
}

func (e *Engine) refreshPositionGauge() {
	e.metrics.OpenPositions.Set(float64(e.store.CountByStatus(models.StatusOpen)))
}
