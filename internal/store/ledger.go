package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// CloseReasonExternal marks positions closed because the wallet no longer holds them.
const CloseReasonExternal = "external"

// OpenParams are the fill terms of an executed buy.
type OpenParams struct {
	EntryPrice float64
	Quantity   float64
	TxID       string
}

// CloseParams are the fill terms of an executed sell.
type CloseParams struct {
	ExitPrice float64
	TxID      string
	Quantity  float64 // defaults to the position quantity
	Reason    string
}

// ReconcileOutcome describes what a wallet reconciliation did to a position.
type ReconcileOutcome string

const (
	ReconcileUnchanged ReconcileOutcome = "unchanged"
	ReconcileShrunk    ReconcileOutcome = "shrunk"
	ReconcileClosed    ReconcileOutcome = "closed"
)

// Open records an executed buy: the asset becomes open with a fresh position
// whose high-water mark is the entry price and whose stop sits the trailing
// percentage below it.
func (s *Store) Open(identity string, p OpenParams) (models.TradeEvent, error) {
	if p.EntryPrice <= 0 || p.Quantity <= 0 {
		return models.TradeEvent{}, fmt.Errorf("%w: entry price and quantity must be positive", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		return models.TradeEvent{}, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	if rec.Status == models.StatusOpen {
		return models.TradeEvent{}, fmt.Errorf("%w: %s", ErrAlreadyOpen, identity)
	}
	if !rec.Status.CanTransition(models.StatusOpen) {
		return models.TradeEvent{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, models.StatusOpen)
	}

	now := s.clock.Now()
	pos := &models.Position{
		EntryPrice:       p.EntryPrice,
		Quantity:         p.Quantity,
		HighestPriceSeen: p.EntryPrice,
		StopLoss:         p.EntryPrice * (1 - s.trailingStopPct/100),
		TxID:             p.TxID,
		OpenedAt:         now,
		LastValidated:    now,
	}
	if s.trailingTakeProfitPct > 0 {
		pos.TakeProfit = p.EntryPrice * (1 + s.trailingTakeProfitPct/100)
	}

	ev := models.TradeEvent{
		ID:        newEventID(),
		Quantity:  p.Quantity,
		Price:     p.EntryPrice,
		TxID:      p.TxID,
		Timestamp: now,
	}

	rec.Position = pos
	rec.Status = models.StatusOpen
	rec.LastError = ""
	rec.BuyHistory = append(rec.BuyHistory, ev)
	rec.LastUpdated = now
	s.markDirtyLocked(now)

	s.logger.Info("Opened position",
		zap.String("identity", identity),
		zap.String("symbol", rec.Symbol),
		zap.Float64("entry_price", p.EntryPrice),
		zap.Float64("quantity", p.Quantity),
		zap.Float64("stop_loss", pos.StopLoss))
	return ev, nil
}

// Close records an executed sell and clears the position. Closing an asset
// without a position is a no-op and returns a nil event.
func (s *Store) Close(identity string, p CloseParams) (*models.TradeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	if rec.Position == nil {
		s.logger.Debug("No position to close", zap.String("identity", identity))
		return nil, nil
	}

	ev := s.closeLocked(rec, p)
	s.logger.Info("Closed position",
		zap.String("identity", identity),
		zap.String("symbol", rec.Symbol),
		zap.String("reason", ev.CloseReason),
		zap.Float64("pnl", ev.PnL),
		zap.Float64("pnl_pct", ev.PnLPercent))
	return &ev, nil
}

func (s *Store) closeLocked(rec *models.AssetRecord, p CloseParams) models.TradeEvent {
	now := s.clock.Now()
	pos := rec.Position

	qty := p.Quantity
	if qty <= 0 {
		qty = pos.Quantity
	}
	pnl := (p.ExitPrice - pos.EntryPrice) * qty
	pnlPct := 0.0
	if pos.EntryPrice != 0 {
		pnlPct = (p.ExitPrice - pos.EntryPrice) / pos.EntryPrice * 100
	}

	ev := models.TradeEvent{
		ID:          newEventID(),
		Quantity:    qty,
		Price:       p.ExitPrice,
		TxID:        p.TxID,
		Timestamp:   now,
		PnL:         pnl,
		PnLPercent:  pnlPct,
		CloseReason: p.Reason,
	}

	rec.SellHistory = append(rec.SellHistory, ev)
	rec.Position = nil
	rec.Status = models.StatusClosed
	rec.LastUpdated = now
	s.markDirtyLocked(now)
	return ev
}

// TrackHigh raises the position's high-water mark to price when price is a new
// high and tightens the stop to the trailing distance below it. It returns a
// copy of the resulting position.
func (s *Store) TrackHigh(identity string, price float64) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	if rec.Position == nil {
		return nil, fmt.Errorf("%w: %s has no position", ErrInvalidInput, identity)
	}

	pos := rec.Position
	if price > pos.HighestPriceSeen {
		pos.HighestPriceSeen = price
		if trailing := price * (1 - s.trailingStopPct/100); trailing > pos.StopLoss {
			pos.StopLoss = trailing
		}
		now := s.clock.Now()
		rec.LastUpdated = now
		s.markDirtyLocked(now)
	}

	out := *pos
	return &out, nil
}

// Reconcile checks an open position against the wallet balance observed on
// chain. A zero balance force-closes the position as a total loss; a smaller
// balance shrinks the recorded quantity. The quantity never grows from here.
func (s *Store) Reconcile(identity string, walletBalance float64) (ReconcileOutcome, *models.TradeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok {
		return ReconcileUnchanged, nil, fmt.Errorf("%w: %s", ErrNotFound, identity)
	}
	if rec.Status != models.StatusOpen || rec.Position == nil {
		return ReconcileUnchanged, nil, nil
	}

	now := s.clock.Now()
	pos := rec.Position
	l := s.logger.With(zap.String("identity", identity), zap.String("symbol", rec.Symbol))

	switch {
	case walletBalance <= 0:
		ev := s.closeLocked(rec, CloseParams{
			ExitPrice: 0,
			Quantity:  pos.Quantity,
			Reason:    CloseReasonExternal,
		})
		// a zero-price exit is a -100% loss by definition
		ev.PnLPercent = -100
		rec.SellHistory[len(rec.SellHistory)-1] = ev
		l.Warn("Wallet holds none of an open position, closed as external",
			zap.Float64("recorded_quantity", ev.Quantity), zap.Float64("pnl", ev.PnL))
		return ReconcileClosed, &ev, nil

	case walletBalance < pos.Quantity:
		l.Warn("Wallet balance below recorded quantity, shrinking position",
			zap.Float64("recorded_quantity", pos.Quantity), zap.Float64("wallet_balance", walletBalance))
		pos.Quantity = walletBalance
		pos.LastValidated = now
		rec.LastUpdated = now
		s.markDirtyLocked(now)
		return ReconcileShrunk, nil, nil
	}

	pos.LastValidated = now
	return ReconcileUnchanged, nil, nil
}
