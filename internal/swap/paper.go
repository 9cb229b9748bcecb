package swap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaperExecutor fills every swap at the current live price without touching
// the chain. Buy amounts are treated as quote units.
type PaperExecutor struct {
	prices PriceSource
	logger *zap.Logger
}

var _ Executor = (*PaperExecutor)(nil)

// NewPaperExecutor creates a simulated executor.
func NewPaperExecutor(prices PriceSource, logger *zap.Logger) *PaperExecutor {
	return &PaperExecutor{prices: prices, logger: logger.Named("paper-swap")}
}

// Simulated is always true.
func (p *PaperExecutor) Simulated() bool { return true }

// ExecuteSwap simulates a fill at the live price.
func (p *PaperExecutor) ExecuteSwap(ctx context.Context, identity string, dir Direction, amount float64) (*Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	live, err := p.prices.GetLivePrice(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("paper %s %s: %w", dir, identity, err)
	}

	res := &Result{
		TxID:  "paper-" + uuid.NewString(),
		Price: live.Price,
	}
	if dir == Buy {
		res.Quantity = amount / live.Price
	} else {
		res.Quantity = amount
	}

	p.logger.Info("Simulated swap",
		zap.String("identity", identity),
		zap.String("direction", string(dir)),
		zap.Float64("price", res.Price),
		zap.Float64("quantity", res.Quantity),
		zap.String("tx_id", res.TxID))
	return res, nil
}
