// Package swap executes token swaps against SOL, either simulated at the live
// price or through an external signing bridge.
package swap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// SOLMint is the wrapped SOL mint every swap is quoted against.
const SOLMint = "So11111111111111111111111111111111111111112"

// Direction of a swap relative to the traded token.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// ErrInvalidAmount is returned for non-positive swap amounts.
var ErrInvalidAmount = errors.New("invalid swap amount")

// ErrNoFill is returned when a buy was submitted but the bridge did not
// report how much it received.
var ErrNoFill = errors.New("swap reported no fill amount")

// Result describes an executed swap. Quantity is the token amount bought or sold.
type Result struct {
	TxID     string
	Price    float64
	Quantity float64
}

// Executor executes swaps. For Buy the amount is in SOL, for Sell it is the
// token quantity to sell.
type Executor interface {
	ExecuteSwap(ctx context.Context, identity string, dir Direction, amount float64) (*Result, error)
	Simulated() bool
}

// PriceSource supplies live token prices.
type PriceSource interface {
	GetLivePrice(ctx context.Context, mint string) (*models.LivePrice, error)
}

// NewExecutor builds the executor selected by cfg.Mode.
func NewExecutor(cfg *config.Swap, payer string, prices PriceSource, logger *zap.Logger) (Executor, error) {
	switch cfg.Mode {
	case config.SwapModePaper, "":
		return NewPaperExecutor(prices, logger), nil
	case config.SwapModeBridge:
		if cfg.BridgeURL == "" {
			return nil, fmt.Errorf("swap mode %q needs a bridge url", cfg.Mode)
		}
		if payer == "" {
			return nil, fmt.Errorf("swap mode %q needs a wallet address", cfg.Mode)
		}
		return NewBridgeExecutor(cfg, payer, logger), nil
	default:
		return nil, fmt.Errorf("unknown swap mode %q", cfg.Mode)
	}
}

func mints(identity string, dir Direction) (in, out string) {
	if dir == Buy {
		return SOLMint, identity
	}
	return identity, SOLMint
}
