package swap

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
)

// BridgeExecutor hands swaps to an HTTP sidecar that owns the keypair,
// builds, signs and submits the transaction.
type BridgeExecutor struct {
	client      *resty.Client
	payer       string
	slippage    decimal.Decimal
	priorityFee decimal.Decimal
	logger      *zap.Logger
}

var _ Executor = (*BridgeExecutor)(nil)

type bridgeRequest struct {
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	Amount      decimal.Decimal `json:"amount"`
	Slippage    decimal.Decimal `json:"slippage"`
	PriorityFee decimal.Decimal `json:"priorityFee"`
	Payer       string          `json:"payer"`
}

type bridgeResponse struct {
	TxID      string          `json:"txid"`
	Price     decimal.Decimal `json:"price"`
	OutAmount decimal.Decimal `json:"outAmount"`
	Error     string          `json:"error,omitempty"`
}

// NewBridgeExecutor creates an executor posting to cfg.BridgeURL.
func NewBridgeExecutor(cfg *config.Swap, payer string, logger *zap.Logger) *BridgeExecutor {
	client := resty.New().
		SetBaseURL(cfg.BridgeURL).
		SetHeader("Content-Type", "application/json")

	return &BridgeExecutor{
		client:      client,
		payer:       payer,
		slippage:    decimal.NewFromFloat(cfg.Slippage),
		priorityFee: decimal.NewFromFloat(cfg.PriorityFee),
		logger:      logger.Named("bridge-swap"),
	}
}

// Simulated is always false.
func (b *BridgeExecutor) Simulated() bool { return false }

// ExecuteSwap submits one swap. Swaps are never retried here: a timed out
// request may still have landed on chain.
func (b *BridgeExecutor) ExecuteSwap(ctx context.Context, identity string, dir Direction, amount float64) (*Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	in, out := mints(identity, dir)
	reqBody := bridgeRequest{
		InputMint:   in,
		OutputMint:  out,
		Amount:      decimal.NewFromFloat(amount),
		Slippage:    b.slippage,
		PriorityFee: b.priorityFee,
		Payer:       b.payer,
	}

	var body bridgeResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&body).
		SetError(&body).
		Post("/swap")
	if err != nil {
		return nil, fmt.Errorf("bridge %s %s: %w", dir, identity, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bridge %s %s: status %s: %s", dir, identity, resp.Status(), body.Error)
	}
	if body.TxID == "" {
		return nil, fmt.Errorf("bridge %s %s: response has no txid", dir, identity)
	}

	res := &Result{
		TxID:  body.TxID,
		Price: body.Price.InexactFloat64(),
	}
	if dir == Buy {
		if !body.OutAmount.IsPositive() {
			return nil, fmt.Errorf("%w: bridge buy %s tx %s", ErrNoFill, identity, body.TxID)
		}
		res.Quantity = body.OutAmount.InexactFloat64()
	} else {
		res.Quantity = amount
	}

	b.logger.Info("Swap submitted",
		zap.String("identity", identity),
		zap.String("direction", string(dir)),
		zap.String("amount", reqBody.Amount.String()),
		zap.String("tx_id", res.TxID))
	return res, nil
}
