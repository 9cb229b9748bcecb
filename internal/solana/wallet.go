package solana

import (
	"context"
	"fmt"
)

// Wallet reads token balances of one owner address.
type Wallet struct {
	rpc   *RPCClient
	owner string
}

// NewWallet binds rpc to the owner address, which must be a valid wallet.
func NewWallet(rpc *RPCClient, owner string) (*Wallet, error) {
	if err := ValidateWallet(owner); err != nil {
		return nil, fmt.Errorf("wallet address: %w", err)
	}
	return &Wallet{rpc: rpc, owner: owner}, nil
}

// Owner returns the wallet address.
func (w *Wallet) Owner() string {
	return w.owner
}

// Balance returns how much of mint the wallet holds.
func (w *Wallet) Balance(ctx context.Context, mint string) (float64, error) {
	bal, err := w.rpc.GetTokenBalance(ctx, w.owner, mint)
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", mint, err)
	}
	return bal.InexactFloat64(), nil
}
