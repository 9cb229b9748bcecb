package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// RPCClient performs JSON-RPC 2.0 calls against a Solana node.
type RPCClient struct {
	endpoint  string
	client    *resty.Client
	logger    *zap.Logger
	requestID atomic.Uint64
}

// ClientOption configures RPCClient.
type ClientOption func(*resty.Client)

// WithTimeout sets the HTTP timeout of a single attempt.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryCount(n)
	}
}

// WithRetryDelay sets the initial and maximum retry delay.
func WithRetryDelay(initial, max time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryWaitTime(initial).SetRetryMaxWaitTime(max)
	}
}

// NewRPCClient creates a new Solana RPC client for endpoint.
func NewRPCClient(endpoint string, logger *zap.Logger, opts ...ClientOption) *RPCClient {
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultMaxRetries).
		SetRetryWaitTime(DefaultRetryDelay).
		SetRetryMaxWaitTime(DefaultMaxDelay).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	for _, opt := range opts {
		opt(client)
	}

	return &RPCClient{
		endpoint: endpoint,
		client:   client,
		logger:   logger.Named("solana-rpc"),
	}
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call. Transport failures, 429 and 5xx responses are
// retried by the underlying client; RPC errors are not.
func (c *RPCClient) call(ctx context.Context, method string, params []any, result any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	var rpcResp rpcResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&rpcResp).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("%s: http request: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: unexpected status %s: %s", method, resp.Status(), resp.String())
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", method, err)
		}
	}
	return nil
}

type tokenAccountsResult struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount         string `json:"amount"`
							Decimals       int    `json:"decimals"`
							UIAmountString string `json:"uiAmountString"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// GetTokenBalance returns the total UI amount of mint held by owner across all
// of its token accounts. An owner without an account for mint holds zero.
func (c *RPCClient) GetTokenBalance(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	params := []any{
		owner,
		map[string]string{"mint": mint},
		map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
	}

	var result tokenAccountsResult
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, acc := range result.Value {
		amount := acc.Account.Data.Parsed.Info.TokenAmount
		if amount.UIAmountString == "" {
			continue
		}
		v, err := decimal.NewFromString(amount.UIAmountString)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse balance of account %s: %w", acc.Pubkey, err)
		}
		total = total.Add(v)
	}

	c.logger.Debug("Fetched token balance",
		zap.String("mint", mint),
		zap.Int("accounts", len(result.Value)),
		zap.String("balance", total.String()))
	return total, nil
}
