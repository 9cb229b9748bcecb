package trader

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/swap"
)

// MockMarket is a mock implementation of tracker.Client.
type MockMarket struct {
	mock.Mock
}

func (m *MockMarket) GetTrendingTokens(ctx context.Context, timeframe string) ([]models.Candidate, error) {
	args := m.Called(ctx, timeframe)
	var out []models.Candidate
	if v := args.Get(0); v != nil {
		out = v.([]models.Candidate)
	}
	return out, args.Error(1)
}

func (m *MockMarket) GetChart(ctx context.Context, mint, interval string) ([]models.Candle, error) {
	args := m.Called(ctx, mint, interval)
	var out []models.Candle
	if v := args.Get(0); v != nil {
		out = v.([]models.Candle)
	}
	return out, args.Error(1)
}

func (m *MockMarket) GetLivePrice(ctx context.Context, mint string) (*models.LivePrice, error) {
	args := m.Called(ctx, mint)
	var out *models.LivePrice
	if v := args.Get(0); v != nil {
		out = v.(*models.LivePrice)
	}
	return out, args.Error(1)
}

// MockSwap is a mock implementation of swap.Executor.
type MockSwap struct {
	mock.Mock
	simulated bool
}

func (m *MockSwap) ExecuteSwap(ctx context.Context, identity string, dir swap.Direction, amount float64) (*swap.Result, error) {
	args := m.Called(ctx, identity, dir, amount)
	var out *swap.Result
	if v := args.Get(0); v != nil {
		out = v.(*swap.Result)
	}
	return out, args.Error(1)
}

func (m *MockSwap) Simulated() bool { return m.simulated }

// MockWallet is a mock implementation of BalanceSource.
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Balance(ctx context.Context, mint string) (float64, error) {
	args := m.Called(ctx, mint)
	return args.Get(0).(float64), args.Error(1)
}

type fakeJournal struct {
	mu     sync.Mutex
	trades []*models.Trade
}

func (j *fakeJournal) Record(_ context.Context, t *models.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, t)
	return nil
}

func (j *fakeJournal) Trades() []*models.Trade {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*models.Trade(nil), j.trades...)
}

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.Trading{
			MaxActivePositions:          5,
			BuyLoopDelay:                10 * time.Millisecond,
			SellLoopInterval:            10 * time.Millisecond,
			ReconcileInterval:           10 * time.Millisecond,
			HeartbeatInterval:           10 * time.Millisecond,
			TrendingTimeframe:           "5m",
			ChartInterval:               "1m",
			TrailingStopPercent:         5,
			RsiBuyThreshold:             35,
			RsiSellThreshold:            70,
			BuyLogicMode:                config.BuyLogicLoose,
			MaxAllowedPriceDriftPercent: 2,
			MinLiveLiquidity:            1000,
			SellConcurrency:             4,
		},
		Filters: config.Filters{
			MinLiquidity:    20000,
			MinMarketCap:    50000,
			MaxRiskScore:    5,
			Markets:         []string{"raydium", "orca"},
			ExcludedSymbols: []string{"SCAM", "USDC"},
		},
		Swap: config.Swap{Mode: config.SwapModePaper, Amount: 1},
	}
}

type testEnv struct {
	engine  *Engine
	store   *store.Store
	market  *MockMarket
	swapper *MockSwap
	wallet  *MockWallet
	journal *fakeJournal
	cfg     *config.Config
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	st := store.New(
		store.NewFilePersister(filepath.Join(t.TempDir(), "coins.json")),
		zap.NewNop(),
		store.WithTrailing(cfg.Trading.TrailingStopPercent, cfg.Trading.TrailingTakeProfitPercent),
	)
	env := &testEnv{
		store:   st,
		market:  new(MockMarket),
		swapper: &MockSwap{simulated: true},
		wallet:  new(MockWallet),
		journal: &fakeJournal{},
		cfg:     cfg,
	}
	env.engine = NewEngine(zap.NewNop(), cfg, st, Deps{
		Market:  env.market,
		Swap:    env.swapper,
		Wallet:  env.wallet,
		Journal: env.journal,
	})
	return env
}

// track adds a record in the given pre-trade status.
func (env *testEnv) track(t *testing.T, id string, status models.Status) {
	t.Helper()
	u := store.AssetUpdate{Identity: id, Symbol: store.Ptr("SYM-" + id[:4])}
	if status != models.StatusHold {
		u.Status = store.Ptr(status)
	}
	require.NoError(t, env.store.Upsert(u))
}

// target adds a record awaiting execution at decisionPrice.
func (env *testEnv) target(t *testing.T, id string, decisionPrice float64) {
	t.Helper()
	require.NoError(t, env.store.Upsert(store.AssetUpdate{
		Identity:      id,
		Symbol:        store.Ptr("SYM-" + id[:4]),
		Status:        store.Ptr(models.StatusTarget),
		DecisionPrice: store.Ptr(decisionPrice),
	}))
}

// open adds a record holding an open position.
func (env *testEnv) open(t *testing.T, id string, entry, qty float64) {
	t.Helper()
	env.target(t, id, entry)
	_, err := env.store.Open(id, store.OpenParams{EntryPrice: entry, Quantity: qty, TxID: "tx-open-" + id})
	require.NoError(t, err)
}

func (env *testEnv) status(t *testing.T, id string) models.Status {
	t.Helper()
	rec, ok := env.store.Get(id)
	require.True(t, ok, "record %s exists", id)
	return rec.Status
}

// mint returns a valid base58 mint address derived from n.
func mint(n int) string {
	raw := make([]byte, 32)
	raw[0] = byte(n)
	raw[1] = byte(n >> 8)
	raw[31] = 7
	return base58.Encode(raw)
}

func candlesFrom(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Open: c, Close: c, High: c, Low: c, Volume: 1, Time: int64(i) * 60}
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
