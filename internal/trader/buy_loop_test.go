package trader

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/swap"
)

func (env *testEnv) noDiscovery() {
	env.market.On("GetTrendingTokens", mock.Anything, "5m").Return([]models.Candidate{}, nil)
}

func TestBuyIteration_SignalToOpenPosition(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.track(t, id, models.StatusHold)

	closes := ramp(30, 2.0, -0.02)
	last := closes[len(closes)-1]
	env.market.On("GetChart", mock.Anything, id, "1m").Return(candlesFrom(closes), nil).Once()
	env.market.On("GetLivePrice", mock.Anything, id).Return(&models.LivePrice{Price: last, Liquidity: 50000}, nil).Once()
	env.swapper.On("ExecuteSwap", mock.Anything, id, swap.Buy, 1.0).
		Return(&swap.Result{TxID: "tx-buy", Price: last, Quantity: 10}, nil).Once()

	env.engine.runBuyIteration(context.Background())

	rec, ok := env.store.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusOpen, rec.Status)
	require.NotNil(t, rec.Position)
	assert.InDelta(t, last, rec.Position.EntryPrice, 1e-9)
	assert.Equal(t, 10.0, rec.Position.Quantity)
	assert.InDelta(t, last*0.95, rec.Position.StopLoss, 1e-9)
	assert.InDelta(t, last, rec.DecisionPrice, 1e-9)
	require.NotNil(t, rec.Indicators)
	assert.Equal(t, 0.0, rec.Indicators.RSI)
	require.Len(t, rec.BuyHistory, 1)
	assert.Equal(t, "tx-buy", rec.BuyHistory[0].TxID)

	trades := env.journal.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.SideBuy, trades[0].Type)
	assert.Equal(t, rec.BuyHistory[0].ID, trades[0].EventID)
	assert.True(t, trades[0].IsSimulation)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.engine.metrics.Swaps.WithLabelValues("buy", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.engine.metrics.OpenPositions))
	env.market.AssertExpectations(t)
	env.swapper.AssertExpectations(t)
}

func TestBuyIteration_ShortChartStaysHold(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.track(t, id, models.StatusHold)

	env.market.On("GetChart", mock.Anything, id, "1m").Return(candlesFrom(ramp(19, 2.0, -0.02)), nil).Once()

	env.engine.runBuyIteration(context.Background())

	rec, _ := env.store.Get(id)
	assert.Equal(t, models.StatusHold, rec.Status)
	assert.Nil(t, rec.Indicators)
	assert.Len(t, rec.ChartWindow, 19)
	env.swapper.AssertNotCalled(t, "ExecuteSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyIteration_NoSignalStoresIndicators(t *testing.T) {
	cfg := testConfig()
	cfg.Trading.BuyLogicMode = config.BuyLogicStrict
	env := newTestEnv(t, cfg)
	env.noDiscovery()
	id := mint(1)
	env.track(t, id, models.StatusHold)

	// flat chart: RSI 50 and no rising trend
	env.market.On("GetChart", mock.Anything, id, "1m").Return(candlesFrom(flat(30, 1.0)), nil).Once()

	env.engine.runBuyIteration(context.Background())

	rec, _ := env.store.Get(id)
	assert.Equal(t, models.StatusHold, rec.Status)
	require.NotNil(t, rec.Indicators)
	assert.Equal(t, 50.0, rec.Indicators.RSI)
	env.swapper.AssertNotCalled(t, "ExecuteSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyIteration_ChartFailureLeavesStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.track(t, id, models.StatusFailed)

	env.market.On("GetChart", mock.Anything, id, "1m").Return(nil, errors.New("gateway timeout")).Once()

	env.engine.runBuyIteration(context.Background())

	assert.Equal(t, models.StatusFailed, env.status(t, id))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.engine.metrics.ChartFetchFailures))
}

func TestBuyIteration_NoSlotsNoExecution(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	for i := 1; i <= 5; i++ {
		env.open(t, mint(i), 1, 1)
	}
	target := mint(50)
	env.target(t, target, 1)

	env.engine.runBuyIteration(context.Background())

	assert.Equal(t, models.StatusTarget, env.status(t, target))
	assert.Equal(t, 5, env.store.CountByStatus(models.StatusOpen))
	env.market.AssertNotCalled(t, "GetLivePrice", mock.Anything, mock.Anything)
	env.swapper.AssertNotCalled(t, "ExecuteSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyIteration_TargetsCappedBySlots(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	for i := 1; i <= 4; i++ {
		env.open(t, mint(i), 1, 1)
	}
	first, second := mint(50), mint(51)
	env.target(t, first, 1)
	env.target(t, second, 1)

	env.market.On("GetLivePrice", mock.Anything, first).Return(&models.LivePrice{Price: 1, Liquidity: 50000}, nil).Once()
	env.swapper.On("ExecuteSwap", mock.Anything, first, swap.Buy, 1.0).
		Return(&swap.Result{TxID: "tx-1", Price: 1, Quantity: 1}, nil).Once()

	env.engine.runBuyIteration(context.Background())

	assert.Equal(t, models.StatusOpen, env.status(t, first))
	assert.Equal(t, models.StatusTarget, env.status(t, second))
	assert.Equal(t, 5, env.store.CountByStatus(models.StatusOpen))
	env.swapper.AssertNumberOfCalls(t, "ExecuteSwap", 1)
}

func TestBuyIteration_PriceDrift(t *testing.T) {
	tests := []struct {
		name  string
		live  float64
		want  models.Status
		swaps int
	}{
		{"DriftedBackToHold", 1.05, models.StatusHold, 0},
		{"WithinToleranceExecutes", 1.01, models.StatusOpen, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.noDiscovery()
			id := mint(1)
			env.target(t, id, 1.0)

			env.market.On("GetLivePrice", mock.Anything, id).Return(&models.LivePrice{Price: tt.live, Liquidity: 50000}, nil).Once()
			env.swapper.On("ExecuteSwap", mock.Anything, id, swap.Buy, 1.0).
				Return(&swap.Result{TxID: "tx", Quantity: 1}, nil).Maybe()

			env.engine.runBuyIteration(context.Background())

			assert.Equal(t, tt.want, env.status(t, id))
			env.swapper.AssertNumberOfCalls(t, "ExecuteSwap", tt.swaps)
			if tt.want == models.StatusOpen {
				rec, _ := env.store.Get(id)
				// no fill price from the executor: the live quote is the entry
				assert.Equal(t, tt.live, rec.Position.EntryPrice)
			}
		})
	}
}

func TestBuyIteration_LivePriceErrorKeepsTarget(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.target(t, id, 1.0)

	env.market.On("GetLivePrice", mock.Anything, id).Return(nil, errors.New("no quote")).Once()

	env.engine.runBuyIteration(context.Background())

	assert.Equal(t, models.StatusTarget, env.status(t, id))
	env.swapper.AssertNotCalled(t, "ExecuteSwap", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuyIteration_SwapFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.target(t, id, 1.0)

	env.market.On("GetLivePrice", mock.Anything, id).Return(&models.LivePrice{Price: 1, Liquidity: 50000}, nil).Once()
	env.swapper.On("ExecuteSwap", mock.Anything, id, swap.Buy, 1.0).Return(nil, errors.New("slippage exceeded")).Once()

	env.engine.runBuyIteration(context.Background())

	rec, _ := env.store.Get(id)
	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Contains(t, rec.LastError, "slippage exceeded")
	assert.Nil(t, rec.Position)
	assert.Empty(t, env.journal.Trades())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.engine.metrics.Swaps.WithLabelValues("buy", "error")))
	assert.False(t, env.engine.Guards().Held(id))
}

func TestBuyIteration_GuardedTargetSkipped(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.target(t, id, 1.0)

	release, ok := env.engine.Guards().TryAcquire(id, Buying)
	require.True(t, ok)
	defer release()

	env.engine.runBuyIteration(context.Background())

	assert.Equal(t, models.StatusTarget, env.status(t, id))
	env.market.AssertNotCalled(t, "GetLivePrice", mock.Anything, mock.Anything)
}

func TestBuyIteration_DiscoveryAndBlacklist(t *testing.T) {
	cfg := testConfig()
	banned := mint(20)
	cfg.Trading.Blacklist = []string{banned}
	env := newTestEnv(t, cfg)
	env.track(t, banned, models.StatusHold)

	good := goodCandidate()
	good.Token.Mint = mint(10)
	scam := goodCandidate()
	scam.Token.Mint = mint(11)
	scam.Token.Symbol = "SCAMCOIN"
	env.market.On("GetTrendingTokens", mock.Anything, "5m").Return([]models.Candidate{good, scam}, nil).Once()
	env.market.On("GetChart", mock.Anything, good.Token.Mint, "1m").Return(nil, errors.New("no chart")).Once()

	env.engine.runBuyIteration(context.Background())

	rec, ok := env.store.Get(good.Token.Mint)
	require.True(t, ok)
	assert.Equal(t, models.StatusHold, rec.Status)
	assert.Equal(t, "WIF", rec.Symbol)
	assert.Equal(t, "dogwifhat", rec.Name)
	assert.Equal(t, "raydium", rec.Market)

	_, tracked := env.store.Get(scam.Token.Mint)
	assert.False(t, tracked)

	assert.Equal(t, models.StatusBlacklist, env.status(t, banned))
	env.market.AssertNotCalled(t, "GetChart", mock.Anything, banned, mock.Anything)
	env.market.AssertExpectations(t)
}

func TestBuyIteration_DiscoveryFailureStillEvaluates(t *testing.T) {
	env := newTestEnv(t, nil)
	id := mint(1)
	env.track(t, id, models.StatusHold)

	env.market.On("GetTrendingTokens", mock.Anything, "5m").Return(nil, errors.New("rate limited")).Once()
	env.market.On("GetChart", mock.Anything, id, "1m").Return(candlesFrom(ramp(19, 1, 0.01)), nil).Once()

	env.engine.runBuyIteration(context.Background())

	env.market.AssertExpectations(t)
}

func TestBuyIteration_LandedSwapWithoutQuantityOpensOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.noDiscovery()
	id := mint(1)
	env.target(t, id, 0.5)

	env.market.On("GetLivePrice", mock.Anything, id).Return(&models.LivePrice{Price: 0.5, Liquidity: 50000}, nil).Once()
	env.swapper.On("ExecuteSwap", mock.Anything, id, swap.Buy, 1.0).
		Return(&swap.Result{TxID: "tx-landed", Price: 0.5, Quantity: 0}, nil).Once()

	env.engine.runBuyIteration(context.Background())
	env.engine.runBuyIteration(context.Background())

	rec, _ := env.store.Get(id)
	assert.Equal(t, models.StatusOpen, rec.Status)
	require.NotNil(t, rec.Position)
	assert.Equal(t, 2.0, rec.Position.Quantity, "swap amount over fill price")
	assert.Equal(t, "tx-landed", rec.Position.TxID)
	env.swapper.AssertNumberOfCalls(t, "ExecuteSwap", 1)
	require.Len(t, env.journal.Trades(), 1)
}
