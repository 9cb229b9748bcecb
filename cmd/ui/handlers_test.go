package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/database"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
)

type MockTrades struct {
	mock.Mock
}

func (m *MockTrades) Trades(ctx context.Context, limit int) ([]models.Trade, error) {
	args := m.Called(ctx, limit)
	var out []models.Trade
	if v := args.Get(0); v != nil {
		out = v.([]models.Trade)
	}
	return out, args.Error(1)
}

func (m *MockTrades) SellStats(ctx context.Context, since time.Time) (database.Stats, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(database.Stats), args.Error(1)
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coins.json")
	st := store.New(store.NewFilePersister(path), zap.NewNop())
	require.NoError(t, st.Upsert(store.AssetUpdate{Identity: "MintHold", Symbol: store.Ptr("HLD")}))
	require.NoError(t, st.Upsert(store.AssetUpdate{
		Identity: "MintOpen", Symbol: store.Ptr("OPN"),
		Status: store.Ptr(models.StatusTarget), DecisionPrice: store.Ptr(2.0),
	}))
	_, err := st.Open("MintOpen", store.OpenParams{EntryPrice: 2, Quantity: 5, TxID: "tx"})
	require.NoError(t, err)
	require.NoError(t, st.Upsert(store.AssetUpdate{
		Identity:   "MintOpen",
		Indicators: &models.IndicatorSnapshot{Price: 2.5, WindowSize: 30},
	}))
	require.NoError(t, st.Save())
	return path
}

func TestTradesHandler(t *testing.T) {
	trades := new(MockTrades)
	trades.On("Trades", mock.Anything, defaultTradeLimit).Return([]models.Trade{{EventID: "ev-1", Type: models.SideBuy}}, nil).Once()
	trades.On("Trades", mock.Anything, 5).Return(nil, nil).Once()
	router := newRouter(NewAPIHandler(zap.NewNop(), trades, ""))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ev-1", got[0].EventID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	trades.AssertExpectations(t)
}

func TestStatisticsHandler(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	trades := new(MockTrades)
	trades.On("SellStats", mock.Anything, now.Add(-24*time.Hour)).Return(database.Stats{TotalTrades: 1, ProfitableTrades: 1, WinRate: 1, TotalProfit: 3}, nil).Once()
	trades.On("SellStats", mock.Anything, time.Time{}).Return(database.Stats{TotalTrades: 4, ProfitableTrades: 1, WinRate: 0.25, TotalProfit: -2}, nil).Once()

	h := NewAPIHandler(zap.NewNop(), trades, "")
	h.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.Since24h.TotalTrades)
	assert.Equal(t, int64(4), got.AllTime.TotalTrades)
	assert.Equal(t, 0.25, got.AllTime.WinRate)
	trades.AssertExpectations(t)
}

func TestStatisticsHandler_JournalError(t *testing.T) {
	trades := new(MockTrades)
	trades.On("SellStats", mock.Anything, mock.Anything).Return(database.Stats{}, errors.New("locked")).Once()

	rec := httptest.NewRecorder()
	newRouter(NewAPIHandler(zap.NewNop(), trades, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPositionsAndStatusHandlers(t *testing.T) {
	router := newRouter(NewAPIHandler(zap.NewNop(), new(MockTrades), writeSnapshot(t)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var positions []PositionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "MintOpen", positions[0].Identity)
	assert.Equal(t, 5.0, positions[0].Quantity)
	assert.Equal(t, 2.5, positions[0].LastPrice)
	assert.InDelta(t, 25.0, positions[0].PnLPercent, 1e-9)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Tracked)
	assert.Equal(t, 1, status.ByStatus["hold"])
	assert.Equal(t, 1, status.ByStatus["open"])
}

func TestPositionsHandler_MissingSnapshot(t *testing.T) {
	router := newRouter(NewAPIHandler(zap.NewNop(), new(MockTrades), filepath.Join(t.TempDir(), "none.json")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
