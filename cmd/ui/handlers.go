package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/database"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/store"
)

const defaultTradeLimit = 200

// TradeSource is the read side of the trade journal.
type TradeSource interface {
	Trades(ctx context.Context, limit int) ([]models.Trade, error)
	SellStats(ctx context.Context, since time.Time) (database.Stats, error)
}

var _ TradeSource = (*database.Journal)(nil)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log          *zap.Logger
	trades       TradeSource
	snapshotPath string
	now          func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, trades TradeSource, snapshotPath string) *APIHandler {
	return &APIHandler{log: log, trades: trades, snapshotPath: snapshotPath, now: time.Now}
}

// TradesHandler returns the journaled trades, most recent first.
// ?limit=N bounds the result.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := h.trades.Trades(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	h.writeJSON(w, trades)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h database.Stats `json:"since_24h"`
	AllTime  database.Stats `json:"all_time"`
}

// StatisticsHandler returns realized trading statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	day, err := h.trades.SellStats(r.Context(), h.now().Add(-24*time.Hour))
	if err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	all, err := h.trades.SellStats(r.Context(), time.Time{})
	if err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, StatisticsResponse{Since24h: day, AllTime: all})
}

// PositionView is one open position as shown on the dashboard.
type PositionView struct {
	Identity         string    `json:"identity"`
	Symbol           string    `json:"symbol"`
	EntryPrice       float64   `json:"entry_price"`
	Quantity         float64   `json:"quantity"`
	HighestPriceSeen float64   `json:"highest_price_seen"`
	StopLoss         float64   `json:"stop_loss"`
	LastPrice        float64   `json:"last_price,omitempty"`
	PnLPercent       float64   `json:"pnl_pct,omitempty"`
	OpenedAt         time.Time `json:"opened_at"`
}

// PositionsHandler lists open positions from the bot's asset snapshot.
func (h *APIHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := store.ReadSnapshot(h.snapshotPath)
	if err != nil {
		h.log.Error("Failed to read asset snapshot", zap.String("path", h.snapshotPath), zap.Error(err))
		http.Error(w, "Failed to read positions", http.StatusInternalServerError)
		return
	}

	positions := []PositionView{}
	for _, rec := range records {
		if rec.Status != models.StatusOpen || rec.Position == nil {
			continue
		}
		p := rec.Position
		view := PositionView{
			Identity:         rec.Identity,
			Symbol:           rec.Symbol,
			EntryPrice:       p.EntryPrice,
			Quantity:         p.Quantity,
			HighestPriceSeen: p.HighestPriceSeen,
			StopLoss:         p.StopLoss,
			OpenedAt:         p.OpenedAt,
		}
		if rec.Indicators != nil {
			view.LastPrice = rec.Indicators.Price
			view.PnLPercent = p.PnLPercent(rec.Indicators.Price)
		}
		positions = append(positions, view)
	}
	h.writeJSON(w, positions)
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Tracked  int            `json:"tracked"`
	ByStatus map[string]int `json:"by_status"`
}

// StatusHandler summarizes the asset snapshot by lifecycle state.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	records, err := store.ReadSnapshot(h.snapshotPath)
	if err != nil {
		h.log.Error("Failed to read asset snapshot", zap.String("path", h.snapshotPath), zap.Error(err))
		http.Error(w, "Failed to read status", http.StatusInternalServerError)
		return
	}

	resp := StatusResponse{Tracked: len(records), ByStatus: map[string]int{}}
	for _, rec := range records {
		resp.ByStatus[string(rec.Status)]++
	}
	h.writeJSON(w, resp)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}
