package models

import "gorm.io/gorm"

// Trade sides stored in the journal.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade represents a journaled trade row in the database.
type Trade struct {
	gorm.Model
	EventID      string  `gorm:"uniqueIndex" json:"event_id"`
	Identity     string  `gorm:"index" json:"identity"`
	Symbol       string  `json:"symbol"`
	Type         string  `json:"type"` // "BUY" or "SELL"
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	TxID         string  `json:"tx_id"`
	Timestamp    int64   `json:"timestamp"`
	IsSimulation bool    `json:"is_simulation"`
	Profit       float64 `json:"profit,omitempty"`
	ProfitPct    float64 `json:"profit_pct,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// NewBuyTrade builds the journal row of a buy event.
func NewBuyTrade(rec AssetRecord, ev TradeEvent, simulated bool) *Trade {
	return &Trade{
		EventID:      ev.ID,
		Identity:     rec.Identity,
		Symbol:       rec.Symbol,
		Type:         SideBuy,
		Price:        ev.Price,
		Quantity:     ev.Quantity,
		TxID:         ev.TxID,
		Timestamp:    ev.Timestamp.UnixMilli(),
		IsSimulation: simulated,
	}
}

// NewSellTrade builds the journal row of a sell event.
func NewSellTrade(rec AssetRecord, ev TradeEvent, simulated bool) *Trade {
	return &Trade{
		EventID:      ev.ID,
		Identity:     rec.Identity,
		Symbol:       rec.Symbol,
		Type:         SideSell,
		Price:        ev.Price,
		Quantity:     ev.Quantity,
		TxID:         ev.TxID,
		Timestamp:    ev.Timestamp.UnixMilli(),
		IsSimulation: simulated,
		Profit:       ev.PnL,
		ProfitPct:    ev.PnLPercent,
		Reason:       ev.CloseReason,
	}
}
