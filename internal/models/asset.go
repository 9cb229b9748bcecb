package models

import "time"

// MaxChartWindow is the number of most recent candles kept on an asset.
const MaxChartWindow = 50

// MinIndicatorCandles is the smallest window that yields an indicator snapshot.
const MinIndicatorCandles = 20

// Candle is one OHLCV sample from the chart feed.
type Candle struct {
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Volume float64 `json:"volume"`
	Time   int64   `json:"time"`
}

// BollingerBands holds the band values of the latest candle.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// IndicatorSnapshot is the set of metrics derived from one chart window.
type IndicatorSnapshot struct {
	Price      float64        `json:"price"`
	RSI        float64        `json:"rsi"`
	EMAShort   float64        `json:"emaShort"`
	EMAMedium  float64        `json:"emaMedium"`
	BB         BollingerBands `json:"bb"`
	TrendBias  bool           `json:"trendBias"`
	WindowSize int            `json:"windowSize"`
}

// Position describes an open holding of an asset.
type Position struct {
	EntryPrice       float64   `json:"entryPrice"`
	Quantity         float64   `json:"quantity"`
	HighestPriceSeen float64   `json:"highestPriceSeen"`
	StopLoss         float64   `json:"stopLoss"`
	TakeProfit       float64   `json:"takeProfit,omitempty"`
	TxID             string    `json:"txId"`
	OpenedAt         time.Time `json:"openedAt"`
	LastValidated    time.Time `json:"lastValidated,omitempty"`
}

// PnLPercent is the unrealized return of the position at price, in percent.
func (p Position) PnLPercent(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// TradeEvent is one executed buy or sell.
type TradeEvent struct {
	ID          string    `json:"id"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	TxID        string    `json:"txId"`
	Timestamp   time.Time `json:"timestamp"`
	PnL         float64   `json:"pnl,omitempty"`
	PnLPercent  float64   `json:"pnlPercent,omitempty"`
	CloseReason string    `json:"closeReason,omitempty"`
}

// AssetRecord is the tracked state of one token, keyed by its mint address.
type AssetRecord struct {
	Identity      string             `json:"identity"`
	Symbol        string             `json:"symbol"`
	Name          string             `json:"name,omitempty"`
	Market        string             `json:"market,omitempty"`
	Status        Status             `json:"status"`
	ChartWindow   []Candle           `json:"chartWindow"`
	Indicators    *IndicatorSnapshot `json:"indicators,omitempty"`
	DecisionPrice float64            `json:"decisionPrice,omitempty"`
	Position      *Position          `json:"position,omitempty"`
	BuyHistory    []TradeEvent       `json:"buyHistory"`
	SellHistory   []TradeEvent       `json:"sellHistory"`
	LastError     string             `json:"lastError,omitempty"`
	LastUpdated   time.Time          `json:"lastUpdated"`
}

// Clone returns a deep copy that shares no memory with r.
func (r AssetRecord) Clone() AssetRecord {
	out := r
	out.ChartWindow = append(make([]Candle, 0, len(r.ChartWindow)), r.ChartWindow...)
	out.BuyHistory = append(make([]TradeEvent, 0, len(r.BuyHistory)), r.BuyHistory...)
	out.SellHistory = append(make([]TradeEvent, 0, len(r.SellHistory)), r.SellHistory...)
	if r.Indicators != nil {
		ind := *r.Indicators
		out.Indicators = &ind
	}
	if r.Position != nil {
		pos := *r.Position
		out.Position = &pos
	}
	return out
}

// TrimCandles returns the most recent MaxChartWindow candles.
func TrimCandles(candles []Candle) []Candle {
	if len(candles) <= MaxChartWindow {
		return append(make([]Candle, 0, len(candles)), candles...)
	}
	return append(make([]Candle, 0, MaxChartWindow), candles[len(candles)-MaxChartWindow:]...)
}
