package trader

import (
	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// BuyPolicy turns an indicator snapshot into an entry signal.
type BuyPolicy interface {
	// Name returns the unique name of the policy.
	Name() string

	// ShouldBuy reports whether snap is an entry.
	ShouldBuy(snap *models.IndicatorSnapshot, cfg *config.Trading) bool
}

// StrictPolicy needs every condition: rising trend, price at the lower band
// and an oversold RSI.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return config.BuyLogicStrict }

func (StrictPolicy) ShouldBuy(snap *models.IndicatorSnapshot, cfg *config.Trading) bool {
	m := pct(cfg.BuyMarginPercent)
	return snap.TrendBias &&
		snap.Price <= snap.BB.Lower*(1+m) &&
		snap.RSI <= cfg.RsiBuyThreshold
}

// LoosePolicy buys at the lower band or on an oversold RSI, optionally
// only in a rising trend.
type LoosePolicy struct{}

func (LoosePolicy) Name() string { return config.BuyLogicLoose }

func (LoosePolicy) ShouldBuy(snap *models.IndicatorSnapshot, cfg *config.Trading) bool {
	m := pct(cfg.BuyMarginPercent)
	if cfg.RequireTrendBias && !snap.TrendBias {
		return false
	}
	return snap.Price <= snap.BB.Lower*(1+m) ||
		snap.RSI <= cfg.RsiBuyThreshold*(1+m)
}

// PolicyFor returns the policy of a buy logic mode. Unknown modes are loose.
func PolicyFor(mode string) BuyPolicy {
	if mode == config.BuyLogicStrict {
		return StrictPolicy{}
	}
	return LoosePolicy{}
}

// ShouldBuy evaluates the record's current snapshot. Records without a
// snapshot from a full window never buy.
func ShouldBuy(rec models.AssetRecord, cfg *config.Trading) bool {
	snap := rec.Indicators
	if snap == nil || snap.WindowSize < models.MinIndicatorCandles {
		return false
	}
	return PolicyFor(cfg.BuyLogicMode).ShouldBuy(snap, cfg)
}

// ExitReason names the rationale that closed a position.
type ExitReason string

const (
	ExitStopLoss           ExitReason = "stop_loss"
	ExitTrailingStop       ExitReason = "trailing_stop"
	ExitMaxLoss            ExitReason = "max_loss"
	ExitMaxProfit          ExitReason = "max_profit"
	ExitTrailingTakeProfit ExitReason = "trailing_take_profit"
	ExitEMAReversal        ExitReason = "ema_reversal"
	ExitUpperBand          ExitReason = "upper_band"
)

// EvaluateSell checks every exit rationale against snap and returns the first
// one that fires.
func EvaluateSell(snap *models.IndicatorSnapshot, pos models.Position, cfg *config.Trading) (bool, ExitReason) {
	if snap == nil || snap.WindowSize < models.MinIndicatorCandles {
		return false, ""
	}
	price := snap.Price
	ts := pct(cfg.TrailingStopPercent)
	sm := pct(cfg.SellMarginPercent)
	pnlPct := pos.PnLPercent(price)

	if pos.HighestPriceSeen > pos.EntryPrice && price < pos.HighestPriceSeen*(1-ts) {
		return true, ExitTrailingStop
	}
	if pos.StopLoss > 0 && price <= pos.StopLoss {
		return true, ExitStopLoss
	}
	if cfg.MaxNegativePnLPercent < 0 && pnlPct <= cfg.MaxNegativePnLPercent {
		return true, ExitMaxLoss
	}
	if cfg.MaxPositivePnLPercent > 0 && pnlPct >= cfg.MaxPositivePnLPercent {
		return true, ExitMaxProfit
	}
	if ttp := pct(cfg.TrailingTakeProfitPercent); ttp > 0 && pos.TakeProfit > 0 &&
		pos.HighestPriceSeen >= pos.TakeProfit && price < pos.HighestPriceSeen*(1-ttp) {
		return true, ExitTrailingTakeProfit
	}
	if snap.EMAShort < snap.EMAMedium*(1+sm) && snap.RSI >= cfg.RsiSellThreshold*(1-sm) {
		return true, ExitEMAReversal
	}
	if price > snap.BB.Upper && snap.RSI >= cfg.RsiSellThreshold {
		return true, ExitUpperBand
	}
	return false, ""
}

// ShouldSell evaluates the record's current snapshot against pos.
func ShouldSell(rec models.AssetRecord, pos models.Position, cfg *config.Trading) bool {
	ok, _ := EvaluateSell(rec.Indicators, pos, cfg)
	return ok
}

func pct(v float64) float64 {
	return v / 100
}
