package trader

import (
	"strings"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/solana"
)

// missingRiskScore is assumed for candidates without a risk assessment.
const missingRiskScore = 10

// PassesStaticFilters screens a discovery candidate. existing is the tracked
// record of the same identity, if any. The second result names the first
// failed rule.
func PassesStaticFilters(c models.Candidate, f *config.Filters, existing *models.AssetRecord) (bool, string) {
	tok := c.Token
	if tok.Mint == "" || tok.Symbol == "" || len(c.Pools) == 0 {
		return false, "incomplete"
	}
	if err := solana.ValidateMint(tok.Mint); err != nil {
		return false, "invalid_mint"
	}

	if existing != nil {
		switch existing.Status {
		case models.StatusTarget, models.StatusOpen, models.StatusClosed, models.StatusBlacklist:
			return false, "tracked_" + string(existing.Status)
		}
	}

	score := missingRiskScore
	if c.Risk != nil {
		if c.Risk.Rugged {
			return false, "rugged"
		}
		if c.Risk.Score != nil {
			score = *c.Risk.Score
		}
	}
	if score < f.MinRiskScore || score > f.MaxRiskScore {
		return false, "risk_score"
	}

	pool := c.Pools[0]
	if !within(pool.Liquidity.USD, f.MinLiquidity, f.MaxLiquidity) {
		return false, "liquidity"
	}
	if !within(pool.MarketCap.USD, f.MinMarketCap, f.MaxMarketCap) {
		return false, "market_cap"
	}
	if len(f.Markets) > 0 && !containsFold(f.Markets, pool.Market) {
		return false, "market"
	}

	symbol := strings.ToUpper(tok.Symbol)
	for _, frag := range f.ExcludedSymbols {
		if frag != "" && strings.Contains(symbol, strings.ToUpper(frag)) {
			return false, "excluded_symbol"
		}
	}

	if f.RequireSocialPresence && tok.Twitter == "" && tok.Telegram == "" {
		return false, "no_socials"
	}
	return true, ""
}

// within reports whether v is in [lo, hi]; a zero hi is unbounded.
func within(v, lo, hi float64) bool {
	if v < lo {
		return false
	}
	return hi <= 0 || v <= hi
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
