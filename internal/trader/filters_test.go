package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/config"
	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

func intPtr(v int) *int { return &v }

func goodCandidate() models.Candidate {
	return models.Candidate{
		Token: models.CandidateToken{Mint: mint(1), Symbol: "WIF", Name: "dogwifhat", Twitter: "https://x.com/wif"},
		Pools: []models.Pool{{
			PoolID:    "pool-1",
			Market:    "raydium",
			Liquidity: models.USDValue{USD: 30000},
			MarketCap: models.USDValue{USD: 80000},
		}},
		Risk: &models.Risk{Score: intPtr(2)},
	}
}

func TestPassesStaticFilters(t *testing.T) {
	filters := testConfig().Filters

	tests := []struct {
		name     string
		mutate   func(c *models.Candidate, f *config.Filters)
		existing *models.AssetRecord
		want     bool
		reason   string
	}{
		{name: "Passes", want: true},
		{name: "NoPools", mutate: func(c *models.Candidate, _ *config.Filters) { c.Pools = nil }, reason: "incomplete"},
		{name: "NoSymbol", mutate: func(c *models.Candidate, _ *config.Filters) { c.Token.Symbol = "" }, reason: "incomplete"},
		{name: "BadMint", mutate: func(c *models.Candidate, _ *config.Filters) { c.Token.Mint = "not-a-mint" }, reason: "invalid_mint"},
		{name: "TrackedOpen", existing: &models.AssetRecord{Status: models.StatusOpen}, reason: "tracked_open"},
		{name: "TrackedBlacklist", existing: &models.AssetRecord{Status: models.StatusBlacklist}, reason: "tracked_blacklist"},
		{name: "TrackedHoldRefreshes", existing: &models.AssetRecord{Status: models.StatusHold}, want: true},
		{name: "Rugged", mutate: func(c *models.Candidate, _ *config.Filters) { c.Risk.Rugged = true }, reason: "rugged"},
		{name: "RiskTooHigh", mutate: func(c *models.Candidate, _ *config.Filters) { c.Risk.Score = intPtr(8) }, reason: "risk_score"},
		{name: "MissingRiskCountsAsWorst", mutate: func(c *models.Candidate, _ *config.Filters) { c.Risk = nil }, reason: "risk_score"},
		{name: "LowLiquidity", mutate: func(c *models.Candidate, _ *config.Filters) { c.Pools[0].Liquidity.USD = 100 }, reason: "liquidity"},
		{name: "LiquidityAboveMax", mutate: func(c *models.Candidate, f *config.Filters) { f.MaxLiquidity = 25000 }, reason: "liquidity"},
		{name: "LowMarketCap", mutate: func(c *models.Candidate, _ *config.Filters) { c.Pools[0].MarketCap.USD = 100 }, reason: "market_cap"},
		{name: "UnknownMarket", mutate: func(c *models.Candidate, _ *config.Filters) { c.Pools[0].Market = "meteora" }, reason: "market"},
		{name: "MarketCaseInsensitive", mutate: func(c *models.Candidate, _ *config.Filters) { c.Pools[0].Market = "Raydium" }, want: true},
		{name: "ExcludedSymbolFragment", mutate: func(c *models.Candidate, _ *config.Filters) { c.Token.Symbol = "scamcoin" }, reason: "excluded_symbol"},
		{name: "NoSocialsRequired", mutate: func(c *models.Candidate, f *config.Filters) {
			f.RequireSocialPresence = true
			c.Token.Twitter = ""
		}, reason: "no_socials"},
		{name: "TelegramIsEnough", mutate: func(c *models.Candidate, f *config.Filters) {
			f.RequireSocialPresence = true
			c.Token.Twitter = ""
			c.Token.Telegram = "https://t.me/wif"
		}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := goodCandidate()
			f := filters
			if tt.mutate != nil {
				tt.mutate(&c, &f)
			}
			ok, reason := PassesStaticFilters(c, &f, tt.existing)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestWithin(t *testing.T) {
	assert.True(t, within(10, 5, 0))
	assert.True(t, within(10, 10, 10))
	assert.False(t, within(4, 5, 0))
	assert.False(t, within(11, 5, 10))
}
