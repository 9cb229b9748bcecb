package models

// Candidate is one entry of the trending discovery feed.
type Candidate struct {
	Token CandidateToken `json:"token"`
	Pools []Pool         `json:"pools"`
	Risk  *Risk          `json:"risk,omitempty"`
}

// CandidateToken carries the token metadata of a candidate.
type CandidateToken struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`
}

// USDValue is a quote in USD as returned by the data provider.
type USDValue struct {
	USD float64 `json:"usd"`
}

// Pool is a liquidity pool of a candidate.
type Pool struct {
	PoolID    string   `json:"poolId"`
	Market    string   `json:"market"`
	Liquidity USDValue `json:"liquidity"`
	MarketCap USDValue `json:"marketCap"`
	Price     USDValue `json:"price"`
}

// Risk is the provider's risk assessment of a candidate.
type Risk struct {
	Score  *int `json:"score,omitempty"`
	Rugged bool `json:"rugged"`
}

// LivePrice is a point-in-time quote for one token.
type LivePrice struct {
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
}
