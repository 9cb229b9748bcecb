package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Buy logic modes.
const (
	BuyLogicStrict = "strict"
	BuyLogicLoose  = "loose"
)

// Swap execution modes.
const (
	SwapModePaper  = "paper"
	SwapModeBridge = "bridge"
)

// Config holds all configuration for the application.
type Config struct {
	Tracker  Tracker  `mapstructure:"tracker"`
	Solana   Solana   `mapstructure:"solana"`
	Swap     Swap     `mapstructure:"swap"`
	Trading  Trading  `mapstructure:"trading"`
	Filters  Filters  `mapstructure:"filters"`
	Store    Store    `mapstructure:"store"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Tracker holds the configuration for the trending/chart data provider.
type Tracker struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	ApiKey         string        `mapstructure:"api_key"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gt=0"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst" validate:"gte=1"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`
	BaseBackoff    time.Duration `mapstructure:"base_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Solana holds the RPC endpoint and the wallet whose balances are reconciled.
type Solana struct {
	RpcURL        string `mapstructure:"rpc_url" validate:"required,url"`
	WalletAddress string `mapstructure:"wallet_address"`
}

// Swap holds the configuration of the swap executor.
type Swap struct {
	Mode        string  `mapstructure:"mode" validate:"oneof=paper bridge"`
	BridgeURL   string  `mapstructure:"bridge_url" validate:"required_if=Mode bridge"`
	Amount      float64 `mapstructure:"amount" validate:"gt=0"`
	Slippage    float64 `mapstructure:"slippage" validate:"gte=0"`
	PriorityFee float64 `mapstructure:"priority_fee" validate:"gte=0"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	MaxActivePositions          int           `mapstructure:"max_active_positions" validate:"gte=1"`
	BuyLoopDelay                time.Duration `mapstructure:"buy_loop_delay" validate:"gt=0"`
	SellLoopInterval            time.Duration `mapstructure:"sell_loop_interval" validate:"gt=0"`
	ReconcileInterval           time.Duration `mapstructure:"reconcile_interval" validate:"gt=0"`
	HeartbeatInterval           time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0"`
	TrendingTimeframe           string        `mapstructure:"trending_timeframe" validate:"required"`
	ChartInterval               string        `mapstructure:"chart_interval" validate:"required"`
	TrailingStopPercent         float64       `mapstructure:"trailing_stop_percent" validate:"gte=0,lt=100"`
	TrailingTakeProfitPercent   float64       `mapstructure:"trailing_take_profit_percent" validate:"gte=0"`
	RsiBuyThreshold             float64       `mapstructure:"rsi_buy_threshold" validate:"gte=0,lte=100"`
	RsiSellThreshold            float64       `mapstructure:"rsi_sell_threshold" validate:"gte=0,lte=100"`
	BuyMarginPercent            float64       `mapstructure:"buy_margin_percent"`
	SellMarginPercent           float64       `mapstructure:"sell_margin_percent"`
	BuyLogicMode                string        `mapstructure:"buy_logic_mode" validate:"oneof=strict loose"`
	RequireTrendBias            bool          `mapstructure:"require_trend_bias"`
	MaxAllowedPriceDriftPercent float64       `mapstructure:"max_allowed_price_drift_percent" validate:"gte=0"`
	MaxNegativePnLPercent       float64       `mapstructure:"max_negative_pnl_percent" validate:"lte=0"`
	MaxPositivePnLPercent       float64       `mapstructure:"max_positive_pnl_percent" validate:"gte=0"`
	MinLiveLiquidity            float64       `mapstructure:"min_live_liquidity" validate:"gte=0"`
	SellConcurrency             int           `mapstructure:"sell_concurrency" validate:"gte=1"`
	Blacklist                   []string      `mapstructure:"blacklist"`
}

// Filters holds the static discovery filter bounds.
type Filters struct {
	MinLiquidity          float64  `mapstructure:"min_liquidity" validate:"gte=0"`
	MaxLiquidity          float64  `mapstructure:"max_liquidity" validate:"gte=0"`
	MinMarketCap          float64  `mapstructure:"min_market_cap" validate:"gte=0"`
	MaxMarketCap          float64  `mapstructure:"max_market_cap" validate:"gte=0"`
	MinRiskScore          int      `mapstructure:"min_risk_score" validate:"gte=0"`
	MaxRiskScore          int      `mapstructure:"max_risk_score" validate:"gtefield=MinRiskScore"`
	RequireSocialPresence bool     `mapstructure:"require_social_presence"`
	Markets               []string `mapstructure:"markets"`
	ExcludedSymbols       []string `mapstructure:"excluded_symbols"`
}

// Store holds the configuration of the asset snapshot file.
type Store struct {
	Path     string        `mapstructure:"path" validate:"required"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gt=0"`
}

// Server holds the configuration for the status server.
type Server struct {
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// Database holds the configuration for the trade journal database.
type Database struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format" validate:"omitempty,oneof=json console"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) (Config, error) {
	var config Config

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return config, err
	}
	return config, nil
}

// Validate checks the decoded configuration against its field constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Filters.MaxLiquidity > 0 && cfg.Filters.MaxLiquidity < cfg.Filters.MinLiquidity {
		return fmt.Errorf("invalid config: filters.max_liquidity below filters.min_liquidity")
	}
	if cfg.Filters.MaxMarketCap > 0 && cfg.Filters.MaxMarketCap < cfg.Filters.MinMarketCap {
		return fmt.Errorf("invalid config: filters.max_market_cap below filters.min_market_cap")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.base_url", "https://data.solanatracker.io")
	v.SetDefault("tracker.api_key", "")
	v.SetDefault("tracker.rate_limit", 1)
	v.SetDefault("tracker.rate_limit_burst", 1)
	v.SetDefault("tracker.max_retries", 3)
	v.SetDefault("tracker.base_backoff", "5s")
	v.SetDefault("tracker.timeout", "10s")

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.wallet_address", "")

	v.SetDefault("swap.mode", SwapModePaper)
	v.SetDefault("swap.bridge_url", "")
	v.SetDefault("swap.amount", 0.01)
	v.SetDefault("swap.slippage", 10)
	v.SetDefault("swap.priority_fee", 0.0005)

	v.SetDefault("trading.max_active_positions", 5)
	v.SetDefault("trading.buy_loop_delay", "60s")
	v.SetDefault("trading.sell_loop_interval", "15s")
	v.SetDefault("trading.reconcile_interval", "60s")
	v.SetDefault("trading.heartbeat_interval", "30s")
	v.SetDefault("trading.trending_timeframe", "5m")
	v.SetDefault("trading.chart_interval", "1m")
	v.SetDefault("trading.trailing_stop_percent", 5)
	v.SetDefault("trading.trailing_take_profit_percent", 0)
	v.SetDefault("trading.rsi_buy_threshold", 35)
	v.SetDefault("trading.rsi_sell_threshold", 70)
	v.SetDefault("trading.buy_margin_percent", 0)
	v.SetDefault("trading.sell_margin_percent", 0)
	v.SetDefault("trading.buy_logic_mode", BuyLogicLoose)
	v.SetDefault("trading.require_trend_bias", true)
	v.SetDefault("trading.max_allowed_price_drift_percent", 2)
	v.SetDefault("trading.max_negative_pnl_percent", 0)
	v.SetDefault("trading.max_positive_pnl_percent", 0)
	v.SetDefault("trading.min_live_liquidity", 0)
	v.SetDefault("trading.sell_concurrency", 4)
	v.SetDefault("trading.blacklist", []string{})

	v.SetDefault("filters.min_liquidity", 20000)
	v.SetDefault("filters.max_liquidity", 0)
	v.SetDefault("filters.min_market_cap", 50000)
	v.SetDefault("filters.max_market_cap", 0)
	v.SetDefault("filters.min_risk_score", 0)
	v.SetDefault("filters.max_risk_score", 5)
	v.SetDefault("filters.require_social_presence", false)
	v.SetDefault("filters.markets", []string{"raydium", "orca", "pumpfun", "moonshot", "raydium-cpmm"})
	v.SetDefault("filters.excluded_symbols", []string{"SCAM", "USDC", "SOL", "BONK", "RUG", "FAKE"})

	v.SetDefault("store.path", "coins.json")
	v.SetDefault("store.debounce", "1s")

	v.SetDefault("database.dsn", "trades.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_paths", []string{"stderr"})

	v.SetDefault("server.port", 8080)
}
