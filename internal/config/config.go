// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/KPR-V/stellar/internal/asset"
)

// Run modes.
const (
	ModeLive       = "live"
	ModeSimulation = "simulation"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	Mode        string `mapstructure:"mode"`
}

// Simulation reports whether external collaborators are replaced by
// in-memory implementations.
func (c AppConfig) Simulation() bool {
	return c.Mode == ModeSimulation
}

// EthereumConfig points at the RPC node used for the ledger sequence and the
// router venue.
type EthereumConfig struct {
	HTTPURL      string        `mapstructure:"http_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// PricingConfig configures oracle routing and clients.
type PricingConfig struct {
	MaxAge         time.Duration    `mapstructure:"max_age"`
	ForexOracle    string           `mapstructure:"forex_oracle"`
	CryptoOracle   string           `mapstructure:"crypto_oracle"`
	NativeOracle   string           `mapstructure:"native_oracle"`
	Endpoints      []OracleEndpoint `mapstructure:"endpoints"`
	RateLimitRPM   int              `mapstructure:"rate_limit_rpm"`
	CacheTTL       time.Duration    `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration    `mapstructure:"request_timeout"`
	Binance        BinanceConfig    `mapstructure:"binance"`
}

// OracleEndpoint binds an oracle contract address to its HTTP gateway.
type OracleEndpoint struct {
	Address string `mapstructure:"address"`
	URL     string `mapstructure:"url"`
}

// BinanceConfig configures the streaming crypto oracle.
type BinanceConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	Symbols        []string      `mapstructure:"symbols"`
	Window         int           `mapstructure:"window"`
	StaleTimeout   time.Duration `mapstructure:"stale_timeout"`
	EnableFallback bool          `mapstructure:"enable_fallback"`
}

// PairConfig declares a trading pair registered at startup.
type PairConfig struct {
	Kind         string `mapstructure:"kind"` // "basic" or "crypto"
	Base         string `mapstructure:"base"`
	Quote        string `mapstructure:"quote"`
	Stable       string `mapstructure:"stable"`
	Fiat         string `mapstructure:"fiat"`
	Contract     string `mapstructure:"contract"`
	TargetPeg    uint32 `mapstructure:"target_peg"`
	ThresholdBps uint32 `mapstructure:"threshold_bps"`
}

// ArbitrageConfig holds scanning configuration.
type ArbitrageConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	AutoExecute  bool          `mapstructure:"auto_execute"`
	Keeper       string        `mapstructure:"keeper"`
	Reporter     string        `mapstructure:"reporter"` // "log" or "console"
	MaxRiskBps   uint32        `mapstructure:"max_risk_bps"` // 0 disables volatility sizing
	Pairs        []PairConfig  `mapstructure:"pairs"`
}

// ExecutionConfig selects and tunes the swap venue.
type ExecutionConfig struct {
	Venue          string            `mapstructure:"venue"` // "router" or "amm"
	VenueName      string            `mapstructure:"venue_name"`
	VenueAddress   string            `mapstructure:"venue_address"`
	VenueFeeBps    uint32            `mapstructure:"venue_fee_bps"`
	RouterContract string            `mapstructure:"router_contract"`
	Settlement     string            `mapstructure:"settlement"`
	Recipient      string            `mapstructure:"recipient"`
	Tokens         map[string]string `mapstructure:"tokens"` // asset code (any case) -> router token address
	AMM            AMMConfig         `mapstructure:"amm"`
}

// AMMConfig seeds the in-memory pool used in simulation mode.
type AMMConfig struct {
	ReserveTracked    string `mapstructure:"reserve_tracked"`
	ReserveSettlement string `mapstructure:"reserve_settlement"`
}

// RiskConfig holds the limits enforced by the in-process risk gate.
type RiskConfig struct {
	MaxDailyVolume  string `mapstructure:"max_daily_volume"`
	MaxPositionSize string `mapstructure:"max_position_size"`
	MaxDrawdownBps  uint32 `mapstructure:"max_drawdown_bps"`
	VaRLimit        string `mapstructure:"var_limit"`
}

// LedgerConfig holds engine bootstrap settings and the snapshot store.
type LedgerConfig struct {
	Admin                string `mapstructure:"admin"`
	Governance           string `mapstructure:"governance"`
	RiskGate             string `mapstructure:"risk_gate"`
	Driver               string `mapstructure:"driver"` // "", "sqlite" or "postgres"
	DSN                  string `mapstructure:"dsn"`
	MinProfitBps         uint32 `mapstructure:"min_profit_bps"`
	MaxTradeSize         string `mapstructure:"max_trade_size"`
	SlippageToleranceBps uint32 `mapstructure:"slippage_tolerance_bps"`
	MaxGasPrice          uint64 `mapstructure:"max_gas_price"`
	MinLiquidity         string `mapstructure:"min_liquidity"`
}

// RedisConfig configures the execution stream publisher.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len"`
}

// TelegramConfig configures execution alerts.
type TelegramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Token       string `mapstructure:"token"`
	ChatID      int64  `mapstructure:"chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
	MinProfit   string `mapstructure:"min_profit"`
}

// HealthConfig configures the probe server.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.mode", "ARB_MODE")

	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")

	v.BindEnv("pricing.forex_oracle", "ARB_FOREX_ORACLE")
	v.BindEnv("pricing.crypto_oracle", "ARB_CRYPTO_ORACLE")
	v.BindEnv("pricing.native_oracle", "ARB_NATIVE_ORACLE")
	v.BindEnv("pricing.binance.websocket_url", "ARB_BINANCE_WS_URL", "BINANCE_WS_URL")

	v.BindEnv("arbitrage.keeper", "ARB_KEEPER")
	v.BindEnv("arbitrage.auto_execute", "ARB_AUTO_EXECUTE")
	v.BindEnv("arbitrage.reporter", "ARB_REPORTER")
	v.BindEnv("arbitrage.max_risk_bps", "ARB_MAX_RISK_BPS")

	v.BindEnv("execution.router_contract", "ARB_ROUTER_CONTRACT")

	v.BindEnv("ledger.admin", "ARB_ADMIN")
	v.BindEnv("ledger.driver", "ARB_LEDGER_DRIVER")
	v.BindEnv("ledger.dsn", "ARB_LEDGER_DSN", "DATABASE_URL")

	v.BindEnv("redis.enabled", "ARB_REDIS_ENABLED")
	v.BindEnv("redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")

	v.BindEnv("telegram.enabled", "ARB_TELEGRAM_ENABLED")
	v.BindEnv("telegram.token", "ARB_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stellar-arbitrage")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.mode", ModeSimulation)

	v.SetDefault("ethereum.poll_interval", "5s")

	// Testnet oracle contracts
	v.SetDefault("pricing.max_age", "600s")
	v.SetDefault("pricing.forex_oracle", "CCSSOHTBL3LEWUCBBEB5NJFC2OKFRC74OWEIJIZLRJBGAAU4VMU5NV4W")
	v.SetDefault("pricing.crypto_oracle", "CCYOZJCOPG34LLQQ7N24YXBM7LL62R7ONMZ3G6WZAAYPB5OYKOMJRN63")
	v.SetDefault("pricing.native_oracle", "CAVLP5DH2GJPZMVO7IJY4CVOD5MWEFTJFVPD2YY2FQXOQHRGHK4D6HLP")
	v.SetDefault("pricing.rate_limit_rpm", 600)
	v.SetDefault("pricing.cache_ttl", "5s")
	v.SetDefault("pricing.request_timeout", "5s")
	v.SetDefault("pricing.binance.enabled", false)
	v.SetDefault("pricing.binance.websocket_url", "wss://stream.binance.com:9443/ws/!miniTicker@arr")
	v.SetDefault("pricing.binance.symbols", []string{"XLMUSDT", "BTCUSDT", "ETHUSDT"})
	v.SetDefault("pricing.binance.window", 120)
	v.SetDefault("pricing.binance.stale_timeout", "30s")
	v.SetDefault("pricing.binance.http_url", "https://api.binance.com")
	v.SetDefault("pricing.binance.enable_fallback", true)

	v.SetDefault("arbitrage.scan_interval", "10s")
	v.SetDefault("arbitrage.auto_execute", false)
	v.SetDefault("arbitrage.reporter", "log")

	v.SetDefault("execution.venue", "amm")
	v.SetDefault("execution.venue_name", "soroswap")
	v.SetDefault("execution.venue_address", "CCMAPXWVZD4USEKDWRYS7DA4Y3D7E2SDMGBFJUCEXTC7VN6CUBGWPFUS")
	v.SetDefault("execution.venue_fee_bps", 30)
	v.SetDefault("execution.settlement", "USDC")
	v.SetDefault("execution.amm.reserve_tracked", "1000000")
	v.SetDefault("execution.amm.reserve_settlement", "1000000")

	v.SetDefault("risk.max_daily_volume", "1000000")
	v.SetDefault("risk.max_position_size", "100000")
	v.SetDefault("risk.max_drawdown_bps", 1000)
	v.SetDefault("risk.var_limit", "50000")

	v.SetDefault("ledger.driver", "")
	v.SetDefault("ledger.min_profit_bps", 50)
	v.SetDefault("ledger.max_trade_size", "100000")
	v.SetDefault("ledger.slippage_tolerance_bps", 100)
	v.SetDefault("ledger.max_gas_price", 1000)
	v.SetDefault("ledger.min_liquidity", "0")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.stream", "arbitrage:executions")
	v.SetDefault("redis.max_len", 10000)

	v.SetDefault("telegram.api_endpoint", "https://api.telegram.org/bot%s/%s")
	v.SetDefault("telegram.min_profit", "10")

	v.SetDefault("health.port", 8081)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "stellar-arbitrage")
	v.SetDefault("telemetry.trace_provider", "ZIPKIN_PROVIDER")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.App.Mode {
	case ModeLive, ModeSimulation:
	default:
		return fmt.Errorf("app.mode must be %q or %q, got %q", ModeLive, ModeSimulation, c.App.Mode)
	}
	if c.Ledger.Admin == "" {
		return fmt.Errorf("ledger.admin is required")
	}
	if c.Pricing.MaxAge <= 0 {
		return fmt.Errorf("pricing.max_age must be positive")
	}
	for i, ep := range c.Pricing.Endpoints {
		if ep.Address == "" || ep.URL == "" {
			return fmt.Errorf("pricing.endpoints[%d]: address and url are required", i)
		}
	}
	if c.Pricing.ForexOracle == "" || c.Pricing.CryptoOracle == "" || c.Pricing.NativeOracle == "" {
		return fmt.Errorf("pricing oracle addresses are required")
	}
	switch c.Arbitrage.Reporter {
	case "", "log", "console":
	default:
		return fmt.Errorf("arbitrage.reporter %q is not supported", c.Arbitrage.Reporter)
	}
	switch c.Ledger.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("ledger.driver %q is not supported", c.Ledger.Driver)
	}
	if c.Ledger.Driver != "" && c.Ledger.DSN == "" {
		return fmt.Errorf("ledger.dsn is required for driver %s", c.Ledger.Driver)
	}
	switch c.Execution.Venue {
	case "amm":
	case "router":
		if c.Ethereum.HTTPURL == "" {
			return fmt.Errorf("ethereum.http_url is required for the router venue")
		}
		if !common.IsHexAddress(c.Execution.RouterContract) {
			return fmt.Errorf("invalid execution.router_contract: %s", c.Execution.RouterContract)
		}
		for code, addr := range c.Execution.Tokens {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("invalid execution.tokens.%s: %s", code, addr)
			}
		}
	default:
		return fmt.Errorf("execution.venue %q is not supported", c.Execution.Venue)
	}
	if c.App.Mode == ModeLive && c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required in live mode")
	}
	for _, field := range []struct {
		key, value string
	}{
		{"risk.max_daily_volume", c.Risk.MaxDailyVolume},
		{"risk.max_position_size", c.Risk.MaxPositionSize},
		{"risk.var_limit", c.Risk.VaRLimit},
		{"ledger.max_trade_size", c.Ledger.MaxTradeSize},
		{"ledger.min_liquidity", c.Ledger.MinLiquidity},
		{"telegram.min_profit", c.Telegram.MinProfit},
		{"execution.amm.reserve_tracked", c.Execution.AMM.ReserveTracked},
		{"execution.amm.reserve_settlement", c.Execution.AMM.ReserveSettlement},
	} {
		if _, err := asset.Parse(field.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.key, field.value, err)
		}
	}
	for i, p := range c.Arbitrage.Pairs {
		switch p.Kind {
		case "", "basic":
			if p.Stable == "" || p.Fiat == "" {
				return fmt.Errorf("arbitrage.pairs[%d]: stable and fiat are required", i)
			}
			if p.ThresholdBps == 0 {
				return fmt.Errorf("arbitrage.pairs[%d]: threshold_bps must be positive", i)
			}
		case "crypto":
			if p.Base == "" || p.Quote == "" {
				return fmt.Errorf("arbitrage.pairs[%d]: base and quote are required", i)
			}
		default:
			return fmt.Errorf("arbitrage.pairs[%d]: unknown kind %q", i, p.Kind)
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

// TokenAddress returns the router token for an asset code.
func (c ExecutionConfig) TokenAddress(code string) (common.Address, bool) {
	for k, v := range c.Tokens {
		if strings.EqualFold(k, code) {
			return common.HexToAddress(v), true
		}
	}
	return common.Address{}, false
}

// MustAmount parses a validated decimal field.
func MustAmount(s string) asset.Amount {
	a, err := asset.Parse(s)
	if err != nil {
		panic(fmt.Sprintf("config: %q passed validation but does not parse: %v", s, err))
	}
	return a
}
