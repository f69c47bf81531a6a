// Package config defines the top-level configuration for the BaseMarkets
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BASEMARKETS_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Staking  StakingConfig  `toml:"staking"`
	Auth     AuthConfig     `toml:"auth"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Ticker   TickerConfig   `toml:"ticker"`
	Analyst  AnalystConfig  `toml:"analyst"`
	Watcher  WatcherConfig  `toml:"watcher"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the operator wallet credentials. Leaving both key sources
// empty runs the service read-only.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig selects the contract backend and the deployed addresses.
type ChainConfig struct {
	// Mode is "rpc" for a real node or "simulated" for the in-memory contracts.
	Mode            string   `toml:"mode"`
	RPCURL          string   `toml:"rpc_url"`
	ChainID         int      `toml:"chain_id"`
	VaultAddress    string   `toml:"vault_address"`
	StakingAddress  string   `toml:"staking_address"`
	MarketAddress   string   `toml:"market_address"`
	USDCAddress     string   `toml:"usdc_address"`
	ActionTimeout   duration `toml:"action_timeout"`
	SimFaucetAmount float64  `toml:"sim_faucet_amount"`
}

// StakingConfig holds the display parameters of the staking pool.
type StakingConfig struct {
	APY         float64  `toml:"apy"`
	PoolBaseTVL float64  `toml:"pool_base_tvl"`
	ProtocolFee float64  `toml:"protocol_fee"`
	LockPeriod  duration `toml:"lock_period"`
}

// AuthConfig holds login parameters.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  duration `toml:"token_ttl"`
	NonceTTL  duration `toml:"nonce_ttl"`
	Issuer    string   `toml:"issuer"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TickerConfig configures the coin price ticker.
type TickerConfig struct {
	Enabled       bool     `toml:"enabled"`
	URL           string   `toml:"url"`
	CoinIDs       []string `toml:"coin_ids"`
	Interval      duration `toml:"interval"`
	RatePerMinute int      `toml:"rate_per_minute"`
}

// AnalystConfig configures the Gemini market analyst.
type AnalystConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// WatcherConfig configures the unstake watcher.
type WatcherConfig struct {
	Interval  duration `toml:"interval"`
	Addresses []string `toml:"addresses"`
}

// ArchiveConfig configures activity archiving to S3.
type ArchiveConfig struct {
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey, when set, is accepted by the operator endpoints as an
	// alternative to a wallet login token.
	APIKey string `toml:"api_key"`
	// RatePerMinute limits requests per client IP. Zero disables limiting.
	RatePerMinute int `toml:"rate_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Base mainnet deployment.
const (
	DefaultVaultAddress   = "0x88f3de49C37D55C4Cef0C9c2aC66842559AF57aB"
	DefaultStakingAddress = "0xF8eBa2d70754540CB7e5780C784DaF5F11131e5d"
	DefaultMarketAddress  = "0x4850735BAe827f7cD1337e592956d992Dc3253ec"
	DefaultUSDCAddress    = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	// SepoliaUSDCAddress is the USDC token on Base Sepolia (chain 84532).
	SepoliaUSDCAddress = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"

	BaseChainID        = 8453
	BaseSepoliaChainID = 84532
)

// DefaultCoinIDs is the ticker's CoinGecko id list.
var DefaultCoinIDs = []string{
	"bitcoin", "ethereum", "solana", "binancecoin", "aerodrome-finance",
	"degen-base", "brett", "virtual-protocol", "usd-coin",
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			Mode:            "simulated",
			RPCURL:          "https://mainnet.base.org",
			ChainID:         BaseChainID,
			VaultAddress:    DefaultVaultAddress,
			StakingAddress:  DefaultStakingAddress,
			MarketAddress:   DefaultMarketAddress,
			USDCAddress:     DefaultUSDCAddress,
			ActionTimeout:   duration{2 * time.Minute},
			SimFaucetAmount: 1000,
		},
		Staking: StakingConfig{
			APY:         0.125,
			PoolBaseTVL: 300_000,
			ProtocolFee: 0.003,
			LockPeriod:  duration{72 * time.Hour},
		},
		Auth: AuthConfig{
			TokenTTL: duration{24 * time.Hour},
			NonceTTL: duration{5 * time.Minute},
			Issuer:   "basemarkets",
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "basemarkets-data",
			ForcePathStyle: true,
		},
		Ticker: TickerConfig{
			Enabled:       true,
			URL:           "https://api.coingecko.com/api/v3",
			CoinIDs:       append([]string(nil), DefaultCoinIDs...),
			Interval:      duration{time.Minute},
			RatePerMinute: 10,
		},
		Analyst: AnalystConfig{
			Model: "gemini-2.5-flash",
		},
		Watcher: WatcherConfig{
			Interval: duration{time.Minute},
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:       true,
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			RatePerMinute: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"unstake_claimable", "unstake_completed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"watch":  true,
	"full":   true,
}

var validChainModes = map[string]bool{
	"rpc":       true,
	"simulated": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, watch, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}
	if c.Wallet.PrivateKey != "" && c.Wallet.EncryptedKeyPath != "" {
		errs = append(errs, "wallet: set only one of private_key or encrypted_key_path")
	}

	// Chain
	if !validChainModes[strings.ToLower(c.Chain.Mode)] {
		errs = append(errs, fmt.Sprintf("chain: unknown mode %q (valid: rpc, simulated)", c.Chain.Mode))
	}
	if strings.EqualFold(c.Chain.Mode, "rpc") && c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty in rpc mode")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	for name, addr := range map[string]string{
		"vault_address":   c.Chain.VaultAddress,
		"staking_address": c.Chain.StakingAddress,
		"market_address":  c.Chain.MarketAddress,
		"usdc_address":    c.Chain.USDCAddress,
	} {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("chain: %s %q is not a hex address", name, addr))
		}
	}
	if c.Chain.ActionTimeout.Duration <= 0 {
		errs = append(errs, "chain: action_timeout must be > 0")
	}
	if c.Chain.SimFaucetAmount < 0 {
		errs = append(errs, "chain: sim_faucet_amount must be >= 0")
	}

	// Staking
	if c.Staking.APY < 0 {
		errs = append(errs, "staking: apy must be >= 0")
	}
	if c.Staking.PoolBaseTVL < 0 {
		errs = append(errs, "staking: pool_base_tvl must be >= 0")
	}
	if c.Staking.ProtocolFee < 0 || c.Staking.ProtocolFee >= 1 {
		errs = append(errs, "staking: protocol_fee must be in [0, 1)")
	}
	if c.Staking.LockPeriod.Duration <= 0 {
		errs = append(errs, "staking: lock_period must be > 0")
	}

	// Auth
	if c.Server.Enabled && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "auth: jwt_secret must be at least 32 bytes when the server is enabled")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		errs = append(errs, "auth: token_ttl must be > 0")
	}
	if c.Auth.NonceTTL.Duration <= 0 {
		errs = append(errs, "auth: nonce_ttl must be > 0")
	}

	// Supabase
	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Ticker
	if c.Ticker.Enabled {
		if c.Ticker.URL == "" {
			errs = append(errs, "ticker: url must not be empty")
		}
		if len(c.Ticker.CoinIDs) == 0 {
			errs = append(errs, "ticker: coin_ids must not be empty")
		}
		if c.Ticker.Interval.Duration < time.Second {
			errs = append(errs, "ticker: interval must be >= 1s")
		}
		if c.Ticker.RatePerMinute < 1 {
			errs = append(errs, "ticker: rate_per_minute must be >= 1")
		}
	}

	// Watcher
	if c.Watcher.Interval.Duration < time.Second {
		errs = append(errs, "watcher: interval must be >= 1s")
	}
	for _, a := range c.Watcher.Addresses {
		if !common.IsHexAddress(a) {
			errs = append(errs, fmt.Sprintf("watcher: address %q is not a hex address", a))
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RatePerMinute < 0 {
			errs = append(errs, "server: rate_per_minute must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ActionTimeout is the upper bound for one user action, including waiting for
// the transaction receipt.
func (c *Config) ActionTimeout() time.Duration { return c.Chain.ActionTimeout.Duration }

// LockPeriod is the staking unstake lock.
func (c *Config) LockPeriod() time.Duration { return c.Staking.LockPeriod.Duration }

// Simulated reports whether the in-memory contracts are selected.
func (c *Config) Simulated() bool { return strings.EqualFold(c.Chain.Mode, "simulated") }

// HasWallet reports whether an operator key source is configured.
func (c *Config) HasWallet() bool {
	return c.Wallet.PrivateKey != "" || c.Wallet.EncryptedKeyPath != ""
}
