package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BASEMARKETS_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults and
// environment are used instead. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BASEMARKETS_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "BASEMARKETS_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "BASEMARKETS_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "BASEMARKETS_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.Mode, "BASEMARKETS_CHAIN_MODE")
	setStr(&cfg.Chain.RPCURL, "BASEMARKETS_CHAIN_RPC_URL")
	setInt(&cfg.Chain.ChainID, "BASEMARKETS_CHAIN_ID")
	setStr(&cfg.Chain.VaultAddress, "BASEMARKETS_CHAIN_VAULT_ADDRESS")
	setStr(&cfg.Chain.StakingAddress, "BASEMARKETS_CHAIN_STAKING_ADDRESS")
	setStr(&cfg.Chain.MarketAddress, "BASEMARKETS_CHAIN_MARKET_ADDRESS")
	setStr(&cfg.Chain.USDCAddress, "BASEMARKETS_CHAIN_USDC_ADDRESS")
	setDuration(&cfg.Chain.ActionTimeout, "BASEMARKETS_CHAIN_ACTION_TIMEOUT")
	setFloat64(&cfg.Chain.SimFaucetAmount, "BASEMARKETS_CHAIN_SIM_FAUCET_AMOUNT")

	// ── Staking ──
	setFloat64(&cfg.Staking.APY, "BASEMARKETS_STAKING_APY")
	setFloat64(&cfg.Staking.PoolBaseTVL, "BASEMARKETS_STAKING_POOL_BASE_TVL")
	setFloat64(&cfg.Staking.ProtocolFee, "BASEMARKETS_STAKING_PROTOCOL_FEE")
	setDuration(&cfg.Staking.LockPeriod, "BASEMARKETS_STAKING_LOCK_PERIOD")

	// ── Auth ──
	setStr(&cfg.Auth.JWTSecret, "BASEMARKETS_AUTH_JWT_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "BASEMARKETS_AUTH_TOKEN_TTL")
	setDuration(&cfg.Auth.NonceTTL, "BASEMARKETS_AUTH_NONCE_TTL")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "BASEMARKETS_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "BASEMARKETS_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "BASEMARKETS_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "BASEMARKETS_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "BASEMARKETS_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "BASEMARKETS_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "BASEMARKETS_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "BASEMARKETS_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "BASEMARKETS_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "BASEMARKETS_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "BASEMARKETS_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BASEMARKETS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BASEMARKETS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BASEMARKETS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BASEMARKETS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BASEMARKETS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BASEMARKETS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BASEMARKETS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "BASEMARKETS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "BASEMARKETS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BASEMARKETS_S3_REGION")
	setStr(&cfg.S3.Bucket, "BASEMARKETS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BASEMARKETS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BASEMARKETS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BASEMARKETS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BASEMARKETS_S3_FORCE_PATH_STYLE")

	// ── Ticker / analyst / watcher / archive ──
	setBool(&cfg.Ticker.Enabled, "BASEMARKETS_TICKER_ENABLED")
	setStr(&cfg.Ticker.URL, "BASEMARKETS_TICKER_URL")
	setStringSlice(&cfg.Ticker.CoinIDs, "BASEMARKETS_TICKER_COIN_IDS")
	setDuration(&cfg.Ticker.Interval, "BASEMARKETS_TICKER_INTERVAL")
	setInt(&cfg.Ticker.RatePerMinute, "BASEMARKETS_TICKER_RATE_PER_MINUTE")
	setStr(&cfg.Analyst.APIKey, "BASEMARKETS_ANALYST_API_KEY")
	setStr(&cfg.Analyst.APIKey, "GEMINI_API_KEY") // compatibility alias
	setStr(&cfg.Analyst.Model, "BASEMARKETS_ANALYST_MODEL")
	setDuration(&cfg.Watcher.Interval, "BASEMARKETS_WATCHER_INTERVAL")
	setStringSlice(&cfg.Watcher.Addresses, "BASEMARKETS_WATCHER_ADDRESSES")
	setInt(&cfg.Archive.RetentionDays, "BASEMARKETS_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "BASEMARKETS_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BASEMARKETS_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BASEMARKETS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BASEMARKETS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BASEMARKETS_SERVER_API_KEY")
	setInt(&cfg.Server.RatePerMinute, "BASEMARKETS_SERVER_RATE_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BASEMARKETS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BASEMARKETS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BASEMARKETS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BASEMARKETS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BASEMARKETS_MODE")
	setStr(&cfg.LogLevel, "BASEMARKETS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
