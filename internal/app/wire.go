package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/aegistech/base-markets/internal/blob/s3"
	cachemem "github.com/aegistech/base-markets/internal/cache/memory"
	"github.com/aegistech/base-markets/internal/cache/redis"
	"github.com/aegistech/base-markets/internal/chain"
	"github.com/aegistech/base-markets/internal/chain/sim"
	"github.com/aegistech/base-markets/internal/config"
	"github.com/aegistech/base-markets/internal/crypto"
	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
	"github.com/aegistech/base-markets/internal/notify"
	"github.com/aegistech/base-markets/internal/server/handler"
	storemem "github.com/aegistech/base-markets/internal/store/memory"
	"github.com/aegistech/base-markets/internal/store/postgres"
)

const (
	memoryStreamMaxLen = 10_000
	memoryAuditMax     = 10_000
	balanceCacheTTL    = 15 * time.Second
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function. Optional parts are nil interfaces when not configured.
type Dependencies struct {
	// Wallet is the operator account; nil runs the backend read-only.
	Wallet    *crypto.Wallet
	Contracts domain.Contracts
	ChainMode string
	ChainID   int

	// Stores. Activity and audit fall back to memory without Postgres.
	MarketStore      domain.MarketStore
	ActivityStore    domain.ActivityStore
	AuditStore       domain.AuditStore
	LeaderboardStore domain.LeaderboardStore

	// Caches. The coordination primitives fall back to memory without Redis.
	BalanceCache domain.BalanceCache
	MarketCache  domain.MarketCache
	PriceCache   domain.PriceCache
	NonceStore   domain.NonceStore
	LockManager  domain.LockManager
	RateLimiter  domain.RateLimiter
	SignalBus    domain.SignalBus

	// Archiver is set only when both S3 and Postgres are enabled.
	Archiver domain.Archiver

	Notifier *notify.Notifier

	// Checks probe the wired infrastructure for /api/health.
	Checks map[string]handler.Check
}

// Operator returns the operator address, zero when read-only.
func (d *Dependencies) Operator() common.Address {
	if d.Wallet == nil {
		return common.Address{}
	}
	return d.Wallet.Address()
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		ChainID: cfg.Chain.ChainID,
		Checks:  make(map[string]handler.Check),
	}

	// --- Operator wallet ---
	wallet, err := loadWallet(cfg)
	if err != nil {
		return fail(fmt.Errorf("wire: wallet: %w", err))
	}
	deps.Wallet = wallet
	if wallet == nil {
		logger.WarnContext(ctx, "no operator key configured, running read-only")
	} else {
		logger.InfoContext(ctx, "operator wallet loaded", slog.String("address", wallet.Address().Hex()))
	}

	// --- Contracts ---
	if cfg.Simulated() {
		faucet, err := money.FromFloat(cfg.Chain.SimFaucetAmount, money.USDCDecimals)
		if err != nil {
			return fail(fmt.Errorf("wire: sim faucet: %w", err))
		}
		deps.Contracts = sim.New(sim.Options{
			Account:    deps.Operator(),
			Faucet:     faucet,
			LockPeriod: cfg.LockPeriod(),
			APY:        cfg.Staking.APY,
		})
		deps.ChainMode = "simulated"
	} else {
		client, err := chain.Dial(ctx, cfg.Chain.RPCURL, int64(cfg.Chain.ChainID))
		if err != nil {
			return fail(fmt.Errorf("wire: chain: %w", err))
		}
		closers = append(closers, client.Close)

		var signer domain.Signer
		if wallet != nil {
			signer = wallet
		}
		gw, err := chain.NewGateway(client.Backend(), client.ChainID(), signer, chain.Addresses{
			Vault:   common.HexToAddress(cfg.Chain.VaultAddress),
			Staking: common.HexToAddress(cfg.Chain.StakingAddress),
			Market:  common.HexToAddress(cfg.Chain.MarketAddress),
			USDC:    common.HexToAddress(cfg.Chain.USDCAddress),
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("wire: gateway: %w", err))
		}
		gw.LoadDecimals(ctx)
		deps.Contracts = gw
		deps.ChainMode = "rpc"
		deps.Checks["chain"] = func(ctx context.Context) error {
			_, err := client.BlockNumber(ctx)
			return err
		}
	}

	// --- PostgreSQL ---
	var pool *postgres.Client
	if cfg.Supabase.Enabled {
		pool, err = postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pool.Close)

		if cfg.Supabase.RunMigrations {
			if err := pool.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		p := pool.Pool()
		deps.MarketStore = postgres.NewMarketStore(p)
		deps.ActivityStore = postgres.NewActivityStore(p)
		deps.AuditStore = postgres.NewAuditStore(p)
		deps.LeaderboardStore = postgres.NewLeaderboardStore(p)
		deps.Checks["postgres"] = pool.Ping
	} else {
		deps.ActivityStore = storemem.NewActivityStore()
		deps.AuditStore = storemem.NewAuditStore(memoryAuditMax)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.BalanceCache = redis.NewBalanceCache(rc, balanceCacheTTL)
		deps.MarketCache = redis.NewMarketCache(rc)
		deps.PriceCache = redis.NewPriceCache(rc)
		deps.NonceStore = redis.NewNonceStore(rc)
		deps.LockManager = redis.NewLockManager(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.Checks["redis"] = rc.Ping
	} else {
		deps.NonceStore = cachemem.NewNonceStore()
		deps.LockManager = cachemem.NewLockManager()
		deps.RateLimiter = cachemem.NewRateLimiter()
		deps.SignalBus = cachemem.NewSignalBus(memoryStreamMaxLen)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Checks["s3"] = s3Client.Health

		// Archive only from postgres.
		if pool != nil {
			deps.Archiver = s3blob.NewActivityArchiver(
				s3blob.NewWriter(s3Client),
				deps.ActivityStore,
				deps.AuditStore,
				logger,
			)
		} else {
			logger.WarnContext(ctx, "s3 enabled without supabase, activity archiving disabled")
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// loadWallet returns nil without error when no key source is configured.
func loadWallet(cfg *config.Config) (*crypto.Wallet, error) {
	w, err := crypto.LoadWallet(crypto.KeySource{
		RawHex:        cfg.Wallet.PrivateKey,
		EncryptedPath: cfg.Wallet.EncryptedKeyPath,
		Password:      cfg.Wallet.KeyPassword,
	})
	if errors.Is(err, crypto.ErrNoKey) {
		return nil, nil
	}
	return w, err
}

// trackedAddresses is the operator wallet plus the configured watch list.
func trackedAddresses(operator common.Address, extra []string) []common.Address {
	out := make([]common.Address, 0, len(extra)+1)
	out = append(out, operator)
	for _, a := range extra {
		out = append(out, common.HexToAddress(a))
	}
	return out
}
