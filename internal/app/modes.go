package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aegistech/base-markets/internal/analyst"
	"github.com/aegistech/base-markets/internal/feed"
	"github.com/aegistech/base-markets/internal/server"
	"github.com/aegistech/base-markets/internal/server/handler"
	"github.com/aegistech/base-markets/internal/server/ws"
	"github.com/aegistech/base-markets/internal/service"
	"github.com/aegistech/base-markets/internal/watcher"
)

// services is the service layer built over one set of Dependencies.
type services struct {
	accounts *service.AccountService
	markets  *service.MarketService
	trades   *service.TradeService
	staking  *service.StakingService
	board    *service.BoardService
	auth     *service.AuthService
	ticker   *feed.Ticker // nil when the ticker is disabled
}

// buildServices wires the service layer and seeds the catalog tables.
func (a *App) buildServices(ctx context.Context, deps *Dependencies) (*services, error) {
	runner := service.NewActionRunner(service.RunnerDeps{
		Account:  deps.Operator(),
		Locks:    deps.LockManager,
		Activity: deps.ActivityStore,
		Audit:    deps.AuditStore,
		Balances: deps.BalanceCache,
		Bus:      deps.SignalBus,
		Notifier: deps.Notifier,
		Timeout:  a.cfg.ActionTimeout(),
	}, a.logger)

	s := &services{}
	s.accounts = service.NewAccountService(deps.Contracts, deps.BalanceCache, deps.ActivityStore, runner, a.logger)
	s.markets = service.NewMarketService(deps.MarketStore, deps.MarketCache, a.logger)
	s.trades = service.NewTradeService(s.markets, deps.Contracts, runner, s.accounts, a.logger)
	s.staking = service.NewStakingService(deps.Contracts, s.accounts, runner, service.StakingParams{
		APY:         a.cfg.Staking.APY,
		PoolBaseTVL: a.cfg.Staking.PoolBaseTVL,
		ProtocolFee: a.cfg.Staking.ProtocolFee,
		LockPeriod:  a.cfg.LockPeriod(),
	}, a.logger)

	s.auth = service.NewAuthService(deps.NonceStore, service.AuthConfig{
		Secret:   []byte(a.cfg.Auth.JWTSecret),
		Issuer:   a.cfg.Auth.Issuer,
		TokenTTL: a.cfg.Auth.TokenTTL.Duration,
		NonceTTL: a.cfg.Auth.NonceTTL.Duration,
	}, a.logger)

	var prices service.PriceFeed
	if a.cfg.Ticker.Enabled {
		s.ticker = feed.NewTicker(
			feed.NewCoinGeckoClient(a.cfg.Ticker.URL, a.cfg.Ticker.RatePerMinute),
			a.cfg.Ticker.CoinIDs,
			deps.PriceCache,
			deps.SignalBus,
			a.cfg.Ticker.Interval.Duration,
			a.logger,
		)
		prices = s.ticker
	}

	gen, err := analyst.NewGenAI(ctx, a.cfg.Analyst.APIKey)
	if err != nil {
		a.logger.WarnContext(ctx, "market analysis disabled", slog.String("error", err.Error()))
	}
	var g analyst.Generator
	if gen != nil {
		g = gen
	}
	s.board = service.NewBoardService(
		deps.LeaderboardStore,
		prices,
		analyst.New(g, a.cfg.Analyst.Model, a.logger),
		s.markets,
		a.logger,
	)

	if err := s.markets.Seed(ctx); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := s.board.Seed(ctx); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return s, nil
}

// ServerMode serves the HTTP API and WebSocket stream, plus the ticker
// that feeds it.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	svc, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startTicker(ctx, g, svc)
	a.startHTTPServer(ctx, g, deps, svc)
	return g.Wait()
}

// WatchMode runs only the unstake watcher.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode")

	g, ctx := errgroup.WithContext(ctx)
	if !a.startWatcher(ctx, g, deps) {
		return fmt.Errorf("app: watch mode: no wallets to watch (set wallet or watcher.addresses)")
	}
	return g.Wait()
}

// FullMode starts every subsystem: HTTP server, ticker, unstake watcher and
// the activity archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	svc, err := a.buildServices(ctx, deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startTicker(ctx, g, svc)
	a.startWatcher(ctx, g, deps)
	if deps.Archiver != nil {
		sched := service.NewArchiveScheduler(
			deps.Archiver,
			time.Duration(a.cfg.Archive.RetentionDays)*24*time.Hour,
			a.cfg.Archive.Interval.Duration,
			a.logger,
		)
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svc)
	}
	return g.Wait()
}

func (a *App) startTicker(ctx context.Context, g *errgroup.Group, svc *services) {
	if svc.ticker == nil {
		return
	}
	g.Go(func() error {
		return svc.ticker.Run(ctx)
	})
}

// startWatcher reports false when there is no wallet to track.
func (a *App) startWatcher(ctx context.Context, g *errgroup.Group, deps *Dependencies) bool {
	w := watcher.NewUnstakeWatcher(
		deps.Contracts,
		trackedAddresses(deps.Operator(), a.cfg.Watcher.Addresses),
		deps.SignalBus,
		deps.Notifier,
		a.logger,
	)
	if len(w.Addresses()) == 0 {
		a.logger.InfoContext(ctx, "unstake watcher idle, no wallets configured")
		return false
	}
	g.Go(func() error {
		return w.Run(ctx, a.cfg.Watcher.Interval.Duration)
	})
	return true
}

// startHTTPServer adds the API server and the WebSocket hub to g. The server
// is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *services) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	info := handler.StatusInfo{
		Mode:      a.cfg.Mode,
		ChainMode: deps.ChainMode,
		ChainID:   deps.ChainID,
		Operator:  deps.Operator(),
		StartedAt: time.Now().UTC(),
	}
	if svc.ticker != nil {
		info.TickerFallback = svc.ticker.UsingFallback
	}

	srv := server.NewServer(server.Config{
		Port:          a.cfg.Server.Port,
		CORSOrigins:   a.cfg.Server.CORSOrigins,
		APIKey:        a.cfg.Server.APIKey,
		RatePerMinute: a.cfg.Server.RatePerMinute,
		Operator:      deps.Operator(),
	}, server.Handlers{
		Health:   handler.NewHealthHandler(deps.Checks, a.logger),
		Status:   handler.NewStatusHandler(info),
		Auth:     handler.NewAuthHandler(svc.auth, a.logger),
		Markets:  handler.NewMarketHandler(svc.markets, svc.trades, svc.board, a.logger),
		Accounts: handler.NewAccountHandler(svc.accounts, a.logger),
		Staking:  handler.NewStakingHandler(svc.staking, a.logger),
		Board:    handler.NewBoardHandler(svc.board, a.logger),
	}, hub, svc.auth, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
