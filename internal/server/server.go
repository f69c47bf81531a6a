package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/server/handler"
	"github.com/aegistech/base-markets/internal/server/middleware"
	"github.com/aegistech/base-markets/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port          int
	CORSOrigins   []string
	APIKey        string // if empty, only wallet tokens authenticate
	RatePerMinute int    // 0 disables rate limiting
	Operator      common.Address
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Auth     *handler.AuthHandler
	Markets  *handler.MarketHandler
	Accounts *handler.AccountHandler
	Staking  *handler.StakingHandler
	Board    *handler.BoardHandler
}

// Server is the HTTP + WebSocket API of the BaseMarkets backend.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// Transaction routes require a wallet token of the operator (or the API key);
// limiter may be nil when RatePerMinute is 0.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, tokens middleware.TokenParser, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	authed := middleware.Authenticate(tokens, cfg.APIKey)
	operator := func(fn http.HandlerFunc) http.Handler {
		return authed(middleware.RequireOperator(cfg.Operator)(fn))
	}

	// Public reads.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("POST /api/auth/nonce", handlers.Auth.Nonce)
	mux.HandleFunc("POST /api/auth/verify", handlers.Auth.Verify)

	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", handlers.Markets.Quote)
	mux.HandleFunc("GET /api/markets/{id}/analysis", handlers.Markets.Analysis)

	mux.HandleFunc("GET /api/leaderboard", handlers.Board.Leaderboard)
	mux.HandleFunc("GET /api/news", handlers.Board.News)
	mux.HandleFunc("GET /api/ticker", handlers.Board.Ticker)

	mux.HandleFunc("GET /api/accounts/{address}/balances", handlers.Accounts.Balances)
	mux.HandleFunc("GET /api/accounts/{address}/activity", handlers.Accounts.Activity)
	mux.HandleFunc("GET /api/accounts/{address}/unstake", handlers.Staking.Unstake)
	mux.HandleFunc("GET /api/accounts/{address}/staking", handlers.Staking.Position)

	// Session.
	mux.Handle("GET /api/me", authed(http.HandlerFunc(handlers.Accounts.Me)))

	// Transactions.
	mux.Handle("POST /api/account/deposit", operator(handlers.Accounts.Deposit))
	mux.Handle("POST /api/account/withdraw", operator(handlers.Accounts.Withdraw))
	mux.Handle("POST /api/markets/{id}/buy", operator(handlers.Markets.Buy))
	mux.Handle("POST /api/staking/stake", operator(handlers.Staking.Stake))
	mux.Handle("POST /api/staking/unstake", operator(handlers.Staking.RequestUnstake))
	mux.Handle("POST /api/staking/complete", operator(handlers.Staking.CompleteUnstake))
	mux.Handle("POST /api/staking/claim", operator(handlers.Staking.ClaimRewards))

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	if cfg.RatePerMinute > 0 && limiter != nil {
		h = middleware.RateLimit(limiter, cfg.RatePerMinute, time.Minute, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
