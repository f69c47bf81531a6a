package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aegistech/base-markets/internal/catalog"
	"github.com/aegistech/base-markets/internal/domain"
)

// DefaultLeaderboardLimit is the page size when the caller gives none.
const DefaultLeaderboardLimit = 10

// PriceFeed serves the latest ticker snapshot. *feed.Ticker satisfies it.
type PriceFeed interface {
	Latest(ctx context.Context) []domain.CoinPrice
}

// MarketAnalyst produces a short market commentary. *analyst.Analyst
// satisfies it.
type MarketAnalyst interface {
	Analyze(ctx context.Context, question string, yesPrice float64) string
}

// BoardService serves the read-only side panels: leaderboard, news, ticker
// and market analysis.
type BoardService struct {
	leaders domain.LeaderboardStore // optional
	prices  PriceFeed               // optional
	analyst MarketAnalyst
	markets *MarketService
	logger  *slog.Logger
}

// NewBoardService creates a BoardService. leaders and prices may be nil.
func NewBoardService(
	leaders domain.LeaderboardStore,
	prices PriceFeed,
	analyst MarketAnalyst,
	markets *MarketService,
	logger *slog.Logger,
) *BoardService {
	return &BoardService{
		leaders: leaders,
		prices:  prices,
		analyst: analyst,
		markets: markets,
		logger:  logger.With(slog.String("component", "board_service")),
	}
}

// Seed writes the built-in leaderboard to the store.
func (s *BoardService) Seed(ctx context.Context) error {
	if s.leaders == nil {
		return nil
	}
	if err := s.leaders.UpsertBatch(ctx, catalog.Leaderboard()); err != nil {
		return fmt.Errorf("board_service: seed leaderboard: %w", err)
	}
	return nil
}

// Leaderboard returns the top limit predictors by PnL.
func (s *BoardService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if s.leaders != nil {
		rows, err := s.leaders.Top(ctx, limit)
		if err == nil && len(rows) > 0 {
			return rows, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "leaderboard query failed, using catalog", slog.String("error", err.Error()))
		}
	}
	rows := catalog.Leaderboard()
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// News returns the headline feed.
func (s *BoardService) News(context.Context) []domain.NewsItem {
	return catalog.News()
}

// Ticker returns the latest coin prices.
func (s *BoardService) Ticker(ctx context.Context) []domain.CoinPrice {
	if s.prices == nil {
		return catalog.FallbackCoins(time.Now().UTC())
	}
	return s.prices.Latest(ctx)
}

// Analysis returns commentary on one market. Generation failures come back
// as fixed messages, never as errors; only an unknown market fails.
func (s *BoardService) Analysis(ctx context.Context, marketID string) (domain.Market, string, error) {
	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return domain.Market{}, "", err
	}
	return m, s.analyst.Analyze(ctx, m.Question, m.YesPrice), nil
}
