package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aegistech/base-markets/internal/catalog"
	"github.com/aegistech/base-markets/internal/domain"
)

// MarketService serves the market catalog from Postgres when wired, the
// shared cache in front of it, or the built-in catalog.
type MarketService struct {
	markets domain.MarketStore // optional
	cache   domain.MarketCache // optional
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. Either dependency may be nil.
func NewMarketService(markets domain.MarketStore, cache domain.MarketCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// Seed upserts the built-in catalog into the store and refreshes the cache.
func (s *MarketService) Seed(ctx context.Context) error {
	if s.markets == nil {
		return nil
	}
	markets := catalog.Markets()
	if err := s.markets.UpsertBatch(ctx, markets); err != nil {
		return fmt.Errorf("market_service: seed: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetAll(ctx, markets); err != nil {
			s.logger.WarnContext(ctx, "market cache refresh failed", slog.String("error", err.Error()))
		}
	}
	s.logger.InfoContext(ctx, "market catalog seeded", slog.Int("count", len(markets)))
	return nil
}

// List returns every market in catalog order.
func (s *MarketService) List(ctx context.Context) ([]domain.Market, error) {
	if s.cache != nil {
		if all, err := s.cache.All(ctx); err == nil && len(all) > 0 {
			return all, nil
		}
	}
	if s.markets == nil {
		return catalog.Markets(), nil
	}

	all, err := s.markets.List(ctx, domain.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetAll(ctx, all); err != nil {
			s.logger.WarnContext(ctx, "market cache set failed", slog.String("error", err.Error()))
		}
	}
	return all, nil
}

// Get returns one market, checking the cache first.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}
	if s.markets == nil {
		m, ok := catalog.Market(id)
		if !ok {
			return domain.Market{}, fmt.Errorf("market_service: market %q: %w", id, domain.ErrNotFound)
		}
		return m, nil
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, fmt.Errorf("market_service: market %q: %w", id, domain.ErrNotFound)
		}
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market cache set failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return m, nil
}
