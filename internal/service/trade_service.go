package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
)

// Quote is the payout preview for buying amount of one outcome. Prices are
// fixed per market, so the quote does not depend on order size.
type Quote struct {
	MarketID        string
	Outcome         domain.Outcome
	Price           float64
	Amount          *big.Int
	Shares          float64
	PotentialReturn float64 // $1 per winning share
	PotentialProfit float64
	ProfitPercent   float64
}

// NewQuote prices amount at the market's current outcome price.
func NewQuote(m domain.Market, outcome domain.Outcome, amount *big.Int) (Quote, error) {
	if m.IsResolved {
		return Quote{}, fmt.Errorf("market %s: %w", m.ID, domain.ErrMarketClosed)
	}
	if err := money.Validate(amount, nil); err != nil {
		return Quote{}, err
	}
	price := m.Price(outcome)
	if price <= 0 || price >= 1 {
		return Quote{}, fmt.Errorf("market %s: %s price %.4f out of range: %w", m.ID, outcome, price, domain.ErrMarketClosed)
	}

	spend := money.USDCFloat(amount)
	shares := spend / price
	return Quote{
		MarketID:        m.ID,
		Outcome:         outcome,
		Price:           price,
		Amount:          new(big.Int).Set(amount),
		Shares:          shares,
		PotentialReturn: shares,
		PotentialProfit: shares - spend,
		ProfitPercent:   (1 - price) / price * 100,
	}, nil
}

// TradeService quotes and buys outcome shares.
type TradeService struct {
	markets   *MarketService
	contracts domain.Contracts
	runner    *ActionRunner
	accounts  *AccountService
	logger    *slog.Logger
}

// NewTradeService creates a TradeService.
func NewTradeService(
	markets *MarketService,
	contracts domain.Contracts,
	runner *ActionRunner,
	accounts *AccountService,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		markets:   markets,
		contracts: contracts,
		runner:    runner,
		accounts:  accounts,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// Quote previews a purchase.
func (s *TradeService) Quote(ctx context.Context, marketID string, outcome domain.Outcome, amount *big.Int) (Quote, error) {
	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return Quote{}, err
	}
	return NewQuote(m, outcome, amount)
}

// Buy spends amount of wallet USDC on outcome shares of marketID.
func (s *TradeService) Buy(ctx context.Context, marketID string, outcome domain.Outcome, amount *big.Int) (domain.Activity, Quote, domain.Balances, error) {
	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return domain.Activity{}, Quote{}, domain.Balances{}, err
	}
	q, err := NewQuote(m, outcome, amount)
	if err != nil {
		return domain.Activity{}, Quote{}, domain.Balances{}, err
	}
	id, err := m.ContractID()
	if err != nil {
		return domain.Activity{}, Quote{}, domain.Balances{}, fmt.Errorf("trade_service: %w", err)
	}

	act, bal, err := s.accounts.act(ctx, Action{
		Kind:     domain.ActivityBuyShares,
		Event:    domain.EventTrade,
		Channel:  domain.ChannelTrades,
		MarketID: m.ID,
		Outcome:  outcome,
		Amount:   amount,
		Check:    boundBy(s.contracts.WalletBalance, s.runner.Account(), amount),
		Call: func(ctx context.Context) (domain.TxResult, error) {
			return s.contracts.BuyShares(ctx, id, outcome, amount)
		},
	})
	if err != nil {
		return act, q, bal, err
	}
	s.logger.InfoContext(ctx, "shares bought",
		slog.String("market_id", m.ID),
		slog.String("outcome", string(outcome)),
		slog.Float64("shares", q.Shares),
	)
	return act, q, bal, nil
}
