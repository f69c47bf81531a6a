package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/aegistech/base-markets/internal/domain"
	"github.com/aegistech/base-markets/internal/money"
	"github.com/aegistech/base-markets/internal/service"
)

// MarketService is the catalog side of the market handler.
type MarketService interface {
	List(ctx context.Context) ([]domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
}

// TradeService quotes and buys outcome shares.
type TradeService interface {
	Quote(ctx context.Context, marketID string, outcome domain.Outcome, amount *big.Int) (service.Quote, error)
	Buy(ctx context.Context, marketID string, outcome domain.Outcome, amount *big.Int) (domain.Activity, service.Quote, domain.Balances, error)
}

// AnalysisService produces AI commentary for a market.
type AnalysisService interface {
	Analysis(ctx context.Context, marketID string) (domain.Market, string, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets  MarketService
	trades   TradeService
	analysis AnalysisService
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, trades TradeService, analysis AnalysisService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:  markets,
		trades:   trades,
		analysis: analysis,
		logger:   logger.With(slog.String("handler", "market")),
	}
}

type listMarketsResponse struct {
	Markets []marketView `json:"markets"`
	Total   int          `json:"total"`
}

// ListMarkets returns every market, optionally filtered by category.
// GET /api/markets?category=Crypto
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := h.markets.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list markets", err)
		return
	}

	category := domain.Category(r.URL.Query().Get("category"))
	out := make([]marketView, 0, len(markets))
	for _, m := range markets {
		if category != "" && m.Category != category {
			continue
		}
		out = append(out, toMarketView(m))
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{Markets: out, Total: len(out)})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := h.markets.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "get market", err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketView(m))
}

// Quote previews a purchase.
// GET /api/markets/{id}/quote?outcome=YES&amount=10
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	outcome, err := domain.ParseOutcome(q.Get("outcome"))
	if err != nil {
		writeServiceError(w, r, h.logger, "quote", err)
		return
	}
	amt, err := money.ParseUSDC(q.Get("amount"))
	if err != nil {
		writeServiceError(w, r, h.logger, "quote", err)
		return
	}

	quote, err := h.trades.Quote(r.Context(), r.PathValue("id"), outcome, amt)
	if err != nil {
		writeServiceError(w, r, h.logger, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteView(quote))
}

type buyRequest struct {
	Outcome string `json:"outcome"`
	Amount  string `json:"amount"`
}

type buyResponse struct {
	actionResponse
	Quote quoteView `json:"quote"`
}

// Buy purchases outcome shares with the operator wallet.
// POST /api/markets/{id}/buy {"outcome":"YES","amount":"10"}
func (h *MarketHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeServiceError(w, r, h.logger, "buy", err)
		return
	}
	amt, err := money.ParseUSDC(req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, "buy", err)
		return
	}

	act, quote, bal, err := h.trades.Buy(r.Context(), r.PathValue("id"), outcome, amt)
	if err != nil {
		writeServiceError(w, r, h.logger, "buy", err)
		return
	}
	writeJSON(w, http.StatusOK, buyResponse{
		actionResponse: actionResponse{Activity: toActivityView(act), Balances: toBalancesView(bal)},
		Quote:          toQuoteView(quote),
	})
}

// Analysis returns AI commentary on a market.
// GET /api/markets/{id}/analysis
func (h *MarketHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	m, text, err := h.analysis.Analysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, "analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"marketId": m.ID,
		"analysis": text,
	})
}
