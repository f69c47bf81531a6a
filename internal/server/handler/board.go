package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aegistech/base-markets/internal/domain"
)

// BoardService serves the leaderboard, news and ticker.
type BoardService interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	News(ctx context.Context) []domain.NewsItem
	Ticker(ctx context.Context) []domain.CoinPrice
}

// BoardHandler serves the side-panel endpoints.
type BoardHandler struct {
	board  BoardService
	logger *slog.Logger
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(board BoardService, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{board: board, logger: logger.With(slog.String("handler", "board"))}
}

type leaderView struct {
	Rank    int     `json:"rank"`
	User    string  `json:"user"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"winRate"`
}

// Leaderboard returns the top predictors.
// GET /api/leaderboard?limit=10
func (h *BoardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.board.Leaderboard(r.Context(), min(limit, 100))
	if err != nil {
		writeServiceError(w, r, h.logger, "leaderboard", err)
		return
	}
	out := make([]leaderView, len(rows))
	for i, e := range rows {
		out[i] = leaderView{Rank: e.Rank, User: e.User, PnL: e.PnL, WinRate: e.WinRate}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}

type newsView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	TimeAgo   string `json:"timeAgo"`
	Sentiment string `json:"sentiment"`
}

// News returns the headline feed.
// GET /api/news
func (h *BoardHandler) News(w http.ResponseWriter, r *http.Request) {
	items := h.board.News(r.Context())
	out := make([]newsView, len(items))
	for i, n := range items {
		out[i] = newsView{ID: n.ID, Title: n.Title, Source: n.Source, TimeAgo: n.TimeAgo, Sentiment: string(n.Sentiment)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": out})
}

type coinView struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// Ticker returns the latest coin prices.
// GET /api/ticker
func (h *BoardHandler) Ticker(w http.ResponseWriter, r *http.Request) {
	prices := h.board.Ticker(r.Context())
	out := make([]coinView, len(prices))
	for i, p := range prices {
		out[i] = coinView{ID: p.ID, Symbol: p.Symbol, Price: p.Price, Change24h: p.Change24h, ImageURL: p.ImageURL}
	}
	writeJSON(w, http.StatusOK, map[string]any{"coins": out})
}
