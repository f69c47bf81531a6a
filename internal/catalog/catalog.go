// Package catalog holds the curated seed content: markets, the demo profile,
// leaderboard rows, news headlines and fallback ticker prices.
package catalog

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aegistech/base-markets/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Markets returns a fresh copy of the market catalog, ordered by id.
func Markets() []domain.Market {
	return []domain.Market{
		{
			ID:          "1",
			Question:    "Will ETH close above $5,000 on Dec 31, 2026?",
			Description: "Resolves YES if the Coinbase ETH-USD daily close on December 31, 2026 is above $5,000.",
			EndDate:     date(2026, time.December, 31),
			Volume:      1_250_000,
			YesPrice:    0.42,
			NoPrice:     0.58,
			ImageURL:    "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
			Category:    domain.CategoryCrypto,
		},
		{
			ID:          "2",
			Question:    "Will Base daily transactions exceed 20M before June 2027?",
			Description: "Resolves YES if any UTC day before June 1, 2027 records more than 20 million transactions on Base.",
			EndDate:     date(2027, time.June, 1),
			Volume:      640_000,
			YesPrice:    0.35,
			NoPrice:     0.65,
			ImageURL:    "https://avatars.githubusercontent.com/u/108554348",
			Category:    domain.CategoryCrypto,
		},
		{
			ID:          "3",
			Question:    "Will BTC reach a new all-time high in Q1 2027?",
			Description: "Resolves YES if BTC-USD trades above its prior all-time high at any point between January 1 and March 31, 2027.",
			EndDate:     date(2027, time.March, 31),
			Volume:      2_100_000,
			YesPrice:    0.55,
			NoPrice:     0.45,
			ImageURL:    "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
			Category:    domain.CategoryCrypto,
		},
		{
			ID:          "4",
			Question:    "Will the US pass a stablecoin market-structure bill in 2026?",
			Description: "Resolves YES if a federal crypto market-structure bill is signed into law by December 31, 2026.",
			EndDate:     date(2026, time.December, 31),
			Volume:      870_000,
			YesPrice:    0.28,
			NoPrice:     0.72,
			ImageURL:    "https://images.unsplash.com/photo-1529107386315-e1a2ed48a620",
			Category:    domain.CategoryPolitics,
		},
		{
			ID:          "5",
			Question:    "Will the Kansas City Chiefs win Super Bowl LXI?",
			Description: "Resolves YES if the Kansas City Chiefs win Super Bowl LXI in February 2027.",
			EndDate:     date(2027, time.February, 14),
			Volume:      1_480_000,
			YesPrice:    0.18,
			NoPrice:     0.82,
			ImageURL:    "https://images.unsplash.com/photo-1566577739112-5180d4bf9390",
			Category:    domain.CategorySports,
		},
		{
			ID:          "6",
			Question:    "Will a memecoin feature in a Super Bowl LXI commercial?",
			Description: "Resolves YES if a commercial aired during the Super Bowl LXI broadcast promotes a memecoin by name.",
			EndDate:     date(2027, time.February, 14),
			Volume:      310_000,
			YesPrice:    0.22,
			NoPrice:     0.78,
			ImageURL:    "https://images.unsplash.com/photo-1621761191319-c6fb62004040",
			Category:    domain.CategoryPopCulture,
		},
	}
}

// Market returns the catalog market with id.
func Market(id string) (domain.Market, bool) {
	for _, m := range Markets() {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Market{}, false
}

// Profile returns the demo profile bound to the connected wallet address.
func Profile(addr common.Address) domain.UserProfile {
	return domain.UserProfile{
		FID:           8453,
		Username:      "basebuilder.eth",
		PfpURL:        "https://i.pravatar.cc/150?u=basebuilder",
		WalletAddress: addr.Hex(),
		Points:        1250,
	}
}

// Leaderboard returns the seeded predictor rankings.
func Leaderboard() []domain.LeaderboardEntry {
	return []domain.LeaderboardEntry{
		{Rank: 1, User: "jesse.base.eth", PnL: 48_250.40, WinRate: 72.5},
		{Rank: 2, User: "onchainsummer", PnL: 31_120.00, WinRate: 68.1},
		{Rank: 3, User: "degenerate.eth", PnL: 22_870.75, WinRate: 61.3},
		{Rank: 4, User: "brettmaxi", PnL: 15_400.10, WinRate: 58.9},
		{Rank: 5, User: "aerodrome_lp", PnL: 9_980.55, WinRate: 55.0},
		{Rank: 6, User: "basebuilder.eth", PnL: 4_215.30, WinRate: 52.4},
	}
}

// News returns the headline feed.
func News() []domain.NewsItem {
	return []domain.NewsItem{
		{ID: "1", Title: "Base TVL climbs to a new record as stablecoin inflows accelerate", Source: "The Block", TimeAgo: "12m ago", Sentiment: domain.SentimentBullish},
		{ID: "2", Title: "ETH options open interest spikes ahead of year-end expiry", Source: "CoinDesk", TimeAgo: "38m ago", Sentiment: domain.SentimentNeutral},
		{ID: "3", Title: "Senate committee delays vote on market-structure bill", Source: "Decrypt", TimeAgo: "1h ago", Sentiment: domain.SentimentBearish},
		{ID: "4", Title: "Aerodrome volume overtakes rival DEXs on Base for third straight week", Source: "DL News", TimeAgo: "2h ago", Sentiment: domain.SentimentBullish},
		{ID: "5", Title: "Bitcoin miners sell into strength as hashprice cools", Source: "Blockworks", TimeAgo: "4h ago", Sentiment: domain.SentimentBearish},
	}
}

// FallbackCoins is served when the price API is unreachable. IDs are the
// list index, matching what clients receive for the static set.
func FallbackCoins(now time.Time) []domain.CoinPrice {
	static := []struct {
		symbol string
		price  float64
		change float64
	}{
		{"BTC", 98_450.00, 1.85},
		{"ETH", 3_620.40, 2.41},
		{"SOL", 212.35, -0.92},
		{"BNB", 705.10, 0.37},
		{"AERO", 1.42, 4.12},
		{"DEGEN", 0.0124, -3.05},
		{"BRETT", 0.158, 6.77},
		{"VIRTUAL", 2.31, -1.48},
		{"USDC", 1.00, 0.01},
	}
	out := make([]domain.CoinPrice, len(static))
	for i, c := range static {
		out[i] = domain.CoinPrice{
			ID:        strconv.Itoa(i),
			Symbol:    c.symbol,
			Price:     c.price,
			Change24h: c.change,
			UpdatedAt: now,
		}
	}
	return out
}
