package domain

import "time"

// LeaderboardEntry is one row of the predictor leaderboard.
type LeaderboardEntry struct {
	Rank    int
	User    string
	PnL     float64
	WinRate float64
}

// Sentiment classifies a news item.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// NewsItem is a headline in the news feed.
type NewsItem struct {
	ID        string
	Title     string
	Source    string
	TimeAgo   string
	Sentiment Sentiment
}

// CoinPrice is one entry of the price ticker.
type CoinPrice struct {
	ID        string
	Symbol    string
	Price     float64
	Change24h float64
	ImageURL  string
	UpdatedAt time.Time
}
