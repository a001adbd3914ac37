// Package market assembles a market snapshot from independent data providers.
package market

import (
	"context"
	"time"
)

// Leg is one independently fetched and independently degradable part of a snapshot.
type Leg string

const (
	LegCrypto    Leg = "crypto"
	LegMetal     Leg = "metal"
	LegSentiment Leg = "sentiment"
	LegNews      Leg = "news"
)

// legOrder fixes the order legs are reported in Snapshot.Degraded.
var legOrder = []Leg{LegCrypto, LegMetal, LegSentiment, LegNews}

// Quote is a price with its 24h change.
type Quote struct {
	Price        float64 `json:"price"`
	Change24hAbs float64 `json:"change24hAbs"`
	Change24hPct float64 `json:"change24hPct"`
}

// Sentiment is a market fear/greed reading.
type Sentiment struct {
	Value int       `json:"value"`
	Label string    `json:"label"`
	AsOf  time.Time `json:"asOf"`
}

// NewsItem is one headline. Categories hold no duplicates.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
	SourceName  string    `json:"sourceName"`
	SourceURL   string    `json:"sourceUrl"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Categories  []string  `json:"categories"`
}

// Snapshot is the merged view handed to the chat assistant.
// Every leg is always populated, with its static default when all sources failed.
type Snapshot struct {
	CryptoQuotes map[string]Quote `json:"cryptoQuotes"`
	MetalQuote   *Quote           `json:"metalQuote"`
	Sentiment    *Sentiment       `json:"sentiment"`
	News         []NewsItem       `json:"news"`

	Degraded  []Leg     `json:"degraded,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// CryptoQuoteProvider returns USD quotes keyed by coin id.
type CryptoQuoteProvider interface {
	SimplePrice(ctx context.Context, ids []string) (map[string]Quote, error)
}

// SpotPriceProvider returns a quote for a currency pair such as "XAU/USD".
type SpotPriceProvider interface {
	SpotPrice(ctx context.Context, pair string) (Quote, error)
}

// SentimentProvider returns the latest sentiment index reading.
type SentimentProvider interface {
	LatestSentiment(ctx context.Context) (Sentiment, error)
}

// NewsProvider returns the latest articles matching query, newest first.
type NewsProvider interface {
	LatestNews(ctx context.Context, query, language, country string) ([]NewsItem, error)
}

// changeFromPct derives the absolute 24h move from the current price and percent change.
func changeFromPct(price, pct float64) float64 {
	if 100+pct == 0 {
		return 0
	}
	return price * pct / (100 + pct)
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
