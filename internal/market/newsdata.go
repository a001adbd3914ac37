package market

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
	"trade-journal-assistant/internal/normalize"
)

// NewsData reads the latest headlines from newsdata.io.
type NewsData struct {
	rest   *restClient
	apiKey string
}

var _ NewsProvider = (*NewsData)(nil)

func NewNewsData(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *NewsData {
	return &NewsData{
		rest:   newRestClient("newsdata", cfg.NewsURL, cfg, logger, rec),
		apiKey: cfg.NewsAPIKey,
	}
}

type newsArticle struct {
	ArticleID   string   `json:"article_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Link        string   `json:"link"`
	PubDate     string   `json:"pubDate"`
	SourceName  string   `json:"source_name"`
	SourceURL   string   `json:"source_url"`
	ImageURL    *string  `json:"image_url"`
	Category    []string `json:"category"`
}

type newsResponse struct {
	Status  string        `json:"status"`
	Results []newsArticle `json:"results"`
}

// LatestNews returns articles in the order the provider ranks them.
func (c *NewsData) LatestNews(ctx context.Context, query, language, country string) ([]NewsItem, error) {
	params := map[string]string{"apikey": c.apiKey}
	if query != "" {
		params["q"] = query
	}
	if language != "" {
		params["language"] = language
	}
	if country != "" {
		params["country"] = country
	}

	var result newsResponse
	req := c.rest.client.R().
		SetQueryParams(params).
		SetResult(&result)

	if _, err := c.rest.doRequest(ctx, "GET", "/latest", req); err != nil {
		return nil, fmt.Errorf("failed to get latest news: %w", err)
	}
	if result.Status != "" && result.Status != "success" {
		return nil, fmt.Errorf("failed to get latest news: status %q", result.Status)
	}

	items := make([]NewsItem, 0, len(result.Results))
	for _, a := range result.Results {
		var published time.Time
		if t, ok := normalize.ParseTime(a.PubDate); ok {
			published = t
		}
		items = append(items, NewsItem{
			ID:          a.ArticleID,
			Title:       a.Title,
			Summary:     a.Description,
			Link:        a.Link,
			PublishedAt: published,
			SourceName:  a.SourceName,
			SourceURL:   a.SourceURL,
			ImageURL:    a.ImageURL,
			Categories:  uniqueStrings(a.Category),
		})
	}
	return items, nil
}
