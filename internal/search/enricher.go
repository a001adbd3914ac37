package search

import (
	"context"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
)

// Result is a search hit with its page content, when it could be fetched.
type Result struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Author      *string    `json:"author,omitempty"`
	Content     *string    `json:"content,omitempty"`
}

// Enricher turns a free-text question into recent, domain-restricted news context.
type Enricher struct {
	provider   Provider
	keywords   string
	domains    []string
	numResults int
	window     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewEnricher creates an Enricher.
func NewEnricher(p Provider, cfg *config.Search, logger *zap.Logger) *Enricher {
	n := cfg.NumResults
	if n <= 0 {
		n = 5
	}
	window := cfg.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Enricher{
		provider:   p,
		keywords:   cfg.Keywords,
		domains:    cfg.Domains,
		numResults: n,
		window:     window,
		logger:     logger.Named("search"),
		now:        time.Now,
	}
}

// Enrich searches for query and fetches every hit's content concurrently.
// A failed search yields no results; a failed content fetch leaves that
// result's Content nil.
func (e *Enricher) Enrich(ctx context.Context, query string) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}
	}

	end := e.now().UTC()
	q := Query{
		Text:       strings.TrimSpace(query + " " + e.keywords),
		NumResults: e.numResults,
		Domains:    e.domains,
		Start:      end.Add(-e.window),
		End:        end,
	}

	hits, err := e.provider.Search(ctx, q)
	if err != nil {
		e.logger.Warn("Web search failed", zap.String("query", q.Text), zap.Error(err))
		return []Result{}
	}

	mapper := iter.Mapper[Hit, Result]{MaxGoroutines: len(hits)}
	return mapper.Map(hits, func(h *Hit) Result {
		r := Result{Title: h.Title, URL: h.URL, PublishedAt: h.PublishedAt, Author: h.Author}
		contents, err := e.provider.Contents(ctx, []string{h.ID})
		if err != nil {
			e.logger.Warn("Content fetch failed", zap.String("url", h.URL), zap.Error(err))
			return r
		}
		if text, ok := contents[h.ID]; ok && text != "" {
			r.Content = &text
		}
		return r
	})
}
