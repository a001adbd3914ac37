// Package search enriches chat prompts with recent financial news from a web search API.
package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-assistant/internal/config"
)

const defaultBaseURL = "https://api.exa.ai"

// Query is one search request.
type Query struct {
	Text       string
	NumResults int
	Domains    []string
	Start, End time.Time
}

// Hit is a search result before its page content is fetched.
type Hit struct {
	ID          string
	Title       string
	URL         string
	PublishedAt *time.Time
	Author      *string
}

// Provider is a web search service that can also return extracted page text.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Hit, error)
	Contents(ctx context.Context, ids []string) (map[string]string, error)
}

// APIError is a non-2xx response from the search service.
type APIError struct {
	Code int
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search request failed with status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status of the failed call.
func (e *APIError) StatusCode() int { return e.Code }

// Client calls the Exa search API.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Provider = (*Client)(nil)

// NewClient creates a search client from configuration.
func NewClient(cfg *config.Search, logger *zap.Logger) *Client {
	url := cfg.BaseURL
	if url == "" {
		url = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(url).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		client:  client,
		logger:  logger.Named("search"),
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

type searchRequest struct {
	Query              string   `json:"query"`
	NumResults         int      `json:"numResults"`
	IncludeDomains     []string `json:"includeDomains,omitempty"`
	StartPublishedDate string   `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string   `json:"endPublishedDate,omitempty"`
}

type searchResponse struct {
	Results []struct {
		ID            string  `json:"id"`
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		PublishedDate *string `json:"publishedDate"`
		Author        *string `json:"author"`
	} `json:"results"`
}

// Search runs q and returns hits in ranking order.
func (c *Client) Search(ctx context.Context, q Query) ([]Hit, error) {
	body := searchRequest{
		Query:          q.Text,
		NumResults:     q.NumResults,
		IncludeDomains: q.Domains,
	}
	if !q.Start.IsZero() {
		body.StartPublishedDate = q.Start.UTC().Format(time.RFC3339)
	}
	if !q.End.IsZero() {
		body.EndPublishedDate = q.End.UTC().Format(time.RFC3339)
	}

	req := c.client.R().SetBody(body).SetResult(&searchResponse{})
	resp, err := c.doRequest(ctx, http.MethodPost, "/search", req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	result := resp.Result().(*searchResponse)
	hits := make([]Hit, 0, len(result.Results))
	for _, r := range result.Results {
		hit := Hit{ID: r.ID, Title: r.Title, URL: r.URL, Author: nonEmpty(r.Author)}
		if r.PublishedDate != nil {
			if t, err := time.Parse(time.RFC3339Nano, *r.PublishedDate); err == nil {
				hit.PublishedAt = &t
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

type contentsRequest struct {
	IDs  []string `json:"ids"`
	Text bool     `json:"text"`
}

type contentsResponse struct {
	Results []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"results"`
}

// Contents returns the extracted text of each page, keyed by result id.
func (c *Client) Contents(ctx context.Context, ids []string) (map[string]string, error) {
	req := c.client.R().SetBody(contentsRequest{IDs: ids, Text: true}).SetResult(&contentsResponse{})
	resp, err := c.doRequest(ctx, http.MethodPost, "/contents", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents: %w", err)
	}

	result := resp.Result().(*contentsResponse)
	out := make(map[string]string, len(result.Results))
	for _, r := range result.Results {
		out[r.ID] = r.Text
	}
	return out, nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, &APIError{Code: resp.StatusCode(), Body: resp.String()}
	}
	return resp, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
