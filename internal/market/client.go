package market

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
)

// ProviderError is a non-2xx response from a market data provider.
type ProviderError struct {
	Provider string
	Code     int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Code, e.Body)
}

// StatusCode returns the HTTP status of the failed call.
func (e *ProviderError) StatusCode() int { return e.Code }

// RateLimited reports 429, and Binance's 418 IP ban, as throttling.
func (e *ProviderError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusTeapot
}

// restClient is the resty transport shared by every provider. It performs a
// single attempt per call; retries are the aggregator's job.
type restClient struct {
	name    string
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	metrics *metrics.Recorder
}

func newRestClient(name, baseURL string, cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *restClient {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	client := resty.New().SetBaseURL(baseURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &restClient{
		name:    name,
		client:  client,
		logger:  logger.Named(name),
		limiter: rate.NewLimiter(limit, burst),
		metrics: rec,
	}
}

// doRequest handles request execution with rate limiting and error mapping.
func (c *restClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	start := time.Now()
	resp, err := req.SetContext(ctx).Execute(method, url)
	c.metrics.ObserveCall(c.name, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	if resp.IsError() {
		return nil, &ProviderError{Provider: c.name, Code: resp.StatusCode(), Body: resp.String()}
	}
	return resp, nil
}
