package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
)

// CoinGecko reads crypto quotes from the public /simple/price endpoint.
type CoinGecko struct {
	rest *restClient
}

var _ CryptoQuoteProvider = (*CoinGecko)(nil)

func NewCoinGecko(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *CoinGecko {
	return &CoinGecko{rest: newRestClient("coingecko", cfg.CoinGeckoURL, cfg, logger, rec)}
}

type simplePrice struct {
	USD       float64 `json:"usd"`
	USDChange float64 `json:"usd_24h_change"`
}

// SimplePrice returns USD quotes for ids. Unknown ids are omitted.
func (c *CoinGecko) SimplePrice(ctx context.Context, ids []string) (map[string]Quote, error) {
	if len(ids) == 0 {
		return map[string]Quote{}, nil
	}

	var prices map[string]simplePrice
	req := c.rest.client.R().
		SetQueryParams(map[string]string{
			"ids":                 strings.Join(ids, ","),
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
		}).
		SetResult(&prices)

	if _, err := c.rest.doRequest(ctx, "GET", "/simple/price", req); err != nil {
		return nil, fmt.Errorf("failed to get simple price: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("failed to get simple price: no quotes returned for %v", ids)
	}

	quotes := make(map[string]Quote, len(prices))
	for id, p := range prices {
		quotes[id] = Quote{
			Price:        p.USD,
			Change24hAbs: changeFromPct(p.USD, p.USDChange),
			Change24hPct: p.USDChange,
		}
	}
	return quotes, nil
}
