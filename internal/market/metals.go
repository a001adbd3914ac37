package market

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
)

// Swissquote reads best bid/offer quotes from the public forex data feed.
type Swissquote struct {
	rest *restClient
}

var _ SpotPriceProvider = (*Swissquote)(nil)

func NewSwissquote(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *Swissquote {
	return &Swissquote{rest: newRestClient("swissquote", cfg.SwissquoteURL, cfg, logger, rec)}
}

type bboPlatform struct {
	SpreadProfilePrices []struct {
		SpreadProfile string  `json:"spreadProfile"`
		Bid           float64 `json:"bid"`
		Ask           float64 `json:"ask"`
	} `json:"spreadProfilePrices"`
}

// SpotPrice returns the mid of the first bid/ask pair, or the ask when no bid is quoted.
// The feed carries no daily change, so the change fields stay zero.
func (c *Swissquote) SpotPrice(ctx context.Context, pair string) (Quote, error) {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok {
		return Quote{}, fmt.Errorf("invalid currency pair %q", pair)
	}

	var platforms []bboPlatform
	req := c.rest.client.R().SetResult(&platforms)
	path := fmt.Sprintf("/bboquotes/instrument/%s/%s", base, quote)

	if _, err := c.rest.doRequest(ctx, "GET", path, req); err != nil {
		return Quote{}, fmt.Errorf("failed to get spot price: %w", err)
	}

	for _, p := range platforms {
		for _, sp := range p.SpreadProfilePrices {
			switch {
			case sp.Bid > 0 && sp.Ask > 0:
				return Quote{Price: (sp.Bid + sp.Ask) / 2}, nil
			case sp.Ask > 0:
				return Quote{Price: sp.Ask}, nil
			}
		}
	}
	return Quote{}, fmt.Errorf("failed to get spot price: no prices quoted for %s", pair)
}

// GoldAPI reads the spot price of a metal from gold-api.com.
type GoldAPI struct {
	rest *restClient
}

var _ SpotPriceProvider = (*GoldAPI)(nil)

func NewGoldAPI(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *GoldAPI {
	return &GoldAPI{rest: newRestClient("goldapi", cfg.GoldAPIURL, cfg, logger, rec)}
}

type goldPrice struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// SpotPrice returns the USD price of the pair's base metal.
func (c *GoldAPI) SpotPrice(ctx context.Context, pair string) (Quote, error) {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok || !strings.EqualFold(quote, "USD") {
		return Quote{}, fmt.Errorf("unsupported currency pair %q", pair)
	}

	var result goldPrice
	req := c.rest.client.R().SetResult(&result)
	if _, err := c.rest.doRequest(ctx, "GET", "/price/"+strings.ToUpper(base), req); err != nil {
		return Quote{}, fmt.Errorf("failed to get metal price: %w", err)
	}
	if result.Price <= 0 {
		return Quote{}, fmt.Errorf("failed to get metal price: no price for %s", base)
	}
	return Quote{Price: result.Price}, nil
}
