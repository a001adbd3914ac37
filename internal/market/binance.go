package market

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
	"trade-journal-assistant/internal/normalize"
)

// Binance reads 24h tickers from the public spot API. Coin ids are mapped to
// trading symbols through the configured table, e.g. "bitcoin" -> "BTCUSDT".
type Binance struct {
	rest    *restClient
	symbols map[string]string
}

var _ CryptoQuoteProvider = (*Binance)(nil)

func NewBinance(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *Binance {
	return &Binance{
		rest:    newRestClient("binance", cfg.BinanceURL, cfg, logger, rec),
		symbols: cfg.BinanceSymbols,
	}
}

// Ticker24h is one entry of the /ticker/24hr response.
type Ticker24h struct {
	Symbol             string `json:"symbol"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
}

// SimplePrice returns USD quotes for ids that have a configured symbol.
func (c *Binance) SimplePrice(ctx context.Context, ids []string) (map[string]Quote, error) {
	bySymbol := make(map[string]string, len(ids))
	symbols := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.symbols[id]; ok {
			bySymbol[s] = id
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("failed to get ticker: no symbol mapping for %v", ids)
	}

	param, err := json.Marshal(symbols)
	if err != nil {
		return nil, err
	}

	var tickers []Ticker24h
	req := c.rest.client.R().
		SetQueryParam("symbols", string(param)).
		SetResult(&tickers).
		SetHeader("Content-Type", "application/json")

	if _, err := c.rest.doRequest(ctx, "GET", "/ticker/24hr", req); err != nil {
		return nil, fmt.Errorf("failed to get 24h tickers: %w", err)
	}

	quotes := make(map[string]Quote, len(tickers))
	for _, t := range tickers {
		id, ok := bySymbol[t.Symbol]
		if !ok {
			continue
		}
		price, ok := normalize.ParseNumber(t.LastPrice)
		if !ok {
			c.rest.logger.Warn("Skipping ticker with unreadable price", zap.String("symbol", t.Symbol))
			continue
		}
		abs, _ := normalize.ParseNumber(t.PriceChange)
		pct, _ := normalize.ParseNumber(t.PriceChangePercent)
		quotes[id] = Quote{Price: price, Change24hAbs: abs, Change24hPct: pct}
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("failed to get 24h tickers: no usable tickers returned")
	}
	return quotes, nil
}
