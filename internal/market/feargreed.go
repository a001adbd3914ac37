package market

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"trade-journal-assistant/internal/config"
	"trade-journal-assistant/internal/metrics"
)

// FearGreed reads the crypto Fear & Greed index from alternative.me.
type FearGreed struct {
	rest *restClient
}

var _ SentimentProvider = (*FearGreed)(nil)

func NewFearGreed(cfg *config.Market, logger *zap.Logger, rec *metrics.Recorder) *FearGreed {
	return &FearGreed{rest: newRestClient("feargreed", cfg.FearGreedURL, cfg, logger, rec)}
}

type fngResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
}

// LatestSentiment returns the most recent index reading.
func (c *FearGreed) LatestSentiment(ctx context.Context) (Sentiment, error) {
	var result fngResponse
	req := c.rest.client.R().
		SetQueryParam("limit", "1").
		SetResult(&result)

	if _, err := c.rest.doRequest(ctx, "GET", "/fng/", req); err != nil {
		return Sentiment{}, fmt.Errorf("failed to get fear and greed index: %w", err)
	}
	if len(result.Data) == 0 {
		return Sentiment{}, fmt.Errorf("failed to get fear and greed index: empty data")
	}

	d := result.Data[0]
	value, err := cast.ToIntE(d.Value)
	if err != nil {
		return Sentiment{}, fmt.Errorf("invalid index value %q: %w", d.Value, err)
	}
	secs, err := cast.ToInt64E(d.Timestamp)
	if err != nil {
		return Sentiment{}, fmt.Errorf("invalid index timestamp %q: %w", d.Timestamp, err)
	}

	return Sentiment{Value: value, Label: d.ValueClassification, AsOf: time.Unix(secs, 0).UTC()}, nil
}
