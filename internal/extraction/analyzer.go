package extraction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trade-journal-assistant/internal/llm"
	"trade-journal-assistant/internal/metrics"
	"trade-journal-assistant/internal/retry"
)

const forexPrompt = `You are reading a screenshot of a forex/spot trading history table.
Return ONLY a JSON object for the single trade shown, with these keys:
symbol, type (Buy or Sell), volumeLot, openPrice, closePrice, tp, sl,
position (the status text, e.g. Open or Closed), openTime, closeTime,
reason (TP, SL, Early Close or other text), pnlUsd.
Copy numbers and times exactly as displayed. Use null for anything not visible.`

const cryptoPrompt = `You are reading a screenshot of a crypto futures position history table.
Return ONLY a JSON object for the single position shown, with these keys:
futuresSymbol, marginMode (Cross or Isolated), avgEntryPrice, avgClosePrice,
direction (Long or Short), marginAdjustmentHistory, openTime, closeTime,
closingQuantity, status, realizedPnl.
Copy numbers and times exactly as displayed. Use null for anything not visible.`

// Analyzer turns a history screenshot into a Record.
type Analyzer struct {
	model     llm.Generator
	assembler *Assembler
	retryOpts []retry.Option
	logger    *zap.Logger
	metrics   *metrics.Recorder
}

// NewAnalyzer creates an Analyzer. retryOpts configure the backoff around each model call.
func NewAnalyzer(model llm.Generator, assembler *Assembler, logger *zap.Logger, rec *metrics.Recorder, retryOpts ...retry.Option) *Analyzer {
	if assembler == nil {
		assembler = NewAssembler(nil)
	}
	l := logger.Named("extraction")
	opts := append([]retry.Option{
		retry.WithLogger(l),
		retry.WithName("analyze_screenshot"),
		retry.WithObserver(rec.RetryObserver("analyze_screenshot")),
	}, retryOpts...)

	return &Analyzer{
		model:     model,
		assembler: assembler,
		retryOpts: opts,
		logger:    l,
		metrics:   rec,
	}
}

// Analyze reads one trade from image. It returns ErrExtraction when the model
// answer holds no JSON object and retry.ErrTemporarilyUnavailable when the
// model stayed rate limited.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, mimeType string, variant Variant) (*Record, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty screenshot")
	}

	prompt := forexPrompt
	if variant == VariantCrypto {
		prompt = cryptoPrompt
	}
	parts := []llm.Part{llm.TextPart(prompt), llm.BlobPart(image, mimeType)}

	l := a.logger.With(zap.String("variant", string(variant)), zap.Int("image_bytes", len(image)))

	text, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
		return a.model.Generate(ctx, parts)
	}, a.retryOpts...)
	if err != nil {
		outcome := "provider_error"
		if errors.Is(err, retry.ErrTemporarilyUnavailable) {
			outcome = "unavailable"
		}
		a.metrics.RecordExtraction(string(variant), outcome)
		l.Error("Model call failed", zap.Error(err))
		return nil, fmt.Errorf("analyze screenshot: %w", err)
	}

	obj, err := ExtractJSON(text)
	if err != nil {
		a.metrics.RecordExtraction(string(variant), "unparseable")
		l.Warn("No JSON object in model response", zap.Int("response_len", len(text)), zap.Error(err))
		return nil, err
	}

	rec := a.assembler.Assemble(obj, variant)
	outcome := "ok"
	if rec.Empty() {
		outcome = "empty"
	}
	a.metrics.RecordExtraction(string(variant), outcome)
	l.Info("Screenshot analyzed", zap.String("outcome", outcome))

	return &rec, nil
}

// User-facing messages for analysis failures.
const (
	MessageBusy    = "The analysis service is under high demand right now. Please try again in a moment."
	MessageUnclear = "We couldn't read the screenshot clearly. Please check the image or enter the trade manually."
	MessageGeneric = "Something went wrong while analyzing the screenshot. Please try again."
)

// UserMessage explains an Analyze error to the end user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, retry.ErrTemporarilyUnavailable):
		return MessageBusy
	case errors.Is(err, ErrExtraction):
		return MessageUnclear
	default:
		return MessageGeneric
	}
}
