package extraction

import (
	"fmt"
	"strings"
	"time"

	"trade-journal-assistant/internal/normalize"
)

// Variant selects which history table layout a screenshot is read against.
type Variant string

const (
	VariantForex  Variant = "forex"
	VariantCrypto Variant = "crypto"
)

// ParseVariant accepts the variant names used by clients ("forex", "crypto", "futures").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forex", "spot", "fx", "":
		return VariantForex, nil
	case "crypto", "futures", "crypto-futures":
		return VariantCrypto, nil
	}
	return "", fmt.Errorf("unknown extraction variant %q", s)
}

// Record is the unified trade record produced from one screenshot.
// Every field is optional; nil means the value could not be read.
type Record struct {
	Variant Variant `json:"variant"`

	Symbol        *string           `json:"symbol,omitempty"`
	Side          *normalize.Side   `json:"side,omitempty"`
	Volume        *float64          `json:"volume,omitempty"`
	OpenPrice     *float64          `json:"openPrice,omitempty"`
	ClosePrice    *float64          `json:"closePrice,omitempty"`
	OpenTime      *time.Time        `json:"openTime,omitempty"`
	CloseTime     *time.Time        `json:"closeTime,omitempty"`
	Status        *normalize.Status `json:"status,omitempty"`
	Reason        *normalize.Reason `json:"reason,omitempty"`
	ProfitLossUSD *float64          `json:"profitLossUsd,omitempty"`

	// Forex table only.
	TakeProfit *float64 `json:"takeProfit,omitempty"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`

	// Crypto futures table only.
	MarginMode        *normalize.MarginMode `json:"marginMode,omitempty"`
	Direction         *normalize.Direction  `json:"direction,omitempty"`
	MarginHistoryNote *string               `json:"marginHistoryNote,omitempty"`
}

// Empty reports whether no field at all could be read.
func (r *Record) Empty() bool {
	return r.Symbol == nil && r.Side == nil && r.Volume == nil &&
		r.OpenPrice == nil && r.ClosePrice == nil &&
		r.OpenTime == nil && r.CloseTime == nil &&
		r.Status == nil && r.Reason == nil && r.ProfitLossUSD == nil &&
		r.TakeProfit == nil && r.StopLoss == nil &&
		r.MarginMode == nil && r.Direction == nil && r.MarginHistoryNote == nil
}

func ptr[T any](v T) *T { return &v }
