package repository

import (
	"trade-journal-assistant/internal/extraction"
	"trade-journal-assistant/internal/models"
)

// TradeFromRecord copies an extracted record into its storage row.
func TradeFromRecord(rec *extraction.Record) models.Trade {
	return models.Trade{
		Variant:           string(rec.Variant),
		Symbol:            rec.Symbol,
		Side:              enumString(rec.Side),
		Volume:            rec.Volume,
		OpenPrice:         rec.OpenPrice,
		ClosePrice:        rec.ClosePrice,
		OpenTime:          rec.OpenTime,
		CloseTime:         rec.CloseTime,
		Status:            enumString(rec.Status),
		Reason:            enumString(rec.Reason),
		ProfitLossUSD:     rec.ProfitLossUSD,
		TakeProfit:        rec.TakeProfit,
		StopLoss:          rec.StopLoss,
		MarginMode:        enumString(rec.MarginMode),
		Direction:         enumString(rec.Direction),
		MarginHistoryNote: rec.MarginHistoryNote,
	}
}

func enumString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
