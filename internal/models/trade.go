package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade is a trade record read from a history screenshot and saved to a journal session.
// Nullable columns mirror fields the extraction could not read.
type Trade struct {
	gorm.Model
	UserID            string     `gorm:"index;not null" json:"user_id"`
	SessionID         uint       `gorm:"index" json:"session_id"`
	Variant           string     `gorm:"size:16" json:"variant"` // "forex" or "crypto"
	Symbol            *string    `json:"symbol,omitempty"`
	Side              *string    `json:"side,omitempty"` // "Buy" or "Sell"
	Volume            *float64   `json:"volume,omitempty"`
	OpenPrice         *float64   `json:"open_price,omitempty"`
	ClosePrice        *float64   `json:"close_price,omitempty"`
	OpenTime          *time.Time `json:"open_time,omitempty"`
	CloseTime         *time.Time `gorm:"index" json:"close_time,omitempty"`
	Status            *string    `json:"status,omitempty"`
	Reason            *string    `json:"reason,omitempty"`
	ProfitLossUSD     *float64   `json:"profit_loss_usd,omitempty"`
	TakeProfit        *float64   `json:"take_profit,omitempty"`
	StopLoss          *float64   `json:"stop_loss,omitempty"`
	MarginMode        *string    `json:"margin_mode,omitempty"`
	Direction         *string    `json:"direction,omitempty"`
	MarginHistoryNote *string    `json:"margin_history_note,omitempty"`
}
