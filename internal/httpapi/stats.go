package httpapi

import (
	"time"

	"trade-journal-assistant/internal/repository"
)

var nowFunc = time.Now

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
	BestTrade        float64 `json:"best_trade"`
	WorstTrade       float64 `json:"worst_trade"`
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

func newStatsDetail(t repository.TradeStats) StatsDetail {
	d := StatsDetail{
		TotalTrades:      t.TotalTrades,
		ProfitableTrades: t.ProfitableTrades,
		TotalProfit:      t.TotalProfit,
		BestTrade:        t.BestTrade,
		WorstTrade:       t.WorstTrade,
	}
	if d.TotalTrades > 0 {
		d.WinRate = float64(d.ProfitableTrades) / float64(d.TotalTrades)
	}
	return d
}
