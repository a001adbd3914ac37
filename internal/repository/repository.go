package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"trade-journal-assistant/internal/extraction"
	"trade-journal-assistant/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a required identifier is missing.
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the narrow persistence surface used by the services.
type Repository interface {
	RecentSessions(ctx context.Context, userID string, limit int) ([]models.Session, error)
	RecentTrades(ctx context.Context, userID string, limit int) ([]models.Trade, error)
	SaveTrade(ctx context.Context, userID string, sessionID uint, rec *extraction.Record) (*models.Trade, error)
	CreateSession(ctx context.Context, userID, title string, variant extraction.Variant) (*models.Session, error)
	AppendChatMessage(ctx context.Context, userID, role, content string) error
	RecentChatMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	TradeStatistics(ctx context.Context, userID string, since time.Time) (allTime, recent TradeStats, err error)
}

// TradeStats aggregates the P/L of the trades whose result could be read.
type TradeStats struct {
	TotalTrades      int64
	ProfitableTrades int64
	TotalProfit      float64
	BestTrade        float64
	WorstTrade       float64
}

// GormRepository implements Repository on top of gorm.
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// New creates a gorm-backed repository.
func New(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// RecentSessions returns the user's sessions, newest first.
func (r *GormRepository) RecentSessions(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limitOrDefault(limit)).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return sessions, nil
}

// RecentTrades returns the user's journaled trades, newest first.
func (r *GormRepository) RecentTrades(ctx context.Context, userID string, limit int) ([]models.Trade, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	var trades []models.Trade
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Order("id desc").
		Limit(limitOrDefault(limit)).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	return trades, nil
}

// CreateSession opens a new journal session for the user.
func (r *GormRepository) CreateSession(ctx context.Context, userID, title string, variant extraction.Variant) (*models.Session, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	session := models.Session{UserID: userID, Title: title, Variant: string(variant)}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

// SaveTrade stores an extracted record. A non-zero sessionID must belong to userID.
func (r *GormRepository) SaveTrade(ctx context.Context, userID string, sessionID uint, rec *extraction.Record) (*models.Trade, error) {
	if userID == "" || rec == nil {
		return nil, ErrInvalidInput
	}

	if sessionID != 0 {
		var session models.Session
		err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	trade := TradeFromRecord(rec)
	trade.UserID = userID
	trade.SessionID = sessionID
	if err := r.db.WithContext(ctx).Create(&trade).Error; err != nil {
		return nil, fmt.Errorf("failed to save trade record: %w", err)
	}
	return &trade, nil
}

// AppendChatMessage adds one entry to the user's transcript.
func (r *GormRepository) AppendChatMessage(ctx context.Context, userID, role, content string) error {
	if userID == "" || role == "" {
		return ErrInvalidInput
	}
	msg := models.ChatMessage{UserID: userID, Role: role, Content: content}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// RecentChatMessages returns the last limit transcript entries in chronological order.
func (r *GormRepository) RecentChatMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	var msgs []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limitOrDefault(limit)).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chat messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// TradeStatistics aggregates every trade of the user with a known P/L, and
// separately those dated after since. A trade is dated by its close time, or by
// when it was journaled when the close time could not be read.
func (r *GormRepository) TradeStatistics(ctx context.Context, userID string, since time.Time) (allTime, recent TradeStats, err error) {
	if userID == "" {
		return allTime, recent, ErrInvalidInput
	}
	if allTime, err = r.aggregateTrades(ctx, userID, nil); err != nil {
		return allTime, recent, err
	}
	since = since.UTC()
	recent, err = r.aggregateTrades(ctx, userID, &since)
	return allTime, recent, err
}

func (r *GormRepository) aggregateTrades(ctx context.Context, userID string, since *time.Time) (TradeStats, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Select("COUNT(*) AS total_trades, "+
			"COALESCE(SUM(CASE WHEN profit_loss_usd > 0 THEN 1 ELSE 0 END), 0) AS profitable_trades, "+
			"COALESCE(SUM(profit_loss_usd), 0) AS total_profit, "+
			"COALESCE(MAX(profit_loss_usd), 0) AS best_trade, "+
			"COALESCE(MIN(profit_loss_usd), 0) AS worst_trade").
		Where("user_id = ? AND profit_loss_usd IS NOT NULL", userID)
	if since != nil {
		q = q.Where("COALESCE(close_time, created_at) > ?", *since)
	}

	var stats TradeStats
	if err := q.Scan(&stats).Error; err != nil {
		return TradeStats{}, fmt.Errorf("failed to aggregate trades: %w", err)
	}
	return stats, nil
}

// Page size bounds for the Recent* queries.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}
