package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/monthviewsales/solanatracker-trade-bot/internal/models"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the journal tables. Existing rows are kept.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Trade{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Journal appends executed trades to the trades table.
type Journal struct {
	db *gorm.DB
}

// NewJournal wraps an open database.
func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// Record stores one trade. Recording the same event twice is a no-op.
func (j *Journal) Record(ctx context.Context, trade *models.Trade) error {
	var existing int64
	if err := j.db.WithContext(ctx).Model(&models.Trade{}).
		Where("event_id = ?", trade.EventID).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to check trade %s: %w", trade.EventID, err)
	}
	if existing > 0 {
		return nil
	}
	if err := j.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to record trade %s: %w", trade.EventID, err)
	}
	return nil
}

// Trades returns the most recent trades first, at most limit rows when limit > 0.
func (j *Journal) Trades(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	q := j.db.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	return trades, nil
}

// Stats aggregates realized results of closed trades.
type Stats struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// SellStats computes statistics over sell trades at or after since. A zero
// since covers all time.
func (j *Journal) SellStats(ctx context.Context, since time.Time) (Stats, error) {
	var sells []models.Trade
	q := j.db.WithContext(ctx).Where("type = ?", models.SideSell)
	if !since.IsZero() {
		q = q.Where("timestamp >= ?", since.UnixMilli())
	}
	if err := q.Find(&sells).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to get trades for statistics: %w", err)
	}

	var s Stats
	for _, t := range sells {
		s.TotalTrades++
		if t.Profit > 0 {
			s.ProfitableTrades++
		}
		s.TotalProfit += t.Profit
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitableTrades) / float64(s.TotalTrades)
	}
	return s, nil
}
