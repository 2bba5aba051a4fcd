package storage

import (
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Trades

func (r *Repository) SaveTrades(records []TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

func (r *Repository) GetRecentTrades(runID string, limit int) ([]TradeRecord, error) {
	var records []TradeRecord
	err := r.db.Where("run_id = ?", runID).
		Order("closed_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// GetTradesForExport returns every settled trade of the run, oldest first,
// for CSV streaming.
func (r *Repository) GetTradesForExport(runID string) ([]TradeRecord, error) {
	var records []TradeRecord
	err := r.db.Where("run_id = ?", runID).
		Order("closed_at ASC, id ASC").Find(&records).Error
	return records, err
}

func (r *Repository) GetTradeCount(runID string) (int64, error) {
	var count int64
	err := r.db.Model(&TradeRecord{}).Where("run_id = ?", runID).Count(&count).Error
	return count, err
}

func (r *Repository) GetTotalPnL(runID string) (float64, error) {
	var total float64
	err := r.db.Model(&TradeRecord{}).
		Where("run_id = ?", runID).
		Select("COALESCE(SUM(pnl), 0)").Scan(&total).Error
	return total, err
}

func (r *Repository) GetTodayPnL(runID string, now time.Time) (float64, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var total float64
	err := r.db.Model(&TradeRecord{}).
		Where("run_id = ? AND closed_at >= ?", runID, dayStart).
		Select("COALESCE(SUM(pnl), 0)").Scan(&total).Error
	return total, err
}

// Analysis notes

func (r *Repository) SaveAnalyses(records []AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

// Balance snapshots

func (r *Repository) SaveBalanceSnapshots(snapshots []BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.Create(&snapshots).Error
}

// GetBalanceSeries returns an agent's persisted equity trail, oldest first.
func (r *Repository) GetBalanceSeries(runID, agentID string, limit int) ([]BalanceSnapshot, error) {
	var snapshots []BalanceSnapshot
	err := r.db.Where("run_id = ? AND agent_id = ?", runID, agentID).
		Order("created_at ASC, id ASC").Limit(limit).Find(&snapshots).Error
	return snapshots, err
}
