package storage

import "time"

// TradeRecord is a settled trade. The in-memory log keeps only the last 200;
// the database keeps the whole run for export and history queries.
type TradeRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunID   string `gorm:"index;not null" json:"run_id"`
	TradeID string `gorm:"uniqueIndex;not null" json:"trade_id"`
	AgentID string `gorm:"index;not null" json:"agent_id"`
	Symbol  string `gorm:"index;not null" json:"symbol"`

	Direction  string  `gorm:"not null" json:"direction"` // long or short
	EntryPrice float64 `gorm:"not null" json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Size       float64 `gorm:"not null" json:"size"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	PnL        float64 `gorm:"column:pnl" json:"pnl"`

	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
}

// AnalysisRecord mirrors the ledger's analysis notes.
type AnalysisRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunID   string    `gorm:"index" json:"run_id"`
	NoteID  string    `json:"note_id"`
	AgentID string    `gorm:"index" json:"agent_id"`
	Summary string    `gorm:"type:text" json:"summary"`
	NotedAt time.Time `json:"noted_at"`
}

// BalanceSnapshot is a periodic sample of one agent's account, written every
// few ticks so long runs keep an equity trail past the in-memory window.
type BalanceSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunID       string  `gorm:"index" json:"run_id"`
	AgentID     string  `gorm:"index" json:"agent_id"`
	Balance     float64 `json:"balance"`
	PeakBalance float64 `json:"peak_balance"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
}
