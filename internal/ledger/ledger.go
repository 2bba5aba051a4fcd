package ledger

import (
	"fmt"
	"time"

	"github.com/camuig/quant-arena/internal/money"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

const (
	bracketPct  = 0.03 // fixed 3% stop-loss / take-profit band
	closedLimit = 200
)

// Trade is a directional position with brackets fixed at creation.
// StopLoss and TakeProfit are never recomputed after Open.
type Trade struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	Size        float64   `json:"size"`
	OpenedAt    time.Time `json:"opened_at"`
	Status      Status    `json:"status"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfit  float64   `json:"take_profit"`
	Note        string    `json:"note"`
	ExitPrice   float64   `json:"exit_price"`
	RealizedPnL float64   `json:"realized_pnl"`
	ClosedAt    time.Time `json:"closed_at"`
}

// AnalysisNote is the display record appended on every open and close.
type AnalysisNote struct {
	ID      string    `json:"id"`
	AgentID string    `json:"agent_id"`
	Summary string    `json:"summary"`
	Time    time.Time `json:"time"`
}

// Ledger owns the open set, the closed-trade log (newest first, capped at
// 200), and the analysis notes. Risk and capital checks are the caller's
// job; the ledger only records.
type Ledger struct {
	open   []*Trade
	closed []Trade
	notes  []AnalysisNote
}

func New() *Ledger {
	return &Ledger{}
}

// Open records a new position and returns a copy of the trade. Entry and
// brackets are rounded to 2 decimals here; the size is expected to arrive
// already rounded.
func (l *Ledger) Open(agentID, symbol string, dir Direction, entryPrice, size float64, note string, at time.Time) Trade {
	entry := money.Round2(entryPrice)
	t := &Trade{
		ID:         fmt.Sprintf("%s-%d", agentID, at.UnixNano()),
		AgentID:    agentID,
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: entry,
		Size:       size,
		OpenedAt:   at,
		Status:     StatusOpen,
		Note:       note,
	}
	if dir == Long {
		t.StopLoss = money.Round2(entry * (1 - bracketPct))
		t.TakeProfit = money.Round2(entry * (1 + bracketPct))
	} else {
		t.StopLoss = money.Round2(entry * (1 + bracketPct))
		t.TakeProfit = money.Round2(entry * (1 - bracketPct))
	}

	l.open = append(l.open, t)
	l.notes = append(l.notes, AnalysisNote{ID: t.ID, AgentID: agentID, Summary: note, Time: at})
	return *t
}

// Close settles the open trade with the given id and returns the closed
// trade. Unknown ids return nil and leave the ledger untouched; that is the
// only error signal and it is non-fatal.
func (l *Ledger) Close(tradeID string, exitPrice float64, at time.Time) *Trade {
	idx := -1
	for i, t := range l.open {
		if t.ID == tradeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	t := l.open[idx]
	l.open = append(l.open[:idx], l.open[idx+1:]...)

	exit := money.Round2(exitPrice)
	diff := exit - t.EntryPrice
	if t.Direction == Short {
		diff = t.EntryPrice - exit
	}
	t.ExitPrice = exit
	t.RealizedPnL = money.Round2(diff * t.Size)
	t.Status = StatusClosed
	t.ClosedAt = at

	l.closed = append([]Trade{*t}, l.closed...)
	if len(l.closed) > closedLimit {
		l.closed = l.closed[:closedLimit]
	}
	l.notes = append(l.notes, AnalysisNote{ID: t.ID, AgentID: t.AgentID, Summary: closeSummary(t), Time: at})

	out := *t
	return &out
}

func closeSummary(t *Trade) string {
	verb := "Closed"
	switch {
	case t.RealizedPnL > 0:
		verb = "Booked"
	case t.RealizedPnL < 0:
		verb = "Cut"
	}
	return fmt.Sprintf("%s %s %s at %.2f (%+.2f)", verb, t.Direction, t.Symbol, t.ExitPrice, t.RealizedPnL)
}

// RecentNotes returns up to n analysis notes, newest first.
func (l *Ledger) RecentNotes(n int) []AnalysisNote {
	if n <= 0 {
		return nil
	}
	if n > len(l.notes) {
		n = len(l.notes)
	}
	out := make([]AnalysisNote, 0, n)
	for i := len(l.notes) - 1; i >= len(l.notes)-n; i-- {
		out = append(out, l.notes[i])
	}
	return out
}

// OpenForAgent returns copies of the agent's open positions in open order.
func (l *Ledger) OpenForAgent(agentID string) []Trade {
	var out []Trade
	for _, t := range l.open {
		if t.AgentID == agentID {
			out = append(out, *t)
		}
	}
	return out
}

// OpenCount reports how many positions the agent holds.
func (l *Ledger) OpenCount(agentID string) int {
	n := 0
	for _, t := range l.open {
		if t.AgentID == agentID {
			n++
		}
	}
	return n
}

// OpenByAgent groups copies of all open positions by agent id.
func (l *Ledger) OpenByAgent() map[string][]Trade {
	out := make(map[string][]Trade)
	for _, t := range l.open {
		out[t.AgentID] = append(out[t.AgentID], *t)
	}
	return out
}

// RecentClosed returns up to n closed trades, newest first.
func (l *Ledger) RecentClosed(n int) []Trade {
	if n <= 0 {
		return nil
	}
	if n > len(l.closed) {
		n = len(l.closed)
	}
	out := make([]Trade, n)
	copy(out, l.closed[:n])
	return out
}

// NumOpen reports the total size of the open set.
func (l *Ledger) NumOpen() int {
	return len(l.open)
}

// NumClosed reports the size of the retained closed-trade log.
func (l *Ledger) NumClosed() int {
	return len(l.closed)
}

// NumNotes reports the total number of analysis notes retained.
func (l *Ledger) NumNotes() int {
	return len(l.notes)
}
