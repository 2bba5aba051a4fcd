package agents

import (
	"time"

	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/money"
)

type RiskTolerance string

const (
	RiskLow      RiskTolerance = "low"
	RiskMedium   RiskTolerance = "medium"
	RiskHigh     RiskTolerance = "high"
	RiskVariable RiskTolerance = "variable"
)

type AnalysisStyle string

const (
	StyleTechnical    AnalysisStyle = "technical"
	StyleFundamental  AnalysisStyle = "fundamental"
	StyleMixed        AnalysisStyle = "mixed"
	StyleQuantitative AnalysisStyle = "quantitative"
)

const historyLimit = 240

// Profile is the immutable identity of an agent.
type Profile struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Glyph     string        `json:"glyph"`
	Risk      RiskTolerance `json:"risk"`
	Style     AnalysisStyle `json:"style"`
	Preferred []string      `json:"preferred,omitempty"`
}

// BalancePoint is one observation in an agent's balance history.
type BalancePoint struct {
	Time    time.Time `json:"time"`
	Balance float64   `json:"balance"`
}

// Stats accumulate over closed trades. PeakBalance and MaxDrawdown never
// decrease.
type Stats struct {
	BestTrade   *ledger.Trade `json:"best_trade,omitempty"`
	WorstTrade  *ledger.Trade `json:"worst_trade,omitempty"`
	WinRate     float64       `json:"win_rate"`
	TotalTrades int           `json:"total_trades"`
	Wins        int           `json:"wins"`
	MaxDrawdown float64       `json:"max_drawdown"`
	PeakBalance float64       `json:"peak_balance"`
}

// Agent is one simulated participant and its running account.
type Agent struct {
	Profile              Profile        `json:"profile"`
	Balance              float64        `json:"balance"`
	StartOfPeriodBalance float64        `json:"start_of_period_balance"`
	BalanceHistory       []BalancePoint `json:"balance_history,omitempty"`
	LastNote             string         `json:"last_note"`
	Stats                Stats          `json:"stats"`
}

// SessionPnL is the balance change since the last period rollover.
func (a Agent) SessionPnL() float64 {
	return money.Round2(a.Balance - a.StartOfPeriodBalance)
}

// DefaultProfiles is the built-in arena roster.
func DefaultProfiles() []Profile {
	return []Profile{
		{ID: "maverick", Name: "Maverick", Glyph: "🚀", Risk: RiskHigh, Style: StyleTechnical, Preferred: []string{"ACME", "NKTM"}},
		{ID: "sentinel", Name: "Sentinel", Glyph: "🛡️", Risk: RiskLow, Style: StyleFundamental, Preferred: []string{"GLBX", "VNDL"}},
		{ID: "oracle", Name: "Oracle", Glyph: "🔮", Risk: RiskMedium, Style: StyleMixed, Preferred: []string{"INIT", "UMBR", "GLBX"}},
		{ID: "flux", Name: "Flux", Glyph: "🎲", Risk: RiskVariable, Style: StyleQuantitative},
	}
}

// Registry owns the agents. Iteration order is registration order, which the
// orchestrator relies on for deterministic runs.
type Registry struct {
	agents []*Agent
	byID   map[string]*Agent
}

func NewRegistry(profiles []Profile, startingBalance float64, at time.Time) *Registry {
	r := &Registry{byID: make(map[string]*Agent, len(profiles))}
	for _, p := range profiles {
		a := &Agent{
			Profile:              p,
			Balance:              money.Round2(startingBalance),
			StartOfPeriodBalance: money.Round2(startingBalance),
			Stats:                Stats{PeakBalance: money.Round2(startingBalance)},
		}
		a.BalanceHistory = append(a.BalanceHistory, BalancePoint{Time: at, Balance: a.Balance})
		r.agents = append(r.agents, a)
		r.byID[p.ID] = a
	}
	return r
}

// AdjustBalance applies delta to the agent's balance, records the point, and
// refreshes peak/drawdown. Unknown ids are silently ignored.
func (r *Registry) AdjustBalance(agentID string, delta float64, at time.Time) {
	a, ok := r.byID[agentID]
	if !ok {
		return
	}

	a.Balance = money.Round2(a.Balance + delta)
	a.BalanceHistory = append(a.BalanceHistory, BalancePoint{Time: at, Balance: a.Balance})
	if len(a.BalanceHistory) > historyLimit {
		a.BalanceHistory = a.BalanceHistory[len(a.BalanceHistory)-historyLimit:]
	}

	if a.Balance > a.Stats.PeakBalance {
		a.Stats.PeakBalance = a.Balance
	}
	if dd := money.Round2(a.Stats.PeakBalance - a.Balance); dd > a.Stats.MaxDrawdown {
		a.Stats.MaxDrawdown = dd
	}
}

// RecordTrade folds a closed trade into the agent's stats. Wins count only
// strictly positive pnl; a zero-pnl close is neither a win nor a tracked
// loss. Best/worst are replaced on strict comparison, so ties keep the
// earlier trade.
func (r *Registry) RecordTrade(agentID string, t ledger.Trade) {
	a, ok := r.byID[agentID]
	if !ok {
		return
	}

	a.Stats.TotalTrades++
	if t.RealizedPnL > 0 {
		a.Stats.Wins++
	}
	a.Stats.WinRate = money.Round1(float64(a.Stats.Wins) / float64(a.Stats.TotalTrades) * 100)

	if a.Stats.BestTrade == nil || t.RealizedPnL > a.Stats.BestTrade.RealizedPnL {
		c := t
		a.Stats.BestTrade = &c
	}
	if a.Stats.WorstTrade == nil || t.RealizedPnL < a.Stats.WorstTrade.RealizedPnL {
		c := t
		a.Stats.WorstTrade = &c
	}
}

// SetLastNote overwrites the agent's display note.
func (r *Registry) SetLastNote(agentID, text string) {
	if a, ok := r.byID[agentID]; ok {
		a.LastNote = text
	}
}

// ResetPeriod rebases the agent's session pnl baseline to the current
// balance.
func (r *Registry) ResetPeriod(agentID string) {
	if a, ok := r.byID[agentID]; ok {
		a.StartOfPeriodBalance = a.Balance
	}
}

// ResetAllPeriods rebases every agent's session baseline.
func (r *Registry) ResetAllPeriods() {
	for _, a := range r.agents {
		a.StartOfPeriodBalance = a.Balance
	}
}

// Get returns a copy of the agent.
func (r *Registry) Get(agentID string) (Agent, bool) {
	a, ok := r.byID[agentID]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// All returns copies of every agent in registration order.
func (r *Registry) All() []Agent {
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	return out
}

// History returns a copy of the agent's balance history.
func (r *Registry) History(agentID string) []BalancePoint {
	a, ok := r.byID[agentID]
	if !ok {
		return nil
	}
	out := make([]BalancePoint, len(a.BalanceHistory))
	copy(out, a.BalanceHistory)
	return out
}
