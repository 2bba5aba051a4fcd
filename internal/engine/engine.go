package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/market"
	"github.com/camuig/quant-arena/internal/money"
)

// Rand is the randomness the decision policy consumes. *math/rand.Rand
// satisfies it; tests substitute scripted sequences. Production wires the
// same source into the market generator so a single seed replays a whole
// run.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

const (
	maxOpenPositions = 3
	entryChance      = 0.4
	holdProbLow      = 0.20
	holdProbDefault  = 0.35
)

// Engine owns the simulation state and advances it one tick at a time. A
// single goroutine drives Tick; projections take read locks so the web layer
// only ever observes between-tick snapshots.
type Engine struct {
	mu       sync.RWMutex
	assets   []*market.Asset
	registry *agents.Registry
	ledger   *ledger.Ledger
	gen      *market.Generator
	rand     Rand
	runID    string
	ticks    int
}

func New(
	assets []*market.Asset,
	registry *agents.Registry,
	led *ledger.Ledger,
	gen *market.Generator,
	rnd Rand,
) *Engine {
	return &Engine{
		assets:   assets,
		registry: registry,
		ledger:   led,
		gen:      gen,
		rand:     rnd,
		runID:    uuid.NewString(),
	}
}

// AssetQuote is one line of the per-tick price snapshot.
type AssetQuote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// TickResult is what one simulation step produced. Notes carries the
// analysis entries appended during the tick, newest first.
type TickResult struct {
	At     time.Time             `json:"at"`
	Prices []AssetQuote          `json:"prices"`
	Opened []ledger.Trade        `json:"opened"`
	Closed []ledger.Trade        `json:"closed"`
	Notes  []ledger.AnalysisNote `json:"notes"`
}

// Tick runs one simulation step: advance every asset, then let each agent
// first work its exits and then consider one entry. Agents run in registry
// order and never observe another agent's same-tick changes.
func (e *Engine) Tick(now time.Time) TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ticks++
	res := TickResult{At: now}

	for _, a := range e.assets {
		e.gen.Advance(a, now)
		res.Prices = append(res.Prices, AssetQuote{Symbol: a.Symbol, Name: a.Name, Price: a.Price})
	}

	for _, ag := range e.registry.All() {
		res.Closed = append(res.Closed, e.runExits(ag, now)...)
		if t, ok := e.maybeEnter(ag, now); ok {
			res.Opened = append(res.Opened, t)
		}
	}

	if n := len(res.Opened) + len(res.Closed); n > 0 {
		res.Notes = e.ledger.RecentNotes(n)
	}
	return res
}

// runExits walks the agent's open positions in open order. A position closes
// when a bracket fired or the hold draw fails; the draw is skipped entirely
// when a bracket already decided the exit.
func (e *Engine) runExits(ag agents.Agent, now time.Time) []ledger.Trade {
	positions := e.ledger.OpenForAgent(ag.Profile.ID)
	if len(positions) == 0 {
		return nil
	}

	holdProb := holdProbDefault
	if ag.Profile.Risk == agents.RiskLow {
		holdProb = holdProbLow
	}

	var closed []ledger.Trade
	for _, p := range positions {
		price := p.EntryPrice // fallback when the symbol is unknown
		if a := e.assetBySymbol(p.Symbol); a != nil {
			price = a.Price
		}

		hitTP, hitSL := bracketHit(p, price)
		if !hitTP && !hitSL && e.rand.Float64() <= holdProb {
			continue
		}

		t := e.ledger.Close(p.ID, price, now)
		if t == nil {
			continue
		}
		e.registry.AdjustBalance(t.AgentID, t.RealizedPnL, now)
		e.registry.RecordTrade(t.AgentID, *t)
		e.registry.SetLastNote(t.AgentID, closeLine(*t, hitTP, hitSL))
		closed = append(closed, *t)
	}
	return closed
}

// maybeEnter opens at most one position per tick for the agent: skip at the
// position cap, then an entry draw, then asset, direction and size draws.
func (e *Engine) maybeEnter(ag agents.Agent, now time.Time) (ledger.Trade, bool) {
	if e.ledger.OpenCount(ag.Profile.ID) >= maxOpenPositions {
		return ledger.Trade{}, false
	}
	if e.rand.Float64() >= entryChance {
		return ledger.Trade{}, false
	}

	pool := e.preferredAssets(ag.Profile.Preferred)
	asset := pool[e.rand.Intn(len(pool))]

	dir := ledger.Short
	if e.rand.Float64() < 0.5 {
		dir = ledger.Long
	}

	size := money.Round2(baseRiskSize(ag.Profile.Risk) * (0.4 + e.rand.Float64()*0.6))
	note := openLine(ag.Profile.Style, dir, asset.Symbol, e.ticks)

	t := e.ledger.Open(ag.Profile.ID, asset.Symbol, dir, asset.Price, size, note, now)
	e.registry.SetLastNote(ag.Profile.ID, note)
	return t, true
}

// preferredAssets narrows the universe to the agent's preferred symbols,
// falling back to the full universe when nothing matches.
func (e *Engine) preferredAssets(symbols []string) []*market.Asset {
	if len(symbols) == 0 {
		return e.assets
	}
	var pool []*market.Asset
	for _, a := range e.assets {
		for _, s := range symbols {
			if a.Symbol == s {
				pool = append(pool, a)
				break
			}
		}
	}
	if len(pool) == 0 {
		return e.assets
	}
	return pool
}

func (e *Engine) assetBySymbol(symbol string) *market.Asset {
	for _, a := range e.assets {
		if a.Symbol == symbol {
			return a
		}
	}
	return nil
}

func bracketHit(t ledger.Trade, price float64) (hitTP, hitSL bool) {
	if t.Direction == ledger.Long {
		return price >= t.TakeProfit, price <= t.StopLoss
	}
	return price <= t.TakeProfit, price >= t.StopLoss
}

func baseRiskSize(r agents.RiskTolerance) float64 {
	switch r {
	case agents.RiskHigh:
		return 1.8
	case agents.RiskMedium:
		return 1.2
	case agents.RiskLow:
		return 0.8
	default:
		return 1.5 // variable
	}
}

// RunID identifies this simulation run; persisted rows carry it.
func (e *Engine) RunID() string {
	return e.runID
}

// Assets returns a snapshot of the universe without histories.
func (e *Engine) Assets() []AssetQuote {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]AssetQuote, 0, len(e.assets))
	for _, a := range e.assets {
		out = append(out, AssetQuote{Symbol: a.Symbol, Name: a.Name, Price: a.Price})
	}
	return out
}

// AssetHistory returns a copy of one asset's price history.
func (e *Engine) AssetHistory(symbol string) []market.PricePoint {
	e.mu.RLock()
	defer e.mu.RUnlock()

	a := e.assetBySymbol(symbol)
	if a == nil {
		return nil
	}
	out := make([]market.PricePoint, len(a.History))
	copy(out, a.History)
	return out
}

// AgentList returns agent snapshots in registry order.
func (e *Engine) AgentList() []agents.Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.All()
}

// BalanceHistory returns a copy of one agent's balance history.
func (e *Engine) BalanceHistory(agentID string) []agents.BalancePoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.History(agentID)
}

// OpenPositionsByAgent groups open positions by agent id.
func (e *Engine) OpenPositionsByAgent() map[string][]ledger.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.OpenByAgent()
}

// RecentAnalyses returns the last n analysis notes, newest first.
func (e *Engine) RecentAnalyses(n int) []ledger.AnalysisNote {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.RecentNotes(n)
}

// RecentClosed returns the last n closed trades, newest first.
func (e *Engine) RecentClosed(n int) []ledger.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.RecentClosed(n)
}

// SetAgentNote overwrites an agent's display note from outside the tick
// path. Display only, never feeds back into decisions.
func (e *Engine) SetAgentNote(agentID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.SetLastNote(agentID, text)
}

// RolloverPeriod rebases every agent's session pnl baseline.
func (e *Engine) RolloverPeriod() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.ResetAllPeriods()
}
