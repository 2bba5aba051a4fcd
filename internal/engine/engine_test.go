package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/market"
)

var baseTime = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

// scriptRand feeds predetermined draws to the generator and the policy.
// Running past the script fails the test, which also pins the draw count.
type scriptRand struct {
	t      *testing.T
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptRand) Float64() float64 {
	require.Less(s.t, s.fi, len(s.floats), "script ran out of float draws")
	v := s.floats[s.fi]
	s.fi++
	return v
}

func (s *scriptRand) Intn(n int) int {
	require.Less(s.t, s.ii, len(s.ints), "script ran out of int draws")
	v := s.ints[s.ii]
	s.ii++
	require.Less(s.t, v, n, "scripted int out of range")
	return v
}

func newTestEngine(profiles []agents.Profile, assetList []*market.Asset, rnd Rand) *Engine {
	reg := agents.NewRegistry(profiles, 10000, baseTime)
	led := ledger.New()
	gen := market.NewGenerator(rnd)
	return New(assetList, reg, led, gen, rnd)
}

// quiet generator draws for one asset: zero drift, zero volatility, no shock
var steadyMarket = []float64{0.5, 0, 0.99}

func TestTickOpensPosition(t *testing.T) {
	oracle := agents.Profile{ID: "oracle", Name: "Oracle", Risk: agents.RiskMedium, Style: agents.StyleMixed, Preferred: []string{"INIT"}}
	rnd := &scriptRand{
		t: t,
		// market, then entry draw, direction, size
		floats: append(append([]float64{}, steadyMarket...), 0.1, 0.3, 0.5),
		ints:   []int{0},
	}
	// no INIT in the universe, so the preferred filter falls back
	e := newTestEngine([]agents.Profile{oracle}, []*market.Asset{{Symbol: "ACME", Name: "Acme Industrial", Price: 100}}, rnd)

	res := e.Tick(baseTime.Add(time.Second))

	require.Len(t, res.Opened, 1)
	require.Empty(t, res.Closed)
	got := res.Opened[0]
	assert.Equal(t, "oracle", got.AgentID)
	assert.Equal(t, "ACME", got.Symbol)
	assert.Equal(t, ledger.Long, got.Direction)
	assert.Equal(t, 100.0, got.EntryPrice)
	assert.Equal(t, 0.84, got.Size, "1.2 base risk x 0.7 size factor")
	assert.Equal(t, 97.0, got.StopLoss)
	assert.Equal(t, 103.0, got.TakeProfit)
	assert.Contains(t, got.Note, "ACME")

	require.Len(t, res.Notes, 1)
	assert.Equal(t, got.Note, res.Notes[0].Summary)

	ag := e.AgentList()[0]
	assert.Equal(t, got.Note, ag.LastNote)
	assert.Equal(t, 10000.0, ag.Balance, "opening does not move the balance")
}

func TestTickRespectsPositionCap(t *testing.T) {
	maverick := agents.Profile{ID: "maverick", Risk: agents.RiskHigh, Style: agents.StyleTechnical}
	rnd := &scriptRand{
		t: t,
		// market, then three hold draws; an entry draw would overrun the script
		floats: append(append([]float64{}, steadyMarket...), 0.1, 0.1, 0.1),
	}
	e := newTestEngine([]agents.Profile{maverick}, []*market.Asset{{Symbol: "ACME", Price: 100}}, rnd)
	for i := 0; i < 3; i++ {
		e.ledger.Open("maverick", "ACME", ledger.Long, 100, 1, "n", baseTime.Add(time.Duration(i)*time.Millisecond))
	}

	res := e.Tick(baseTime.Add(time.Second))

	assert.Empty(t, res.Opened)
	assert.Empty(t, res.Closed)
	assert.Equal(t, 3, e.ledger.OpenCount("maverick"))
}

func TestTickClosesOnTakeProfit(t *testing.T) {
	maverick := agents.Profile{ID: "maverick", Risk: agents.RiskHigh, Style: agents.StyleTechnical}
	rnd := &scriptRand{
		t: t,
		// max drift, max volatility, shock fires at +6% -> price 108.5, then
		// no hold draw (bracket decided), then a failed entry draw
		floats: []float64{1, 1, 0, 1, 0.9},
	}
	e := newTestEngine([]agents.Profile{maverick}, []*market.Asset{{Symbol: "ACME", Price: 100}}, rnd)
	e.ledger.Open("maverick", "ACME", ledger.Long, 100, 1, "n", baseTime)

	res := e.Tick(baseTime.Add(time.Second))

	require.Len(t, res.Closed, 1)
	got := res.Closed[0]
	assert.Equal(t, 108.5, got.ExitPrice)
	assert.Equal(t, 8.5, got.RealizedPnL)
	assert.Equal(t, ledger.StatusClosed, got.Status)
	assert.Equal(t, 0, e.ledger.NumOpen())

	ag := e.AgentList()[0]
	assert.Equal(t, 10008.5, ag.Balance)
	assert.Equal(t, 1, ag.Stats.Wins)
	assert.Equal(t, 1, ag.Stats.TotalTrades)
	assert.Equal(t, 100.0, ag.Stats.WinRate)
	assert.Contains(t, ag.LastNote, "Take-profit")
}

func TestTickHoldProbability(t *testing.T) {
	t.Run("low risk folds early", func(t *testing.T) {
		sentinel := agents.Profile{ID: "sentinel", Risk: agents.RiskLow, Style: agents.StyleFundamental}
		rnd := &scriptRand{
			t:      t,
			floats: append(append([]float64{}, steadyMarket...), 0.25, 0.9),
		}
		e := newTestEngine([]agents.Profile{sentinel}, []*market.Asset{{Symbol: "ACME", Price: 100}}, rnd)
		e.ledger.Open("sentinel", "ACME", ledger.Long, 100, 1, "n", baseTime)

		res := e.Tick(baseTime.Add(time.Second))

		// 0.25 > 0.20 hold probability: the position goes
		require.Len(t, res.Closed, 1)
		assert.Equal(t, 0.0, res.Closed[0].RealizedPnL)
		ag := e.AgentList()[0]
		assert.Equal(t, 0, ag.Stats.Wins, "zero pnl is not a win")
		assert.Equal(t, 1, ag.Stats.TotalTrades)
		assert.Equal(t, 0.0, ag.Stats.WinRate)
	})

	t.Run("default risk holds through the same draw", func(t *testing.T) {
		oracle := agents.Profile{ID: "oracle", Risk: agents.RiskMedium, Style: agents.StyleMixed}
		rnd := &scriptRand{
			t:      t,
			floats: append(append([]float64{}, steadyMarket...), 0.25, 0.9),
		}
		e := newTestEngine([]agents.Profile{oracle}, []*market.Asset{{Symbol: "ACME", Price: 100}}, rnd)
		e.ledger.Open("oracle", "ACME", ledger.Long, 100, 1, "n", baseTime)

		res := e.Tick(baseTime.Add(time.Second))

		assert.Empty(t, res.Closed)
		assert.Equal(t, 1, e.ledger.OpenCount("oracle"))
	})
}

func TestTickPreferredAssets(t *testing.T) {
	universe := func() []*market.Asset {
		return []*market.Asset{
			{Symbol: "ACME", Price: 100},
			{Symbol: "GLBX", Price: 50},
		}
	}

	t.Run("preferred narrows the pool", func(t *testing.T) {
		sentinel := agents.Profile{ID: "sentinel", Risk: agents.RiskLow, Style: agents.StyleFundamental, Preferred: []string{"GLBX", "VNDL"}}
		rnd := &scriptRand{
			t:      t,
			floats: append(append(append([]float64{}, steadyMarket...), steadyMarket...), 0.1, 0.6, 0.5),
			ints:   []int{0},
		}
		e := newTestEngine([]agents.Profile{sentinel}, universe(), rnd)

		res := e.Tick(baseTime.Add(time.Second))

		require.Len(t, res.Opened, 1)
		assert.Equal(t, "GLBX", res.Opened[0].Symbol)
		assert.Equal(t, ledger.Short, res.Opened[0].Direction)
		assert.Equal(t, 0.56, res.Opened[0].Size, "0.8 base risk x 0.7 size factor")
	})

	t.Run("no preferences draws from the full universe", func(t *testing.T) {
		flux := agents.Profile{ID: "flux", Risk: agents.RiskVariable, Style: agents.StyleQuantitative}
		rnd := &scriptRand{
			t:      t,
			floats: append(append(append([]float64{}, steadyMarket...), steadyMarket...), 0.1, 0.6, 0.5),
			ints:   []int{1},
		}
		e := newTestEngine([]agents.Profile{flux}, universe(), rnd)

		res := e.Tick(baseTime.Add(time.Second))

		require.Len(t, res.Opened, 1)
		assert.Equal(t, "GLBX", res.Opened[0].Symbol)
		assert.Equal(t, 1.05, res.Opened[0].Size, "1.5 base risk x 0.7 size factor")
	})
}

func TestTickCloseAndReopenSameTick(t *testing.T) {
	sentinel := agents.Profile{ID: "sentinel", Risk: agents.RiskLow, Style: agents.StyleFundamental}
	rnd := &scriptRand{
		t: t,
		// hold draw fails, then entry, direction, size
		floats: append(append([]float64{}, steadyMarket...), 0.5, 0.1, 0.3, 0.5),
		ints:   []int{0},
	}
	e := newTestEngine([]agents.Profile{sentinel}, []*market.Asset{{Symbol: "ACME", Price: 100}}, rnd)
	e.ledger.Open("sentinel", "ACME", ledger.Long, 100, 1, "n", baseTime)

	res := e.Tick(baseTime.Add(time.Second))

	require.Len(t, res.Closed, 1)
	require.Len(t, res.Opened, 1)
	assert.Equal(t, 1, e.ledger.OpenCount("sentinel"))
	assert.NotEqual(t, res.Closed[0].ID, res.Opened[0].ID)
	assert.Len(t, res.Notes, 2, "one note for the close, one for the reopen")
}

func TestTickUnknownSymbolFallsBackToEntry(t *testing.T) {
	maverick := agents.Profile{ID: "maverick", Risk: agents.RiskHigh, Style: agents.StyleTechnical}
	rnd := &scriptRand{
		t:      t,
		floats: append(append([]float64{}, steadyMarket...), 0.9, 0.9),
	}
	e := newTestEngine([]agents.Profile{maverick}, []*market.Asset{{Symbol: "ACME", Price: 100}}, rnd)
	e.ledger.Open("maverick", "GONE", ledger.Long, 100, 1, "n", baseTime)

	res := e.Tick(baseTime.Add(time.Second))

	require.Len(t, res.Closed, 1)
	assert.Equal(t, 100.0, res.Closed[0].ExitPrice, "missing asset settles at entry price")
	assert.Equal(t, 0.0, res.Closed[0].RealizedPnL)
}

func newSeededArena(seed int64) *Engine {
	src := rand.New(rand.NewSource(seed))
	reg := agents.NewRegistry(agents.DefaultProfiles(), 10000, baseTime)
	return New(market.DefaultUniverse(), reg, ledger.New(), market.NewGenerator(src), src)
}

func TestSameSeedSameRun(t *testing.T) {
	a := newSeededArena(420)
	b := newSeededArena(420)

	for i := 0; i < 60; i++ {
		at := baseTime.Add(time.Duration(i) * 1500 * time.Millisecond)
		require.Equal(t, a.Tick(at), b.Tick(at), "tick %d diverged", i)
	}

	assert.Equal(t, a.AgentList(), b.AgentList())
	assert.Equal(t, a.Assets(), b.Assets())
	assert.Equal(t, a.RecentClosed(200), b.RecentClosed(200))
}

func TestRunInvariantsOverLongRun(t *testing.T) {
	e := newSeededArena(7)

	for i := 0; i < 500; i++ {
		at := baseTime.Add(time.Duration(i) * 1500 * time.Millisecond)
		res := e.Tick(at)

		for _, q := range res.Prices {
			require.GreaterOrEqual(t, q.Price, 5.0)
		}
		for _, tr := range res.Opened {
			require.Greater(t, tr.Size, 0.0)
			require.Greater(t, tr.EntryPrice, 0.0)
		}
		for id, open := range e.OpenPositionsByAgent() {
			require.LessOrEqual(t, len(open), 3, "agent %s exceeded the position cap", id)
		}
		for _, ag := range e.AgentList() {
			require.GreaterOrEqual(t, ag.Stats.WinRate, 0.0)
			require.LessOrEqual(t, ag.Stats.WinRate, 100.0)
			require.LessOrEqual(t, len(ag.BalanceHistory), 240)
			require.GreaterOrEqual(t, ag.Stats.MaxDrawdown, 0.0)
		}
	}

	require.LessOrEqual(t, e.ledger.NumClosed(), 200)
	for _, q := range e.Assets() {
		require.LessOrEqual(t, len(e.AssetHistory(q.Symbol)), 120)
	}

	notes := e.RecentAnalyses(8)
	require.NotEmpty(t, notes)
	require.LessOrEqual(t, len(notes), 8)
	for i := 1; i < len(notes); i++ {
		require.False(t, notes[i].Time.After(notes[i-1].Time), "notes must be newest first")
	}
}

func TestOpenLineRotation(t *testing.T) {
	first := openLine(agents.StyleTechnical, ledger.Long, "ACME", 1)
	second := openLine(agents.StyleTechnical, ledger.Long, "ACME", 2)
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, openLine(agents.StyleTechnical, ledger.Long, "ACME", 4))

	for _, style := range []agents.AnalysisStyle{agents.StyleTechnical, agents.StyleFundamental, agents.StyleMixed, agents.StyleQuantitative} {
		for _, dir := range []ledger.Direction{ledger.Long, ledger.Short} {
			assert.Contains(t, openLine(style, dir, "GLBX", 3), "GLBX")
		}
	}

	// unknown style borrows the mixed bank rather than failing
	assert.Contains(t, openLine(agents.AnalysisStyle("astrology"), ledger.Long, "NKTM", 1), "NKTM")
}

func TestRolloverPeriod(t *testing.T) {
	e := newSeededArena(99)
	for i := 0; i < 40; i++ {
		e.Tick(baseTime.Add(time.Duration(i) * 1500 * time.Millisecond))
	}

	e.RolloverPeriod()

	for _, ag := range e.AgentList() {
		assert.Equal(t, 0.0, ag.SessionPnL())
	}
}
