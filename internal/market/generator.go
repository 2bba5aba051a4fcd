package market

import "time"

// Rand is the randomness the generator consumes. *math/rand.Rand satisfies
// it; tests substitute scripted sequences.
type Rand interface {
	Float64() float64
}

const (
	maxDrift      = 0.01  // ±1% per tick
	maxVolatility = 0.015 // up to +1.5% on top
	shockChance   = 0.05
	maxShock      = 0.06 // ±6% when a shock fires
	priceFloor    = 5.0
	historyLimit  = 120
)

// Generator advances asset prices with a bounded random walk.
type Generator struct {
	rand Rand
}

func NewGenerator(r Rand) *Generator {
	return &Generator{rand: r}
}

// Advance moves the asset one tick forward and returns the new price.
// Draw order is fixed: drift, volatility, shock trigger, then shock
// magnitude only when the trigger fires. The price never drops below
// max(5, half the previous price).
func (g *Generator) Advance(a *Asset, now time.Time) float64 {
	drift := (g.rand.Float64()*2 - 1) * maxDrift
	vol := g.rand.Float64() * maxVolatility

	shock := 0.0
	if g.rand.Float64() < shockChance {
		shock = (g.rand.Float64()*2 - 1) * maxShock
	}

	next := a.Price * (1 + drift + vol + shock)
	if min := a.Price * 0.5; next < min {
		next = min
	}
	if next < priceFloor {
		next = priceFloor
	}

	a.Price = next
	a.History = append(a.History, PricePoint{Time: now, Price: next})
	if len(a.History) > historyLimit {
		a.History = a.History[len(a.History)-historyLimit:]
	}
	return next
}
