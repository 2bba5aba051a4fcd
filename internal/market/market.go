package market

import "time"

// PricePoint is one observation in an asset's price history.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Asset is a synthetic instrument. Price and History belong to the
// generator; nothing else writes them.
type Asset struct {
	Symbol  string       `json:"symbol"`
	Name    string       `json:"name"`
	Price   float64      `json:"price"`
	History []PricePoint `json:"history,omitempty"`
}

// DefaultUniverse returns the built-in asset set with seed prices.
func DefaultUniverse() []*Asset {
	return []*Asset{
		{Symbol: "ACME", Name: "Acme Industrial", Price: 184.20},
		{Symbol: "GLBX", Name: "Globex Corp", Price: 96.45},
		{Symbol: "INIT", Name: "Initech Systems", Price: 23.60},
		{Symbol: "UMBR", Name: "Umbrella Biotech", Price: 8.40},
		{Symbol: "NKTM", Name: "Nakatomi Holdings", Price: 312.75},
		{Symbol: "VNDL", Name: "Vandelay Industries", Price: 57.30},
	}
}
