package engine

import (
	"fmt"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/ledger"
)

// Fixed phrase bank keyed by analysis style and direction. Display only, no
// numeric effect; the variant rotates on the tick counter so the random
// stream stays untouched.
var openPhrases = map[agents.AnalysisStyle]map[ledger.Direction][]string{
	agents.StyleTechnical: {
		ledger.Long: {
			"Momentum building over the 20-tick average, going long %s.",
			"%s broke local resistance with volume behind it, riding the trend.",
			"Higher lows stacking up on %s, buying the push.",
		},
		ledger.Short: {
			"RSI rolling over on %s, fading the bounce.",
			"%s rejected hard at resistance, selling the failure.",
			"Series of lower highs on %s, pressing the downtrend.",
		},
	},
	agents.StyleFundamental: {
		ledger.Long: {
			"%s trades below fair value on every screen, accumulating.",
			"Balance sheet at %s is stronger than the tape implies, going long.",
			"Cash flows at %s support a higher multiple, building a position.",
		},
		ledger.Short: {
			"%s is priced for perfection it cannot deliver, selling.",
			"Margins at %s are thinning, taking the short side.",
			"Guidance risk on %s looks underpriced, opening a short.",
		},
	},
	agents.StyleMixed: {
		ledger.Long: {
			"Technicals and valuation finally agree on %s, going long.",
			"Oversold reading on %s with decent fundamentals, buying the dip.",
			"%s setting up on both screens, taking a long.",
		},
		ledger.Short: {
			"Overbought tape on %s with stretched multiples, selling.",
			"%s looks tired up here on every timeframe, shorting.",
			"Price and fundamentals diverging on %s, fading it.",
		},
	},
	agents.StyleQuantitative: {
		ledger.Long: {
			"Mean-reversion model flags %s two sigmas cheap, buying.",
			"Cross-sectional momentum ranks %s top decile, going long.",
			"%s z-score crossed the entry threshold, long signal on.",
		},
		ledger.Short: {
			"Model marks %s rich against the basket, shorting.",
			"Volatility-adjusted carry on %s went negative, selling.",
			"%s momentum factor flipped, short signal on.",
		},
	},
}

func openLine(style agents.AnalysisStyle, dir ledger.Direction, symbol string, tick int) string {
	variants := openPhrases[style][dir]
	if len(variants) == 0 {
		variants = openPhrases[agents.StyleMixed][dir]
	}
	return fmt.Sprintf(variants[tick%len(variants)], symbol)
}

func closeLine(t ledger.Trade, hitTP, hitSL bool) string {
	switch {
	case hitTP:
		return fmt.Sprintf("Take-profit hit on %s %s, banked %+.2f.", t.Symbol, t.Direction, t.RealizedPnL)
	case hitSL:
		return fmt.Sprintf("Stopped out of %s %s at %.2f (%+.2f).", t.Symbol, t.Direction, t.ExitPrice, t.RealizedPnL)
	case t.RealizedPnL >= 0:
		return fmt.Sprintf("Took %s %s off the table for %+.2f.", t.Symbol, t.Direction, t.RealizedPnL)
	default:
		return fmt.Sprintf("Cut the %s %s early, %+.2f.", t.Symbol, t.Direction, t.RealizedPnL)
	}
}
