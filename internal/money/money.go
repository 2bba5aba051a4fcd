package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds to 2 decimal places. Monetary values (prices, sizes, pnl,
// balances) are rounded at the point of derivation so drift never compounds
// across ticks.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Round1 rounds to 1 decimal place, used for win rates.
func Round1(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}

// Format renders v as a currency string with thousands separators:
// 10003.25 -> "$10,003.25", -45.6 -> "-$45.60".
func Format(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}

	parts := strings.SplitN(d.Abs().StringFixed(2), ".", 2)
	var b strings.Builder
	for i := 0; i < len(parts[0]); i++ {
		if i > 0 && (len(parts[0])-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(parts[0][i])
	}
	return sign + "$" + b.String() + "." + parts[1]
}

// FormatSigned is Format with an explicit plus on positive amounts.
func FormatSigned(v float64) string {
	if v > 0 {
		return "+" + Format(v)
	}
	return Format(v)
}
