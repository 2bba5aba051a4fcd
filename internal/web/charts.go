package web

import (
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/market"
)

const (
	colorPrice   = "#3b82f6"
	colorSMA     = "#fbbf24"
	colorEMA     = "#f472b6"
	colorBalance = "#34d399"

	chartWidth  = "760px"
	chartHeight = "360px"

	smaPeriod = 20
	emaPeriod = 12
)

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	for _, q := range s.engine.Assets() {
		hist := s.engine.AssetHistory(q.Symbol)
		if len(hist) == 0 {
			continue
		}
		page.AddCharts(priceChart(q.Symbol, q.Name, hist))
	}

	for _, ag := range s.engine.AgentList() {
		points := s.engine.BalanceHistory(ag.Profile.ID)
		if len(points) == 0 {
			continue
		}
		page.AddCharts(balanceChart(ag, points))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		s.logger.Error("render charts", "error", err)
	}
}

func priceChart(symbol, name string, hist []market.PricePoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    symbol,
			Subtitle: name,
			Left:     "left",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "5"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	xAxis := make([]string, len(hist))
	closes := make([]float64, len(hist))
	prices := make([]opts.LineData, len(hist))
	for i, p := range hist {
		xAxis[i] = p.Time.Format("15:04:05")
		closes[i] = p.Price
		prices[i] = opts.LineData{Value: round4(p.Price)}
	}

	line.SetXAxis(xAxis)
	line.AddSeries("Price", prices,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	if len(closes) >= smaPeriod {
		line.AddSeries(fmt.Sprintf("SMA %d", smaPeriod), overlaySeries(talib.Sma(closes, smaPeriod), smaPeriod-1),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSMA, Width: 1}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	if len(closes) >= emaPeriod {
		line.AddSeries(fmt.Sprintf("EMA %d", emaPeriod), overlaySeries(talib.Ema(closes, emaPeriod), emaPeriod-1),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorEMA, Width: 1}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	return line
}

func balanceChart(ag agents.Agent, points []agents.BalancePoint) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", ag.Profile.Glyph, ag.Profile.Name),
			Subtitle: fmt.Sprintf("%s risk, %d trades", ag.Profile.Risk, ag.Stats.TotalTrades),
			Left:     "left",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	xAxis := make([]string, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		xAxis[i] = p.Time.Format("15:04:05")
		data[i] = opts.LineData{Value: round4(p.Balance)}
	}

	line.SetXAxis(xAxis)
	line.AddSeries("Balance", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorBalance, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

// overlaySeries nulls the indicator warm-up prefix so the chart does not
// draw the zero-filled leading values talib returns.
func overlaySeries(series []float64, warmup int) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if i < warmup || math.IsNaN(v) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: round4(v)}
	}
	return data
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
