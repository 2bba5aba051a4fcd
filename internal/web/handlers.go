package web

import (
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/engine"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/money"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

type AssetRow struct {
	Symbol    string
	Name      string
	Price     string
	ChangePct float64
}

type AgentRow struct {
	Rank        int
	Glyph       string
	Name        string
	Risk        string
	Style       string
	Balance     string
	SessionPnL  string
	SessionUp   bool
	WinRate     float64
	TotalTrades int
	MaxDrawdown string
	LastNote    string
}

type PositionRow struct {
	Agent        string
	Glyph        string
	Symbol       string
	Direction    string
	EntryPrice   string
	CurrentPrice string
	StopLoss     string
	TakeProfit   string
	Size         float64
	PnL          string
	PnLUp        bool
	OpenedAt     string
}

type NoteRow struct {
	Time    string
	Glyph   string
	Agent   string
	Summary string
}

type ClosedRow struct {
	ClosedAt  string
	Glyph     string
	Agent     string
	Symbol    string
	Direction string
	Entry     string
	Exit      string
	PnL       string
	PnLUp     bool
}

type DashboardData struct {
	RunID          string
	UpdatedAt      string
	Assets         []AssetRow
	Leaderboard    []AgentRow
	OpenPositions  []PositionRow
	PositionsCount int
	RecentAnalyses []NoteRow
	RecentClosed   []ClosedRow
	StoredTrades   int64
	TotalPnL       string
	TotalPnLUp     bool
	SessionPnL     string
	SessionUp      bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ags := s.engine.AgentList()
	quotes := s.engine.Assets()
	openByAgent := s.engine.OpenPositionsByAgent()

	data := DashboardData{
		RunID:     s.engine.RunID(),
		UpdatedAt: time.Now().Format("15:04:05"),
	}

	for _, q := range quotes {
		data.Assets = append(data.Assets, AssetRow{
			Symbol:    q.Symbol,
			Name:      q.Name,
			Price:     money.Format(q.Price),
			ChangePct: s.lastChangePct(q.Symbol),
		})
	}

	data.Leaderboard = buildLeaderboard(ags)

	for _, ag := range ags {
		for _, t := range openByAgent[ag.Profile.ID] {
			data.OpenPositions = append(data.OpenPositions, s.positionRow(ag, t))
		}
	}
	data.PositionsCount = len(data.OpenPositions)

	glyphs := make(map[string]string, len(ags))
	names := make(map[string]string, len(ags))
	for _, ag := range ags {
		glyphs[ag.Profile.ID] = ag.Profile.Glyph
		names[ag.Profile.ID] = ag.Profile.Name
	}

	for _, n := range s.engine.RecentAnalyses(8) {
		data.RecentAnalyses = append(data.RecentAnalyses, NoteRow{
			Time:    n.Time.Format("15:04:05"),
			Glyph:   glyphs[n.AgentID],
			Agent:   names[n.AgentID],
			Summary: n.Summary,
		})
	}

	for _, t := range s.engine.RecentClosed(20) {
		data.RecentClosed = append(data.RecentClosed, ClosedRow{
			ClosedAt:  t.ClosedAt.Format("15:04:05"),
			Glyph:     glyphs[t.AgentID],
			Agent:     names[t.AgentID],
			Symbol:    t.Symbol,
			Direction: string(t.Direction),
			Entry:     money.Format(t.EntryPrice),
			Exit:      money.Format(t.ExitPrice),
			PnL:       money.FormatSigned(t.RealizedPnL),
			PnLUp:     t.RealizedPnL > 0,
		})
	}

	if count, err := s.repo.GetTradeCount(s.engine.RunID()); err == nil {
		data.StoredTrades = count
	}
	if total, err := s.repo.GetTotalPnL(s.engine.RunID()); err == nil {
		data.TotalPnL = money.FormatSigned(total)
		data.TotalPnLUp = total >= 0
	}

	var session float64
	for _, ag := range ags {
		session += ag.SessionPnL()
	}
	session = money.Round2(session)
	data.SessionPnL = money.FormatSigned(session)
	data.SessionUp = session >= 0

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("execute template", "error", err)
	}
}

// lastChangePct compares the two most recent history points of one asset.
func (s *Server) lastChangePct(symbol string) float64 {
	hist := s.engine.AssetHistory(symbol)
	if len(hist) < 2 {
		return 0
	}
	prev := hist[len(hist)-2].Price
	if prev == 0 {
		return 0
	}
	return money.Round2((hist[len(hist)-1].Price - prev) / prev * 100)
}

func buildLeaderboard(ags []agents.Agent) []AgentRow {
	sort.SliceStable(ags, func(i, j int) bool {
		return ags[i].Balance > ags[j].Balance
	})

	rows := make([]AgentRow, 0, len(ags))
	for i, ag := range ags {
		pnl := ag.SessionPnL()
		rows = append(rows, AgentRow{
			Rank:        i + 1,
			Glyph:       ag.Profile.Glyph,
			Name:        ag.Profile.Name,
			Risk:        string(ag.Profile.Risk),
			Style:       string(ag.Profile.Style),
			Balance:     money.Format(ag.Balance),
			SessionPnL:  money.FormatSigned(pnl),
			SessionUp:   pnl >= 0,
			WinRate:     ag.Stats.WinRate,
			TotalTrades: ag.Stats.TotalTrades,
			MaxDrawdown: money.Format(ag.Stats.MaxDrawdown),
			LastNote:    ag.LastNote,
		})
	}
	return rows
}

// positionRow marks an open trade to the current market price.
func (s *Server) positionRow(ag agents.Agent, t ledger.Trade) PositionRow {
	current := t.EntryPrice
	for _, q := range s.engine.Assets() {
		if q.Symbol == t.Symbol {
			current = q.Price
			break
		}
	}

	diff := current - t.EntryPrice
	if t.Direction == ledger.Short {
		diff = -diff
	}
	pnl := money.Round2(diff * t.Size)

	return PositionRow{
		Agent:        ag.Profile.Name,
		Glyph:        ag.Profile.Glyph,
		Symbol:       t.Symbol,
		Direction:    string(t.Direction),
		EntryPrice:   money.Format(t.EntryPrice),
		CurrentPrice: money.Format(money.Round2(current)),
		StopLoss:     money.Format(t.StopLoss),
		TakeProfit:   money.Format(t.TakeProfit),
		Size:         t.Size,
		PnL:          money.FormatSigned(pnl),
		PnLUp:        pnl >= 0,
		OpenedAt:     t.OpenedAt.Format("15:04:05"),
	}
}

type stateResponse struct {
	RunID          string                    `json:"run_id"`
	At             time.Time                 `json:"at"`
	Assets         []engine.AssetQuote       `json:"assets"`
	Agents         []agents.Agent            `json:"agents"`
	OpenPositions  map[string][]ledger.Trade `json:"open_positions"`
	RecentAnalyses []ledger.AnalysisNote     `json:"recent_analyses"`
	RecentClosed   []ledger.Trade            `json:"recent_closed"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ags := s.engine.AgentList()
	for i := range ags {
		// history is served by /api/balances
		ags[i].BalanceHistory = nil
	}

	resp := stateResponse{
		RunID:          s.engine.RunID(),
		At:             time.Now(),
		Assets:         s.engine.Assets(),
		Agents:         ags,
		OpenPositions:  s.engine.OpenPositionsByAgent(),
		RecentAnalyses: s.engine.RecentAnalyses(8),
		RecentClosed:   s.engine.RecentClosed(20),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode state", "error", err)
	}
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent")
	if agentID == "" {
		http.Error(w, "agent query parameter required", http.StatusBadRequest)
		return
	}

	series, err := s.repo.GetBalanceSeries(s.engine.RunID(), agentID, 500)
	if err != nil {
		s.logger.Error("balance series", "agent", agentID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(series); err != nil {
		s.logger.Error("encode balances", "error", err)
	}
}

func (s *Server) handleExportTrades(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.GetTradesForExport(s.engine.RunID())
	if err != nil {
		s.logger.Error("export trades", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=trades-%s.csv", time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"trade_id", "agent_id", "symbol", "direction", "entry_price", "exit_price", "size", "stop_loss", "take_profit", "pnl", "opened_at", "closed_at"}
	if err := cw.Write(header); err != nil {
		s.logger.Error("write csv header", "error", err)
		return
	}
	for _, rec := range records {
		row := []string{
			rec.TradeID,
			rec.AgentID,
			rec.Symbol,
			rec.Direction,
			formatFloat(rec.EntryPrice),
			formatFloat(rec.ExitPrice),
			formatFloat(rec.Size),
			formatFloat(rec.StopLoss),
			formatFloat(rec.TakeProfit),
			formatFloat(rec.PnL),
			rec.OpenedAt.Format(time.RFC3339),
			rec.ClosedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			s.logger.Error("write csv row", "trade", rec.TradeID, "error", err)
			return
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
