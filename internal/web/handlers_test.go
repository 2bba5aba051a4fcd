package web

import (
	"encoding/csv"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/config"
	"github.com/camuig/quant-arena/internal/engine"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/logger"
	"github.com/camuig/quant-arena/internal/market"
	"github.com/camuig/quant-arena/internal/storage"
)

func newTestServer(t *testing.T, ticks int) *Server {
	t.Helper()

	rnd := rand.New(rand.NewSource(420))
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	registry := agents.NewRegistry(agents.DefaultProfiles(), 10000, at)
	eng := engine.New(market.DefaultUniverse(), registry, ledger.New(), market.NewGenerator(rnd), rnd)
	for i := 0; i < ticks; i++ {
		at = at.Add(1500 * time.Millisecond)
		eng.Tick(at)
	}

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "arena.db"))
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)

	return NewServer(eng, storage.NewRepository(db), cfg, logger.New("error", "text"))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDashboardRenders(t *testing.T) {
	srv := newTestServer(t, 50)

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Quant Arena")
	assert.Contains(t, body, "Leaderboard")
	for _, name := range []string{"Maverick", "Sentinel", "Oracle", "Flux"} {
		assert.Contains(t, body, name)
	}
	for _, sym := range []string{"ACME", "GLBX", "INIT", "UMBR", "NKTM", "VNDL"} {
		assert.Contains(t, body, sym)
	}
}

func TestDashboardUnknownPath(t *testing.T) {
	srv := newTestServer(t, 1)
	rec := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStateJSON(t *testing.T) {
	srv := newTestServer(t, 50)

	rec := get(t, srv, "/api/state")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var state struct {
		RunID          string                `json:"run_id"`
		Assets         []engine.AssetQuote   `json:"assets"`
		Agents         []agents.Agent        `json:"agents"`
		RecentAnalyses []ledger.AnalysisNote `json:"recent_analyses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))

	assert.NotEmpty(t, state.RunID)
	assert.Len(t, state.Assets, 6)
	require.Len(t, state.Agents, 4)
	assert.Equal(t, "maverick", state.Agents[0].Profile.ID)
	assert.Empty(t, state.Agents[0].BalanceHistory, "history belongs to /api/balances")
	assert.LessOrEqual(t, len(state.RecentAnalyses), 8)
}

func TestBalancesRequiresAgent(t *testing.T) {
	srv := newTestServer(t, 1)
	rec := get(t, srv, "/api/balances")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalancesSeries(t *testing.T) {
	srv := newTestServer(t, 1)
	runID := srv.engine.RunID()

	snaps := []storage.BalanceSnapshot{
		{RunID: runID, AgentID: "maverick", Balance: 10000},
		{RunID: runID, AgentID: "maverick", Balance: 10012.5},
		{RunID: runID, AgentID: "maverick", Balance: 9998},
		{RunID: runID, AgentID: "sentinel", Balance: 10000},
		{RunID: "other-run", AgentID: "maverick", Balance: 5},
	}
	require.NoError(t, srv.repo.SaveBalanceSnapshots(snaps))

	rec := get(t, srv, "/api/balances?agent=maverick")
	require.Equal(t, http.StatusOK, rec.Code)

	var series []storage.BalanceSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 3)
	assert.InDelta(t, 10000.0, series[0].Balance, 1e-9)
	assert.InDelta(t, 9998.0, series[2].Balance, 1e-9)
}

func TestExportTradesCSV(t *testing.T) {
	srv := newTestServer(t, 1)
	runID := srv.engine.RunID()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	err := srv.repo.SaveTrades([]storage.TradeRecord{
		{RunID: runID, TradeID: "maverick-1", AgentID: "maverick", Symbol: "ACME", Direction: "long", EntryPrice: 100, ExitPrice: 103, Size: 1, PnL: 3, ClosedAt: now.Add(time.Minute)},
		{RunID: runID, TradeID: "sentinel-1", AgentID: "sentinel", Symbol: "GLBX", Direction: "short", EntryPrice: 50, ExitPrice: 51.5, Size: 2, PnL: -3, ClosedAt: now},
		{RunID: "other-run", TradeID: "flux-1", AgentID: "flux", Symbol: "VNDL", Direction: "long", EntryPrice: 1, ExitPrice: 2, Size: 1, PnL: 1, ClosedAt: now},
	})
	require.NoError(t, err)

	rec := get(t, srv, "/export/trades.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two trades for this run")
	assert.Equal(t, "trade_id", rows[0][0])
	assert.Equal(t, "sentinel-1", rows[1][0], "oldest close first")
	assert.Equal(t, "maverick-1", rows[2][0])
	assert.Equal(t, "-3", rows[1][9])
}

func TestChartsPage(t *testing.T) {
	srv := newTestServer(t, 30)

	rec := get(t, srv, "/charts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echarts")
	assert.Contains(t, rec.Body.String(), "ACME")
	assert.Contains(t, rec.Body.String(), "Maverick")
}
