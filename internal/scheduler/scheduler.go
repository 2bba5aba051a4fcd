package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/camuig/quant-arena/internal/commentary"
	"github.com/camuig/quant-arena/internal/config"
	"github.com/camuig/quant-arena/internal/engine"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/logger"
	"github.com/camuig/quant-arena/internal/storage"
	"github.com/camuig/quant-arena/internal/telegram"
)

type Scheduler struct {
	engine      *engine.Engine
	repo        *storage.Repository
	notifier    *telegram.Notifier
	commentator *commentary.Client
	config      *config.Config
	logger      *logger.Logger

	ticks       int
	currentDay  int
	lastComment time.Time
}

func NewScheduler(
	eng *engine.Engine,
	repo *storage.Repository,
	notifier *telegram.Notifier,
	commentator *commentary.Client,
	cfg *config.Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		engine:      eng,
		repo:        repo,
		notifier:    notifier,
		commentator: commentator,
		config:      cfg,
		logger:      log,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.config.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval.String(), "run_id", s.engine.RunID())

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduler cycle", "panic", fmt.Sprint(r))
			s.notifier.NotifyError("scheduler panic", fmt.Errorf("%v", r))
		}
	}()

	now := time.Now()
	s.rolloverOnNewDay(now)

	// 1. Advance the simulation one tick
	res := s.engine.Tick(now)
	s.ticks++

	for _, t := range res.Closed {
		s.logger.Info("position closed",
			"agent", t.AgentID, "symbol", t.Symbol, "direction", string(t.Direction),
			"exit", t.ExitPrice, "pnl", t.RealizedPnL)
	}
	for _, t := range res.Opened {
		s.logger.Debug("position opened",
			"agent", t.AgentID, "symbol", t.Symbol, "direction", string(t.Direction),
			"entry", t.EntryPrice, "size", t.Size)
	}

	// 2. Persist settled trades and analysis notes
	s.persistTick(res)

	// 3. Sample agent balances on the snapshot cadence
	if s.ticks%s.config.Simulation.SnapshotEvery == 0 {
		s.saveBalanceSnapshots()
	}

	// 4. Push settle notifications
	for _, t := range res.Closed {
		s.notifier.NotifyClose(t)
	}

	// 5. Occasional color commentary on the loudest settle
	s.maybeCommentate(ctx, res.Closed)
}

// rolloverOnNewDay rebases the per-session pnl baselines when the wall clock
// crosses midnight between ticks.
func (s *Scheduler) rolloverOnNewDay(now time.Time) {
	day := now.YearDay()
	if s.currentDay == 0 {
		s.currentDay = day
		return
	}
	if day == s.currentDay {
		return
	}

	s.currentDay = day
	s.engine.RolloverPeriod()
	s.logger.Info("session rolled over", "date", now.Format("2006-01-02"))
	s.notifier.NotifyStatus("🔄 New session: daily baselines rebased")
}

func (s *Scheduler) persistTick(res engine.TickResult) {
	runID := s.engine.RunID()

	if len(res.Closed) > 0 {
		records := make([]storage.TradeRecord, 0, len(res.Closed))
		for _, t := range res.Closed {
			records = append(records, tradeRecord(runID, t))
		}
		if err := s.repo.SaveTrades(records); err != nil {
			s.logger.Error("save trades", "error", err)
		}
	}

	if len(res.Notes) > 0 {
		notes := make([]storage.AnalysisRecord, 0, len(res.Notes))
		for _, n := range res.Notes {
			notes = append(notes, storage.AnalysisRecord{
				RunID:   runID,
				NoteID:  n.ID,
				AgentID: n.AgentID,
				Summary: n.Summary,
				NotedAt: n.Time,
			})
		}
		if err := s.repo.SaveAnalyses(notes); err != nil {
			s.logger.Error("save analyses", "error", err)
		}
	}
}

func tradeRecord(runID string, t ledger.Trade) storage.TradeRecord {
	return storage.TradeRecord{
		RunID:      runID,
		TradeID:    t.ID,
		AgentID:    t.AgentID,
		Symbol:     t.Symbol,
		Direction:  string(t.Direction),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Size:       t.Size,
		StopLoss:   t.StopLoss,
		TakeProfit: t.TakeProfit,
		PnL:        t.RealizedPnL,
		OpenedAt:   t.OpenedAt,
		ClosedAt:   t.ClosedAt,
	}
}

func (s *Scheduler) saveBalanceSnapshots() {
	runID := s.engine.RunID()
	roster := s.engine.AgentList()

	snapshots := make([]storage.BalanceSnapshot, 0, len(roster))
	for _, a := range roster {
		snapshots = append(snapshots, storage.BalanceSnapshot{
			RunID:       runID,
			AgentID:     a.Profile.ID,
			Balance:     a.Balance,
			PeakBalance: a.Stats.PeakBalance,
			MaxDrawdown: a.Stats.MaxDrawdown,
			TotalTrades: a.Stats.TotalTrades,
			Wins:        a.Stats.Wins,
			WinRate:     a.Stats.WinRate,
		})
	}
	if err := s.repo.SaveBalanceSnapshots(snapshots); err != nil {
		s.logger.Error("save balance snapshots", "error", err)
	}
}

// maybeCommentate asks the commentary model about the biggest settle of the
// tick, throttled and off the tick path so a slow reply never stalls the
// loop.
func (s *Scheduler) maybeCommentate(ctx context.Context, closed []ledger.Trade) {
	if !s.commentator.Enabled() || len(closed) == 0 {
		return
	}
	if time.Since(s.lastComment) < s.config.CommentaryMinInterval() {
		return
	}

	pick := closed[0]
	for _, t := range closed[1:] {
		if math.Abs(t.RealizedPnL) > math.Abs(pick.RealizedPnL) {
			pick = t
		}
	}
	s.lastComment = time.Now()

	go func() {
		text, err := s.commentator.TradeColor(ctx, pick)
		if err != nil {
			s.logger.Error("commentary", "error", err)
			return
		}
		s.engine.SetAgentNote(pick.AgentID, text)
	}()
}
