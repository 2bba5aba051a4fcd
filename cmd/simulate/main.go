package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/engine"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/market"
	"github.com/camuig/quant-arena/internal/money"
)

func main() {
	ticks := flag.Int("ticks", 2000, "number of ticks to simulate")
	seed := flag.Int64("seed", 0, "random seed (0 seeds from the clock)")
	balance := flag.Float64("balance", 10000, "starting balance per agent")
	csvPath := flag.String("csv", "", "write retained closed trades to this CSV file")
	flag.Parse()

	if *ticks <= 0 {
		fmt.Fprintln(os.Stderr, "ticks must be positive")
		os.Exit(1)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(*seed))

	start := time.Now()
	registry := agents.NewRegistry(agents.DefaultProfiles(), *balance, start)
	eng := engine.New(market.DefaultUniverse(), registry, ledger.New(), market.NewGenerator(rnd), rnd)

	at := start
	for i := 0; i < *ticks; i++ {
		at = at.Add(1500 * time.Millisecond)
		eng.Tick(at)
	}

	fmt.Printf("Simulated %d ticks (seed %d).\n\n", *ticks, *seed)

	fmt.Println("Market:")
	for _, q := range eng.Assets() {
		fmt.Printf("  %-5s %-20s %s\n", q.Symbol, q.Name, money.Format(q.Price))
	}
	fmt.Println()

	board := eng.AgentList()
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Balance > board[j].Balance
	})

	fmt.Println("Leaderboard:")
	var totalPnL float64
	var totalTrades int
	for i, ag := range board {
		pnl := money.Round2(ag.Balance - *balance)
		totalPnL += pnl
		totalTrades += ag.Stats.TotalTrades
		fmt.Printf("  %d. %s %-9s %-9s balance %-12s pnl %-11s win %5.1f%%  trades %-4d max dd %s\n",
			i+1, ag.Profile.Glyph, ag.Profile.Name, ag.Profile.Risk,
			money.Format(ag.Balance), money.FormatSigned(pnl),
			ag.Stats.WinRate, ag.Stats.TotalTrades, money.Format(ag.Stats.MaxDrawdown))
	}
	fmt.Printf("\nTotal realized: %s across %d trades.\n", money.FormatSigned(money.Round2(totalPnL)), totalTrades)

	if *csvPath == "" {
		return
	}

	closed := eng.RecentClosed(200)
	if err := writeTradesCSV(*csvPath, closed); err != nil {
		fmt.Fprintf(os.Stderr, "write csv: %v\n", err)
		os.Exit(1)
	}
	if totalTrades > len(closed) {
		fmt.Printf("Wrote last %d of %d closed trades to %s (in-memory retention).\n", len(closed), totalTrades, *csvPath)
	} else {
		fmt.Printf("Wrote %d closed trades to %s.\n", len(closed), *csvPath)
	}
}

// writeTradesCSV writes trades oldest first, matching the web export layout.
func writeTradesCSV(path string, trades []ledger.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"trade_id", "agent_id", "symbol", "direction", "entry_price", "exit_price", "size", "stop_loss", "take_profit", "pnl", "opened_at", "closed_at"}
	if err := w.Write(header); err != nil {
		return err
	}
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		row := []string{
			t.ID,
			t.AgentID,
			t.Symbol,
			string(t.Direction),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
			strconv.FormatFloat(t.StopLoss, 'f', -1, 64),
			strconv.FormatFloat(t.TakeProfit, 'f', -1, 64),
			strconv.FormatFloat(t.RealizedPnL, 'f', -1, 64),
			t.OpenedAt.Format(time.RFC3339),
			t.ClosedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
