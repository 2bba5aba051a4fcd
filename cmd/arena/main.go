package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camuig/quant-arena/internal/agents"
	"github.com/camuig/quant-arena/internal/commentary"
	"github.com/camuig/quant-arena/internal/config"
	"github.com/camuig/quant-arena/internal/engine"
	"github.com/camuig/quant-arena/internal/ledger"
	"github.com/camuig/quant-arena/internal/logger"
	"github.com/camuig/quant-arena/internal/market"
	"github.com/camuig/quant-arena/internal/scheduler"
	"github.com/camuig/quant-arena/internal/storage"
	"github.com/camuig/quant-arena/internal/telegram"
	"github.com/camuig/quant-arena/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file (empty runs built-in defaults)")
	dbPath := flag.String("db", "data/quant-arena.db", "path to SQLite database")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("starting quant-arena", "seed", seed, "interval", cfg.Simulation.Interval)

	// Init database
	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the simulation. One seeded source drives both the market and the
	// agents, so a run can be replayed from its seed alone.
	rnd := rand.New(rand.NewSource(seed))
	registry := agents.NewRegistry(agents.DefaultProfiles(), cfg.Simulation.StartingBalance, time.Now())
	eng := engine.New(market.DefaultUniverse(), registry, ledger.New(), market.NewGenerator(rnd), rnd)
	log.Info("arena ready", "run_id", eng.RunID(), "agents", len(registry.All()))

	// Init services
	notifier := telegram.NewNotifier(cfg, log)
	commentator := commentary.NewClient(cfg, log)
	sched := scheduler.NewScheduler(eng, repo, notifier, commentator, cfg, log)
	webServer := web.NewServer(eng, repo, cfg, log)

	// Start scheduler in goroutine
	go sched.Run(ctx)

	// Start web server in goroutine
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notifier.NotifyStatus(fmt.Sprintf("🏟 Quant Arena started (run `%.8s`, seed `%d`)", eng.RunID(), seed))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	cancel() // stop scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 Quant Arena stopped")
	log.Info("quant-arena stopped")
}
