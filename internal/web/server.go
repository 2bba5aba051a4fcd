package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/camuig/quant-arena/internal/config"
	"github.com/camuig/quant-arena/internal/engine"
	"github.com/camuig/quant-arena/internal/logger"
	"github.com/camuig/quant-arena/internal/storage"
)

type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	repo       *storage.Repository
	config     *config.Config
	logger     *logger.Logger
}

func NewServer(eng *engine.Engine, repo *storage.Repository, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		engine: eng,
		repo:   repo,
		config: cfg,
		logger: log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/charts", s.handleCharts)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/balances", s.handleBalances)
	mux.HandleFunc("/export/trades.csv", s.handleExportTrades)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
