package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/evdal/switchback/internal/logging"
	"github.com/evdal/switchback/internal/orchestrator"
	"github.com/evdal/switchback/internal/runtime"
	"github.com/evdal/switchback/internal/store"
)

// Deployments are bounded by the probe policy, not this timeout. It only
// caps truly stuck runtime operations.
const defaultContextTimeout = 30 * time.Minute

type APIServer struct {
	router     *http.ServeMux
	httpServer *http.Server

	orch       *orchestrator.Orchestrator
	controller runtime.Controller
	db         *store.DB
	logBroker  *logging.Broker
	logLevel   slog.Level
	apiToken   string
	logger     *slog.Logger
}

type ServerOptions struct {
	Listen   string
	APIToken string
	LogLevel slog.Level
}

func NewServer(opts ServerOptions, orch *orchestrator.Orchestrator, controller runtime.Controller, db *store.DB, logBroker *logging.Broker, logger *slog.Logger) *APIServer {
	s := &APIServer{
		router:     http.NewServeMux(),
		orch:       orch,
		controller: controller,
		db:         db,
		logBroker:  logBroker,
		logLevel:   opts.LogLevel,
		apiToken:   opts.APIToken,
		logger:     logger,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown is called or the listener fails.
func (s *APIServer) Start() error {
	s.logger.Info("API server listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
