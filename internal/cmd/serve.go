package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iammorganparry/forgepilot/internal/agent"
	"github.com/iammorganparry/forgepilot/internal/api"
	"github.com/iammorganparry/forgepilot/internal/config"
	"github.com/iammorganparry/forgepilot/internal/logging"
	"github.com/iammorganparry/forgepilot/internal/store"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local ForgePilot agent server",
		Long: `Run a local agent server implementing the health, message, memory and
download endpoints. Tool actions are simulated inside the sandbox
directory; nothing is executed and no network calls are made.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	cmd.Flags().Int("port", 0, "listen port")
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().String("sandbox", "", "sandbox directory for simulated tool output")
	_ = a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = a.v.BindPFlag("server.db_path", cmd.Flags().Lookup("db"))
	_ = a.v.BindPFlag("server.sandbox_dir", cmd.Flags().Lookup("sandbox"))
	return cmd
}

// server bundles the router with the resources it owns
type server struct {
	handler http.Handler
	db      *store.DB
}

func (s *server) Close() error { return s.db.Close() }

// newServer opens storage and builds the agent and router for cfg
func newServer(cfg *config.Config, logger *slog.Logger) (*server, error) {
	db, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	catalog, err := agent.LoadCatalog()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}
	tools, err := agent.NewTools(cfg.Server.SandboxDir, cfg.Server.AllowExecute, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	events := store.NewEventStore(db)
	ag := agent.New(catalog, tools, logger)
	return &server{
		handler: api.NewRouter(db, events, ag, cfg.Server.AllowExecute, logger),
		db:      db,
	}, nil
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(os.Stdout, a.cfg.LogLevel)
	slog.SetDefault(logger)

	srv, err := newServer(a.cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer srv.Close()

	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("forgepilot server starting",
			"addr", addr,
			"db_path", a.cfg.Server.DBPath,
			"sandbox_dir", a.cfg.Server.SandboxDir,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
