package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chessforge/gamecore/internal/infrastructure/database"
	"github.com/chessforge/gamecore/internal/infrastructure/migration"
	"github.com/chessforge/gamecore/internal/interfaces/cli/bootstrap"
	httpContainer "github.com/chessforge/gamecore/internal/interfaces/http"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	env         string
	autoMigrate bool
	runJobs     bool
	consumers   bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP and websocket server",
		Long:  `Start the game core API. Background jobs and the game event consumer run in the same process unless disabled.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending database migrations on startup")
	cmd.Flags().BoolVar(&runJobs, "jobs", true, "Run matchmaking, outbox and registry jobs in this process")
	cmd.Flags().BoolVar(&consumers, "consumers", true, "Consume game events for rating updates")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap.Load(env)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Logger
	cfg := rt.Config

	log.Infow("starting server",
		"environment", rt.Name,
		"auto_migrate", autoMigrate,
		"jobs", runJobs,
		"consumers", consumers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := handleMigrations(ctx, rt, log); err != nil {
		return err
	}

	container, err := httpContainer.NewContainer(cfg, database.Get(), log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := container.SeedPools(ctx); err != nil {
		return fmt.Errorf("failed to seed rating pools: %w", err)
	}
	container.SetupRoutes()
	container.Start(ctx, httpContainer.RunOptions{Jobs: runJobs, Consumers: consumers, WSRelay: true})

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      container.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "address", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Errorw("server stopped unexpectedly", "error", err)
		}
	}

	log.Infow("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		errs = append(errs, err)
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func handleMigrations(ctx context.Context, rt *bootstrap.Env, log logger.Interface) error {
	m, err := migration.NewMigrator(database.Get(), log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if autoMigrate {
		if rt.Name == "production" {
			log.Warnw("auto-migration is enabled in production environment")
		}
		log.Infow("running auto-migration")
		return m.Up(ctx)
	}

	version, err := m.Version(ctx)
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	log.Infow("current migration version", "version", version)
	return nil
}
