package worker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chessforge/gamecore/internal/infrastructure/database"
	"github.com/chessforge/gamecore/internal/interfaces/cli/bootstrap"
	httpContainer "github.com/chessforge/gamecore/internal/interfaces/http"
)

const shutdownTimeout = 30 * time.Second

var (
	env       string
	runJobs   bool
	consumers bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background jobs without the HTTP server",
		Long:  `Run the matchmaking cycle, ticket reaper, failed match retry, rating outbox and game event consumer.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&runJobs, "jobs", true, "Run scheduled jobs")
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

	if !runJobs && !consumers {
		return fmt.Errorf("nothing to run: both --jobs and --consumers are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := httpContainer.NewContainer(rt.Config, database.Get(), log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	if err := container.SeedPools(ctx); err != nil {
		return fmt.Errorf("failed to seed rating pools: %w", err)
	}

	log.Infow("starting worker", "environment", rt.Name, "jobs", runJobs, "consumers", consumers)
	container.Start(ctx, httpContainer.RunOptions{Jobs: runJobs, Consumers: consumers})

	<-ctx.Done()
	log.Infow("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Infow("worker exited gracefully")
	return nil
}
