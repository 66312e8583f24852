package backfill

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ratingUsecases "github.com/chessforge/gamecore/internal/application/rating/usecases"
	"github.com/chessforge/gamecore/internal/infrastructure/database"
	"github.com/chessforge/gamecore/internal/interfaces/cli/bootstrap"
	httpContainer "github.com/chessforge/gamecore/internal/interfaces/http"
)

var (
	env  string
	from string
	to   string
	pool string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay game events into the rating tables",
		Long:  `Replay the game.ended events of a time window through rating ingestion. Already applied games are skipped.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVar(&from, "from", "", "Window start, RFC 3339 (required)")
	cmd.Flags().StringVar(&to, "to", "", "Window end, RFC 3339 (default: now)")
	cmd.Flags().StringVar(&pool, "pool", "", "Only replay games of this rating pool")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

func parseWindow(from, to string, now time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
	}
	end := now
	if to != "" {
		if end, err = time.Parse(time.RFC3339, to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return start.UTC(), end.UTC(), nil
}

func run(cmd *cobra.Command, args []string) error {
	start, end, err := parseWindow(from, to, time.Now())
	if err != nil {
		return err
	}

	rt, err := bootstrap.Load(env)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := httpContainer.NewContainer(rt.Config, database.Get(), log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Shutdown(shutdownCtx)
	}()

	job, err := container.Backfill().Run(ctx, ratingUsecases.StartBackfillCommand{
		WindowStart: start,
		WindowEnd:   end,
		PoolFilter:  pool,
	})
	if err != nil {
		return err
	}

	fmt.Printf("backfill %s %s: processed=%d skipped=%d errors=%d\n",
		job.ID, job.Status, job.Processed, job.Skipped, job.Errors)
	if job.ErrorMessage != "" {
		return fmt.Errorf("backfill %s: %s", job.ID, job.ErrorMessage)
	}
	return nil
}
