package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/chessforge/gamecore/internal/interfaces/cli/backfill"
	"github.com/chessforge/gamecore/internal/interfaces/cli/migrate"
	"github.com/chessforge/gamecore/internal/interfaces/cli/server"
	"github.com/chessforge/gamecore/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gamecore",
		Short:        "Chess game core",
		Long:         `gamecore runs matchmaking, live games, bots and ratings for the chess platform.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		worker.NewCommand(),
		migrate.NewCommand(),
		backfill.NewCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
