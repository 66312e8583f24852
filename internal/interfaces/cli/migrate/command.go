package migrate

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chessforge/gamecore/internal/infrastructure/database"
	"github.com/chessforge/gamecore/internal/infrastructure/migration"
	"github.com/chessforge/gamecore/internal/interfaces/cli/bootstrap"
)

var (
	env   string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back and inspect the schema versions of the game core database.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

func initMigrator() (*bootstrap.Env, *migration.Migrator, error) {
	rt, err := bootstrap.Load(env)
	if err != nil {
		return nil, nil, err
	}
	m, err := migration.NewMigrator(database.Get(), rt.Logger)
	if err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return rt, m, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	rt, m, err := initMigrator()
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Logger.Infow("running up migrations", "environment", rt.Name)
	if err := m.Up(cmd.Context()); err != nil {
		return err
	}
	rt.Logger.Infow("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	rt, m, err := initMigrator()
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Logger.Infow("running down migrations", "environment", rt.Name, "steps", steps)
	if err := m.Down(cmd.Context(), steps); err != nil {
		return err
	}
	rt.Logger.Infow("down migration completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, m, err := initMigrator()
	if err != nil {
		return err
	}
	defer rt.Close()

	version, err := m.Version(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	statuses, err := m.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("\nMigration Status:\n")
	fmt.Printf("  Environment:     %s\n", rt.Name)
	fmt.Printf("  Current Version: %d\n\n", version)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Source.Version, s.State, applied)
	}
	return w.Flush()
}
