// Package migration versions the schema with goose. Each version is a Go
// migration so one code path serves postgres, mysql and sqlite.
package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// Migrator applies and rolls back schema versions on one database. It does
// not own the connection; closing the provider would close the shared pool.
type Migrator struct {
	db       *gorm.DB
	provider *goose.Provider
	logger   logger.Interface
}

func NewMigrator(db *gorm.DB, log logger.Interface) (*Migrator, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	dialect, err := dialectFor(db.Dialector.Name())
	if err != nil {
		return nil, err
	}

	m := &Migrator{db: db, logger: log.Named("migration")}
	provider, err := goose.NewProvider(dialect, sqlDB, nil,
		goose.WithGoMigrations(m.migrations()...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	m.provider = provider
	return m, nil
}

func dialectFor(name string) (goose.Dialect, error) {
	switch name {
	case "postgres":
		return goose.DialectPostgres, nil
	case "mysql":
		return goose.DialectMySQL, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("no goose dialect for database %q", name)
	}
}

func (m *Migrator) migrations() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1,
			&goose.GoFunc{RunDB: m.createTables},
			&goose.GoFunc{RunDB: m.dropTables},
		),
		goose.NewGoMigration(2,
			&goose.GoFunc{RunDB: m.createIndexes},
			&goose.GoFunc{RunDB: m.dropIndexes},
		),
		goose.NewGoMigration(3,
			&goose.GoFunc{RunDB: m.createChallenges},
			&goose.GoFunc{RunDB: m.dropChallenges},
		),
	}
}

func (m *Migrator) createTables(ctx context.Context, _ *sql.DB) error {
	return m.db.WithContext(ctx).AutoMigrate(initialModels()...)
}

func (m *Migrator) dropTables(ctx context.Context, _ *sql.DB) error {
	return m.drop(ctx, initialModels())
}

// createChallenges adds the challenges table. Databases created before
// ingestions stored their response also gain that column here.
func (m *Migrator) createChallenges(ctx context.Context, _ *sql.DB) error {
	return m.db.WithContext(ctx).AutoMigrate(append([]any{&models.RatingIngestionModel{}}, challengeModels()...)...)
}

func (m *Migrator) dropChallenges(ctx context.Context, _ *sql.DB) error {
	return m.drop(ctx, challengeModels())
}

func (m *Migrator) drop(ctx context.Context, tables []any) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if err := m.db.WithContext(ctx).Migrator().DropTable(tables[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) createIndexes(ctx context.Context, _ *sql.DB) error {
	tx := m.db.WithContext(ctx)
	for _, idx := range secondaryIndexes {
		if tx.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (m *Migrator) dropIndexes(ctx context.Context, _ *sql.DB) error {
	tx := m.db.WithContext(ctx)
	for _, idx := range secondaryIndexes {
		if !tx.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		if err := tx.Migrator().DropIndex(idx.table, idx.name); err != nil {
			return fmt.Errorf("failed to drop index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Up applies every pending version.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		m.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		m.logger.Infow("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Down rolls back steps versions.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		r, err := m.provider.Down(ctx)
		if err != nil {
			m.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
		m.logger.Infow("migration rolled back", "version", r.Source.Version)
	}
	return nil
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Status reports every known version and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}
