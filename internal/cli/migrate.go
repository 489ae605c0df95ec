package cli

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/database"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(database.Up)
	},
}

var (
	downSteps int
	downAll   bool
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (one by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := downSteps
		if downAll {
			steps = 0
		} else if steps < 1 {
			return errors.New("--steps must be at least 1")
		}
		return runMigration(func(m *migrate.Migrate) error { return database.Down(m, steps) })
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")
	migrateDownCmd.Flags().BoolVar(&downAll, "all", false, "roll back every migration")
}

func runMigration(step func(*migrate.Migrate) error) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	db, err := env.requireMySQL()
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(db) // owns db from here on
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := step(m); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		env.log.Info("schema is empty")
	case err != nil:
		return err
	default:
		env.log.Info("schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
