// Package cli holds the hotel command tree.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/logger"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/store"
	"github.com/iliyamo/hotel-reservation/internal/store/memory"
)

const serviceName = "hotel-reservation"

var rootCmd = &cobra.Command{
	Use:           "hotel",
	Short:         "Hotel room reservation service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "hotel: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, consumeCmd)
}

// env is what every command starts from: configuration, a logger and
// the selected store.
type env struct {
	cfg    config.Config
	log    *zap.Logger
	store  store.Store
	tokens handler.RefreshTokens
	db     *sql.DB // nil for the memory store
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

// openStore connects the store named by STORE.
func (e *env) openStore() error {
	switch e.cfg.Store {
	case config.StoreMemory:
		e.store = memory.New()
		e.tokens = memory.NewTokens()
		e.log.Warn("using in-memory store; data is lost on exit")
		return nil
	case config.StoreMySQL:
		db, err := database.Open(e.cfg.DBUser, e.cfg.DBPass, e.cfg.DBHost, e.cfg.DBPort, e.cfg.DBName)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		e.db = db
		e.store = repository.NewStore(db)
		e.tokens = repository.NewTokenRepo(db)
		return nil
	}
	return fmt.Errorf("unknown store %q", e.cfg.Store)
}

// requireMySQL opens a dedicated pool for commands that only make sense
// against a database.
func (e *env) requireMySQL() (*sql.DB, error) {
	if e.cfg.Store != config.StoreMySQL {
		return nil, errors.New("this command needs STORE=mysql")
	}
	return database.Open(e.cfg.DBUser, e.cfg.DBPass, e.cfg.DBHost, e.cfg.DBPort, e.cfg.DBName)
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.log.Sync()
}

// seedAdmin hashes ADMIN_PASSWORD and runs the idempotent seed.
func (e *env) seed(ctx context.Context) error {
	var admin database.Admin
	if e.cfg.AdminPassword != "" {
		hash, err := hashPassword(e.cfg.AdminPassword, e.cfg.BcryptCost)
		if err != nil {
			return err
		}
		admin = database.Admin{Name: e.cfg.AdminName, Email: e.cfg.AdminEmail, PasswordHash: hash}
	} else {
		e.log.Warn("ADMIN_PASSWORD not set; skipping admin account")
	}
	return database.Seed(ctx, e.store, admin, e.log)
}
