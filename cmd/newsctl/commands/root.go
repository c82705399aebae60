package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ncnews/ncnews-backend/internal/config"
	"github.com/ncnews/ncnews-backend/internal/db"
)

var (
	// Global flags
	driver string
	dsn    string
)

var rootCmd = &cobra.Command{
	Use:   "newsctl",
	Short: "Maintenance tasks for the news API database",
	Long: `newsctl manages the news API database schema and fixture data.

Connection settings come from NEWS_DB_DRIVER and NEWS_DB_DSN (or a .env file)
unless overridden with --driver and --dsn.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: postgres or sqlite")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database connection string")
}

// connect opens the database named by the flags, falling back to config.
func connect(ctx context.Context) (*sqlx.DB, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}

	dbCfg := db.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}
	if driver != "" {
		dbCfg.Driver = driver
	}
	if dsn != "" {
		dbCfg.DSN = dsn
	}

	conn, err := db.Open(ctx, dbCfg)
	if err != nil {
		return nil, "", err
	}
	return conn, dbCfg.Driver, nil
}
