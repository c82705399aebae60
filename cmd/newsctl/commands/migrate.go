package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncnews/ncnews-backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run the embedded schema migrations.

Subcommands:
  up      - Apply pending migrations
  down    - Roll back the latest migration
  status  - Show migration status`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, drv, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.MigrateUp(ctx, conn.DB, drv); err != nil {
			return err
		}
		return printVersion(cmd, conn.DB, drv)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, drv, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.MigrateDown(ctx, conn.DB, drv); err != nil {
			return err
		}
		return printVersion(cmd, conn.DB, drv)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, drv, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		return db.MigrationStatus(ctx, conn.DB, drv)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func printVersion(cmd *cobra.Command, conn *sql.DB, drv string) error {
	version, err := db.SchemaVersion(cmd.Context(), conn, drv)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
