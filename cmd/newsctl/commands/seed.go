package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncnews/ncnews-backend/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all data with the fixture set",
	Long: `Truncate topics, users, articles and comments and load the fixture data
used by the test suites. Destroys existing rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conn, _, err := connect(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := db.Seed(ctx, conn, db.TestFixtures); err != nil {
			return err
		}

		fx := db.TestFixtures
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d topics, %d users, %d articles, %d comments\n",
			len(fx.Topics), len(fx.Users), len(fx.Articles), len(fx.Comments))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
