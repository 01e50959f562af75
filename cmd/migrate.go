package cmd

import (
	"fmt"

	"aistudio/db"
	"aistudio/repository"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and seed the demo user",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.Open(cfg.Database)
		if err != nil {
			return err
		}
		store := repository.NewGormStore(gdb)
		defer store.Close()

		if err := db.Migrate(gdb); err != nil {
			return err
		}
		user, err := repository.SeedDemoUser(cmd.Context(), store, cfg.Demo.Username, cfg.Demo.Password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema migrated (%s). Demo user %q has id %d.\n", cfg.Database.Driver, user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
