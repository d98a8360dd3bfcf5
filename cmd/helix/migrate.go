package main

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/helix/helix/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending durable log migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.ConnectToDB(cfg.Helix.Database.DSN, logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		return db.Migrate(cmd.Context(), conn, logger)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
